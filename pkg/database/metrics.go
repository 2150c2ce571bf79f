package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var (
	poolOpenDesc = prometheus.NewDesc(
		"recipebox_db_pool_open_connections",
		"Established connections, in use and idle.", nil, nil)
	poolInUseDesc = prometheus.NewDesc(
		"recipebox_db_pool_in_use_connections",
		"Connections currently in use.", nil, nil)
	poolIdleDesc = prometheus.NewDesc(
		"recipebox_db_pool_idle_connections",
		"Idle connections.", nil, nil)
	poolMaxOpenDesc = prometheus.NewDesc(
		"recipebox_db_pool_max_open_connections",
		"Maximum number of open connections.", nil, nil)
	poolWaitCountDesc = prometheus.NewDesc(
		"recipebox_db_pool_wait_count_total",
		"Connections waited for.", nil, nil)
	poolWaitSecondsDesc = prometheus.NewDesc(
		"recipebox_db_pool_wait_seconds_total",
		"Time blocked waiting for a new connection.", nil, nil)
)

// PoolCollector exports GetPoolStats as Prometheus metrics on every scrape.
type PoolCollector struct {
	db *gorm.DB
}

// NewPoolCollector creates a collector over the connection pool of db.
func NewPoolCollector(db *gorm.DB) *PoolCollector {
	return &PoolCollector{db: db}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolOpenDesc
	ch <- poolInUseDesc
	ch <- poolIdleDesc
	ch <- poolMaxOpenDesc
	ch <- poolWaitCountDesc
	ch <- poolWaitSecondsDesc
}

// Collect implements prometheus.Collector. Nothing is sent when the pool is
// unavailable.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := GetPoolStats(c.db)
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(poolOpenDesc, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(poolInUseDesc, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(stats.Idle))
	ch <- prometheus.MustNewConstMetric(poolMaxOpenDesc, prometheus.GaugeValue, float64(stats.MaxOpenConnections))
	ch <- prometheus.MustNewConstMetric(poolWaitCountDesc, prometheus.CounterValue, float64(stats.WaitCount))
	ch <- prometheus.MustNewConstMetric(poolWaitSecondsDesc, prometheus.CounterValue, stats.WaitDuration.Seconds())
}
