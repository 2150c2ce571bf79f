package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChangeCursor is the per-account high-water mark of consumed remote changes.
type ChangeCursor struct {
	Account         string    `gorm:"column:account;primaryKey" json:"account"`
	LargestChangeID int64     `gorm:"column:largest_change_id;not null" json:"largestChangeId"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name.
func (ChangeCursor) TableName() string {
	return "change_cursors"
}

// Get retrieves the cursor for an account.
func (c *ChangeCursor) Get(db *gorm.DB, account string) error {
	return db.Where("account = ?", account).First(c).Error
}

// Upsert writes the cursor, keeping the larger of the stored and new value.
func (c *ChangeCursor) Upsert(db *gorm.DB) error {
	c.UpdatedAt = time.Now().UTC()
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Set{
			{
				Column: clause.Column{Name: "largest_change_id"},
				Value: gorm.Expr("CASE WHEN excluded.largest_change_id > change_cursors.largest_change_id " +
					"THEN excluded.largest_change_id ELSE change_cursors.largest_change_id END"),
			},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(c).Error
}
