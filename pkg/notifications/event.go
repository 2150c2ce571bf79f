package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

// Operation is the kind of write that produced a ChangeEvent.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ChangeEvent tells observers that the data behind an address changed.
// It carries no row data; observers re-query.
type ChangeEvent struct {
	ID          string           `json:"id"`           // Unique event ID (UUID)
	Operation   Operation        `json:"operation"`    // insert, update or delete
	Address     resource.Address `json:"address"`      // Changed address
	ContentType string           `json:"content_type"` // Type descriptor of Address
	Rows        int64            `json:"rows"`         // Affected rows, when known
	Timestamp   time.Time        `json:"timestamp"`
}

// NewChangeEvent builds an event for addr.
func NewChangeEvent(op Operation, addr resource.Address, rows int64) *ChangeEvent {
	return &ChangeEvent{
		ID:          uuid.New().String(),
		Operation:   op,
		Address:     addr,
		ContentType: addr.ContentType(),
		Rows:        rows,
		Timestamp:   time.Now().UTC(),
	}
}

// PartitionKey groups events for the same collection so they stay ordered
// when exported.
func (e *ChangeEvent) PartitionKey() string {
	return e.Address.Parent().String()
}
