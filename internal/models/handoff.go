package models

import "gorm.io/datatypes"

const (
	HandoffPending   = "pending"
	HandoffConfirmed = "confirmed"
)

// Handoff is a custody transfer for a batch. pending is the only initial
// state; confirmed is terminal.
type Handoff struct {
	ID          uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	BatchID     uint64         `gorm:"column:batch_id;uniqueIndex:idx_handoff_batch_index;not null" json:"batchId"`
	Index       int            `gorm:"column:idx;uniqueIndex:idx_handoff_batch_index;not null" json:"index"`
	FromAddr    string         `gorm:"column:from_addr;not null" json:"fromAddr"`
	ToAddr      string         `gorm:"column:to_addr;not null" json:"toAddr"`
	HandoffType string         `gorm:"column:handoff_type" json:"handoffType"`
	PhotoHashes datatypes.JSON `gorm:"column:photo_hashes" json:"photoHashes"`
	Status      string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	InitiatedAt int64          `gorm:"column:initiated_at;not null" json:"initiatedAt"`
	ConfirmedAt *int64         `gorm:"column:confirmed_at" json:"confirmedAt"`
}

func (Handoff) TableName() string {
	return "handoffs"
}
