package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment records funds that reached a farmer (escrow releases). Backs
// GET /farmer/:addr/payments.
type Payment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BatchID    uint64    `gorm:"column:batch_id;index;not null" json:"batchId"`
	FarmerAddr string    `gorm:"column:farmer_addr;index;not null" json:"farmerAddr"`
	FromAddr   string    `gorm:"column:from_addr;not null" json:"fromAddr"`
	Amount     int64     `gorm:"column:amount;not null" json:"amount"`
	Kind       string    `gorm:"column:kind;not null" json:"kind"`
	TxRef      string    `gorm:"column:tx_ref" json:"txRef"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
