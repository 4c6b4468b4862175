package models

const (
	EscrowFunded   = "funded"
	EscrowReleased = "released"
)

// Escrow holds buyer funds for a batch until release. released is
// terminal; a batch gets at most one escrow.
type Escrow struct {
	BatchID    uint64 `gorm:"column:batch_id;primaryKey" json:"batchId"`
	BuyerAddr  string `gorm:"column:buyer_addr;not null" json:"buyerAddr"`
	FarmerAddr string `gorm:"column:farmer_addr;not null" json:"farmerAddr"`
	Amount     int64  `gorm:"column:amount;not null" json:"amount"`
	Status     string `gorm:"column:status;not null;default:'funded'" json:"status"`
	FundedAt   int64  `gorm:"column:funded_at;not null" json:"fundedAt"`
	ReleasedAt *int64 `gorm:"column:released_at" json:"releasedAt"`
}

func (Escrow) TableName() string {
	return "escrows"
}
