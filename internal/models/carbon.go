package models

const (
	TransportTruck = "truck"
	TransportShip  = "ship"
	TransportAir   = "air"
)

// CarbonCredit is the derived sustainability record for a batch,
// overwritten on each recompute. Deterministic for a fixed ledger state.
type CarbonCredit struct {
	BatchID         uint64  `gorm:"column:batch_id;primaryKey" json:"batchId"`
	Score           int     `gorm:"column:score;not null" json:"score"`
	CreditsEarned   float64 `gorm:"column:credits_earned;not null" json:"creditsEarned"`
	DistanceKm      float64 `gorm:"column:distance_km;not null" json:"distance"`
	TransportMethod string  `gorm:"column:transport_method;not null" json:"transportMethod"`
	UpdatedAt       int64   `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (CarbonCredit) TableName() string {
	return "carbon_credits"
}
