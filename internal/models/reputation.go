package models

const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

// FarmerReputation is the per-farmer aggregate. All mutation paths go
// through reputation.Service.Apply so concurrent deltas cannot lose
// updates.
type FarmerReputation struct {
	FarmerAddr            string  `gorm:"column:farmer_addr;primaryKey" json:"farmerAddr"`
	TotalBatches          int     `gorm:"column:total_batches;not null;default:0" json:"totalBatches"`
	VerifiedCount         int     `gorm:"column:verified_count;not null;default:0" json:"verifiedCount"`
	FlaggedCount          int     `gorm:"column:flagged_count;not null;default:0" json:"flaggedCount"`
	Tier                  string  `gorm:"column:tier;not null;default:'bronze'" json:"tier"`
	CarbonCreditsTotal    float64 `gorm:"column:carbon_credits_total;not null;default:0" json:"carbonCreditsTotal"`
	TotalPaymentsReceived int64   `gorm:"column:total_payments_received;not null;default:0" json:"totalPaymentsReceived"`
	LastUpdated           int64   `gorm:"column:last_updated;not null" json:"lastUpdated"`
}

func (FarmerReputation) TableName() string {
	return "farmer_reputations"
}

// TierFor maps a verified count onto a reputation tier.
func TierFor(verifiedCount int) string {
	switch {
	case verifiedCount >= 51:
		return TierGold
	case verifiedCount >= 11:
		return TierSilver
	default:
		return TierBronze
	}
}
