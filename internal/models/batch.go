package models

// Batch is a tracked unit of produce. Immutable after creation except for
// the two counters, which only increase as the ledger appends.
type Batch struct {
	BatchID          uint64  `gorm:"column:batch_id;primaryKey;autoIncrement" json:"batchId"`
	CropType         string  `gorm:"column:crop_type;not null" json:"cropType"`
	Weight           float64 `gorm:"column:weight;not null" json:"weight"`
	FarmGPS          string  `gorm:"column:farm_gps;not null;default:'0|0'" json:"farmGps"`
	FarmingPractices string  `gorm:"column:farming_practices" json:"farmingPractices"`
	OrganicCertID    string  `gorm:"column:organic_cert_id" json:"organicCertId"`
	FarmerAddr       string  `gorm:"column:farmer_addr;index;not null" json:"farmerAddr"`
	CreatedAt        int64   `gorm:"column:created_at;not null" json:"createdAt"`
	CheckpointCount  int     `gorm:"column:checkpoint_count;not null;default:0" json:"checkpointCount"`
	HandoffCount     int     `gorm:"column:handoff_count;not null;default:0" json:"handoffCount"`
}

func (Batch) TableName() string {
	return "batches"
}
