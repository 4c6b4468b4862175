package models

// Checkpoint is a timestamped observation logged against a batch. The
// 1-based index is assigned by ledger append order and never reused.
type Checkpoint struct {
	ID           uint64  `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	BatchID      uint64  `gorm:"column:batch_id;uniqueIndex:idx_checkpoint_batch_index;not null" json:"batchId"`
	Index        int     `gorm:"column:idx;uniqueIndex:idx_checkpoint_batch_index;not null" json:"index"`
	GPS          string  `gorm:"column:gps" json:"gps"`
	TemperatureC float64 `gorm:"column:temperature_c" json:"temperature"`
	Humidity     float64 `gorm:"column:humidity" json:"humidity"`
	HandlerType  string  `gorm:"column:handler_type" json:"handlerType"`
	Notes        string  `gorm:"column:notes" json:"notes"`
	PhotoHash    string  `gorm:"column:photo_hash" json:"photoHash"`
	Timestamp    int64   `gorm:"column:timestamp;not null" json:"timestamp"`
}

func (Checkpoint) TableName() string {
	return "checkpoints"
}
