package models

const (
	ResultVerified = "VERIFIED"
	ResultFlagged  = "FLAGGED"
)

// VerificationRecord holds the latest verification outcome for a batch.
// Re-verification overwrites the row, so at most one record exists per
// batch and count(*) over this table is the total-verifications counter.
type VerificationRecord struct {
	BatchID      uint64 `gorm:"column:batch_id;primaryKey" json:"batchId"`
	Result       string `gorm:"column:result;not null" json:"result"`
	Confidence   int    `gorm:"column:confidence;not null" json:"confidence"`
	Reason       string `gorm:"column:reason;not null" json:"reason"`
	VerifierAddr string `gorm:"column:verifier_addr" json:"verifierAddr"`
	Timestamp    int64  `gorm:"column:timestamp;not null" json:"timestamp"`
}

func (VerificationRecord) TableName() string {
	return "verification_records"
}
