package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agritrace-backend/internal/carbon"
	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/keylock"
	"agritrace-backend/internal/reputation"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service runs the anomaly engine against ledger data and persists the
// outcome. The verification record is always written, FLAGGED or not,
// before the caller sees a result.
type Service struct {
	DB         *gorm.DB
	Locks      *keylock.Registry
	Reputation *reputation.Service
	Carbon     *carbon.Service
}

// Verify evaluates a batch and durably records the outcome. The passed
// context is detached from caller cancellation: a client disconnect must
// not leave a verification half-done, since retries rely on overwrite
// idempotence.
func (s *Service) Verify(ctx context.Context, batchID uint64, ev *Evidence, verifierAddr string, timestamp int64) (*models.VerificationRecord, error) {
	ctx = context.WithoutCancel(ctx)
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	key := fmt.Sprintf("batch:%d", batchID)
	s.Locks.Lock(key)
	defer s.Locks.Unlock(key)

	// Ledger reads: a missing batch is an engine-level finding, but any
	// other read failure is an internal error, never invented data.
	var batch *models.Batch
	var b models.Batch
	err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&b).Error
	if err == nil {
		batch = &b
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var checkpoints []models.Checkpoint
	var handoffs []models.Handoff
	if batch != nil {
		if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("idx ASC").Find(&checkpoints).Error; err != nil {
			return nil, err
		}
		if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("idx ASC").Find(&handoffs).Error; err != nil {
			return nil, err
		}
	}

	outcome := Evaluate(batch, checkpoints, handoffs, ev)

	var previous *models.VerificationRecord
	var prev models.VerificationRecord
	err = s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&prev).Error
	if err == nil {
		previous = &prev
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	record := models.VerificationRecord{
		BatchID:      batchID,
		Result:       outcome.Result,
		Confidence:   outcome.Confidence,
		Reason:       outcome.Reason,
		VerifierAddr: verifierAddr,
		Timestamp:    timestamp,
	}
	if err := s.DB.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, err
	}

	if batch != nil {
		if delta, ok := reputationDelta(previous, &record); ok {
			if err := s.Reputation.Apply(ctx, batch.FarmerAddr, delta); err != nil {
				log.Error().Err(err).Uint64("batch_id", batchID).Msg("Reputation update after verification failed")
			}
		}

		// Best-effort recompute; a carbon failure never fails the verification.
		if _, err := s.Carbon.Calculate(ctx, batchID); err != nil {
			log.Warn().Err(err).Uint64("batch_id", batchID).Msg("Carbon recompute after verification failed")
		}
	}

	return &record, nil
}

// reputationDelta maps the first write to a +1 on the matching counter
// and an overwrite with a changed result to a move between counters.
func reputationDelta(previous, current *models.VerificationRecord) (reputation.Delta, bool) {
	if previous == nil {
		if current.Result == models.ResultVerified {
			return reputation.Delta{VerifiedCount: 1}, true
		}
		return reputation.Delta{FlaggedCount: 1}, true
	}
	if previous.Result == current.Result {
		return reputation.Delta{}, false
	}
	if current.Result == models.ResultVerified {
		return reputation.Delta{VerifiedCount: 1, FlaggedCount: -1}, true
	}
	return reputation.Delta{VerifiedCount: -1, FlaggedCount: 1}, true
}

// GetRecord returns the stored verification record for a batch.
func (s *Service) GetRecord(ctx context.Context, batchID uint64) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Verification not found")
		}
		return nil, err
	}
	return &rec, nil
}
