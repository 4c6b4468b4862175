package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/geo"
	"agritrace-backend/internal/pkg/keylock"
	"agritrace-backend/internal/reputation"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service owns the append-only record of batches, checkpoints and
// handoffs. All mutations on a batch serialize on its key lock.
type Service struct {
	DB         *gorm.DB
	Locks      *keylock.Registry
	Reputation *reputation.Service
}

type CreateBatchInput struct {
	CropType         string
	Weight           float64
	FarmGPS          string
	FarmingPractices string
	OrganicCertID    string
	FarmerAddr       string
}

type CheckpointInput struct {
	GPS          string
	TemperatureC float64
	Humidity     float64
	HandlerType  string
	Notes        string
	PhotoHash    string
	Timestamp    int64
}

type HandoffInput struct {
	FromAddr    string
	ToAddr      string
	HandoffType string
	PhotoHashes []string
}

func batchKey(batchID uint64) string {
	return fmt.Sprintf("batch:%d", batchID)
}

// CreateBatch registers a new batch and credits the farmer aggregate.
func (s *Service) CreateBatch(ctx context.Context, in CreateBatchInput) (*models.Batch, error) {
	if in.CropType == "" {
		return nil, errors.New("Crop type is required")
	}
	if in.Weight <= 0 {
		return nil, errors.New("Weight must be a positive number")
	}
	if in.FarmerAddr == "" {
		return nil, errors.New("Farmer address is required")
	}
	if in.FarmGPS == "" {
		in.FarmGPS = geo.UnknownGPS
	}

	batch := models.Batch{
		CropType:         in.CropType,
		Weight:           in.Weight,
		FarmGPS:          in.FarmGPS,
		FarmingPractices: in.FarmingPractices,
		OrganicCertID:    in.OrganicCertID,
		FarmerAddr:       in.FarmerAddr,
		CreatedAt:        time.Now().Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, err
	}

	if err := s.Reputation.Apply(ctx, in.FarmerAddr, reputation.Delta{TotalBatches: 1}); err != nil {
		log.Error().Err(err).Uint64("batch_id", batch.BatchID).Msg("Reputation update after batch creation failed")
	}

	return &batch, nil
}

// AppendCheckpoint appends a checkpoint and returns its 1-based index.
func (s *Service) AppendCheckpoint(ctx context.Context, batchID uint64, in CheckpointInput) (int, error) {
	if in.Timestamp == 0 {
		in.Timestamp = time.Now().Unix()
	}

	s.Locks.Lock(batchKey(batchID))
	defer s.Locks.Unlock(batchKey(batchID))

	var index int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Batch not found")
			}
			return err
		}

		index = batch.CheckpointCount + 1
		cp := models.Checkpoint{
			BatchID:      batchID,
			Index:        index,
			GPS:          in.GPS,
			TemperatureC: in.TemperatureC,
			Humidity:     in.Humidity,
			HandlerType:  in.HandlerType,
			Notes:        in.Notes,
			PhotoHash:    in.PhotoHash,
			Timestamp:    in.Timestamp,
		}
		if err := tx.Create(&cp).Error; err != nil {
			return err
		}
		return tx.Model(&batch).Update("checkpoint_count", index).Error
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// InitiateHandoff records a pending custody transfer and returns its index.
func (s *Service) InitiateHandoff(ctx context.Context, batchID uint64, in HandoffInput) (int, error) {
	if in.FromAddr == "" || in.ToAddr == "" {
		return 0, errors.New("From and to addresses are required")
	}

	s.Locks.Lock(batchKey(batchID))
	defer s.Locks.Unlock(batchKey(batchID))

	var index int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Batch not found")
			}
			return err
		}

		photoHashes := in.PhotoHashes
		if photoHashes == nil {
			photoHashes = []string{}
		}
		hashesJSON, err := json.Marshal(photoHashes)
		if err != nil {
			return err
		}

		index = batch.HandoffCount + 1
		ho := models.Handoff{
			BatchID:     batchID,
			Index:       index,
			FromAddr:    in.FromAddr,
			ToAddr:      in.ToAddr,
			HandoffType: in.HandoffType,
			PhotoHashes: datatypes.JSON(hashesJSON),
			Status:      models.HandoffPending,
			InitiatedAt: time.Now().Unix(),
		}
		if err := tx.Create(&ho).Error; err != nil {
			return err
		}
		return tx.Model(&batch).Update("handoff_count", index).Error
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// ConfirmHandoff moves a pending handoff to confirmed. Confirming twice is
// a hard error so double-submissions surface instead of silently
// rewriting the confirmation timestamp.
func (s *Service) ConfirmHandoff(ctx context.Context, batchID uint64, index int, confirmedAt int64) error {
	if confirmedAt == 0 {
		confirmedAt = time.Now().Unix()
	}

	s.Locks.Lock(batchKey(batchID))
	defer s.Locks.Unlock(batchKey(batchID))

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Batch not found")
			}
			return err
		}

		var ho models.Handoff
		if err := tx.Where("batch_id = ? AND idx = ?", batchID, index).First(&ho).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Handoff not found")
			}
			return err
		}
		if ho.Status == models.HandoffConfirmed {
			return errors.New("Handoff already confirmed")
		}

		ho.Status = models.HandoffConfirmed
		ho.ConfirmedAt = &confirmedAt
		return tx.Save(&ho).Error
	})
}

// GetBatch returns a batch by id.
func (s *Service) GetBatch(ctx context.Context, batchID uint64) (*models.Batch, error) {
	var batch models.Batch
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Batch not found")
		}
		return nil, err
	}
	return &batch, nil
}

// GetCheckpoints returns a batch's checkpoints in append order.
func (s *Service) GetCheckpoints(ctx context.Context, batchID uint64) ([]models.Checkpoint, error) {
	var cps []models.Checkpoint
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("idx ASC").Find(&cps).Error; err != nil {
		return nil, err
	}
	return cps, nil
}

// GetHandoffs returns a batch's handoffs in append order.
func (s *Service) GetHandoffs(ctx context.Context, batchID uint64) ([]models.Handoff, error) {
	var hos []models.Handoff
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("idx ASC").Find(&hos).Error; err != nil {
		return nil, err
	}
	return hos, nil
}

// Journey is the full public trail of a batch.
type Journey struct {
	Batch        *models.Batch              `json:"batch"`
	Checkpoints  []models.Checkpoint        `json:"checkpoints"`
	Handoffs     []models.Handoff           `json:"handoffs"`
	Verification *models.VerificationRecord `json:"verification"`
}

// GetJourney returns the batch with its checkpoints, handoffs and latest
// verification record (nil when the batch was never verified).
func (s *Service) GetJourney(ctx context.Context, batchID uint64) (*Journey, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	cps, err := s.GetCheckpoints(ctx, batchID)
	if err != nil {
		return nil, err
	}
	hos, err := s.GetHandoffs(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var rec models.VerificationRecord
	var recPtr *models.VerificationRecord
	err = s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&rec).Error
	if err == nil {
		recPtr = &rec
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return &Journey{Batch: batch, Checkpoints: cps, Handoffs: hos, Verification: recPtr}, nil
}

// GetFarmerBatches returns all batches owned by a farmer, oldest first.
func (s *Service) GetFarmerBatches(ctx context.Context, farmerAddr string) ([]models.Batch, error) {
	var batches []models.Batch
	if err := s.DB.WithContext(ctx).Where("farmer_addr = ?", farmerAddr).Order("batch_id ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
