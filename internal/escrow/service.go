package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/keylock"
	"agritrace-backend/internal/reputation"

	"gorm.io/gorm"
)

// Service holds buyer funds against a batch until release. A batch gets
// at most one escrow ever; released is terminal.
type Service struct {
	DB         *gorm.DB
	Locks      *keylock.Registry
	Reputation *reputation.Service
}

func escrowKey(batchID uint64) string {
	return fmt.Sprintf("batch:%d", batchID)
}

// Fund creates the escrow for a batch, copying the farmer address from
// the batch at fund time.
func (s *Service) Fund(ctx context.Context, batchID uint64, buyerAddr string, amount int64) (*models.Escrow, error) {
	if buyerAddr == "" {
		return nil, errors.New("Buyer address is required")
	}
	if amount <= 0 {
		return nil, errors.New("Amount must be a positive number")
	}

	s.Locks.Lock(escrowKey(batchID))
	defer s.Locks.Unlock(escrowKey(batchID))

	var esc models.Escrow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.Batch
		if err := tx.Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Batch not found")
			}
			return err
		}

		var existing models.Escrow
		err := tx.Where("batch_id = ?", batchID).First(&existing).Error
		if err == nil {
			return errors.New("Escrow already exists for this batch")
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		esc = models.Escrow{
			BatchID:    batchID,
			BuyerAddr:  buyerAddr,
			FarmerAddr: batch.FarmerAddr,
			Amount:     amount,
			Status:     models.EscrowFunded,
			FundedAt:   time.Now().Unix(),
		}
		return tx.Create(&esc).Error
	})
	if err != nil {
		return nil, err
	}
	return &esc, nil
}

// Release pays the held amount out to the farmer: the escrow flips to its
// terminal state, a payment row is recorded, and the farmer aggregate is
// credited.
func (s *Service) Release(ctx context.Context, batchID uint64, txRef string) (*models.Escrow, error) {
	s.Locks.Lock(escrowKey(batchID))
	defer s.Locks.Unlock(escrowKey(batchID))

	var esc models.Escrow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", batchID).First(&esc).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.New("Escrow not found")
			}
			return err
		}
		if esc.Status == models.EscrowReleased {
			return errors.New("Escrow already released")
		}

		now := time.Now().Unix()
		esc.Status = models.EscrowReleased
		esc.ReleasedAt = &now
		if err := tx.Save(&esc).Error; err != nil {
			return err
		}

		return tx.Create(&models.Payment{
			BatchID:    batchID,
			FarmerAddr: esc.FarmerAddr,
			FromAddr:   esc.BuyerAddr,
			Amount:     esc.Amount,
			Kind:       "escrow_release",
			TxRef:      txRef,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.Reputation.Apply(ctx, esc.FarmerAddr, reputation.Delta{PaymentsReceived: esc.Amount}); err != nil {
		return nil, err
	}
	return &esc, nil
}

// Get returns the escrow for a batch.
func (s *Service) Get(ctx context.Context, batchID uint64) (*models.Escrow, error) {
	var esc models.Escrow
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&esc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Escrow not found")
		}
		return nil, err
	}
	return &esc, nil
}
