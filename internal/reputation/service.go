package reputation

import (
	"context"
	"errors"
	"math"
	"time"

	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/keylock"

	"gorm.io/gorm"
)

// Delta is one additive change to a farmer aggregate. Batch creation,
// verification, escrow release and carbon recompute all express their
// effect as a Delta and submit it through Apply, the only write path.
type Delta struct {
	TotalBatches     int
	VerifiedCount    int
	FlaggedCount     int
	CarbonCredits    float64
	PaymentsReceived int64
}

type Service struct {
	DB    *gorm.DB
	Locks *keylock.Registry
}

// Apply merges the delta into the farmer aggregate under the per-farmer
// lock, creating the row on first touch. Tier is recomputed on every apply.
func (s *Service) Apply(ctx context.Context, farmerAddr string, d Delta) error {
	if farmerAddr == "" {
		return errors.New("Farmer address is required")
	}

	s.Locks.Lock("farmer:" + farmerAddr)
	defer s.Locks.Unlock("farmer:" + farmerAddr)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rep models.FarmerReputation
		err := tx.Where("farmer_addr = ?", farmerAddr).First(&rep).Error
		if err == gorm.ErrRecordNotFound {
			rep = models.FarmerReputation{FarmerAddr: farmerAddr, Tier: models.TierBronze}
		} else if err != nil {
			return err
		}

		rep.TotalBatches = max0(rep.TotalBatches + d.TotalBatches)
		rep.VerifiedCount = max0(rep.VerifiedCount + d.VerifiedCount)
		rep.FlaggedCount = max0(rep.FlaggedCount + d.FlaggedCount)
		rep.CarbonCreditsTotal = round2(rep.CarbonCreditsTotal + d.CarbonCredits)
		rep.TotalPaymentsReceived += d.PaymentsReceived
		rep.Tier = models.TierFor(rep.VerifiedCount)
		rep.LastUpdated = time.Now().Unix()

		return tx.Save(&rep).Error
	})
}

// Get returns the farmer aggregate.
func (s *Service) Get(ctx context.Context, farmerAddr string) (*models.FarmerReputation, error) {
	var rep models.FarmerReputation
	if err := s.DB.WithContext(ctx).Where("farmer_addr = ?", farmerAddr).First(&rep).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Farmer not found")
		}
		return nil, err
	}
	return &rep, nil
}

// Payments returns the payment history for a farmer, oldest first.
func (s *Service) Payments(ctx context.Context, farmerAddr string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.DB.WithContext(ctx).Where("farmer_addr = ?", farmerAddr).Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
