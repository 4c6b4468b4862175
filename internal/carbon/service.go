package carbon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/geo"
	"agritrace-backend/internal/pkg/keylock"
	"agritrace-backend/internal/reputation"

	"gorm.io/gorm"
)

// Transport method bands by estimated route length (km).
const (
	truckMaxKm = 1000.0
	shipMaxKm  = 5000.0
)

const organicBonus = 20

// Service derives the travel-distance sustainability score for a batch.
// Scoring is deterministic: a batch with no usable GPS gets distance 0
// rather than a randomized estimate, so repeated calls agree.
type Service struct {
	DB         *gorm.DB
	Locks      *keylock.Registry
	Reputation *reputation.Service
}

// Calculate recomputes and stores the carbon record for a batch,
// overwriting any previous one. The farmer's credit total is adjusted by
// the delta against the previous record so recomputes never double-count.
func (s *Service) Calculate(ctx context.Context, batchID uint64) (*models.CarbonCredit, error) {
	key := carbonKey(batchID)
	s.Locks.Lock(key)
	defer s.Locks.Unlock(key)

	var batch models.Batch
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("Batch not found")
		}
		return nil, err
	}

	var cps []models.Checkpoint
	if err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).Order("idx ASC").Find(&cps).Error; err != nil {
		return nil, err
	}

	distance := routeDistanceKm(cps)
	method := transportMethod(distance)
	score := scoreFor(distance, method, batch.FarmingPractices)
	credits := round2(float64(score) * 0.05)

	var previousCredits float64
	var existing models.CarbonCredit
	err := s.DB.WithContext(ctx).Where("batch_id = ?", batchID).First(&existing).Error
	if err == nil {
		previousCredits = existing.CreditsEarned
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	record := models.CarbonCredit{
		BatchID:         batchID,
		Score:           score,
		CreditsEarned:   credits,
		DistanceKm:      round2(distance),
		TransportMethod: method,
		UpdatedAt:       time.Now().Unix(),
	}
	if err := s.DB.WithContext(ctx).Save(&record).Error; err != nil {
		return nil, err
	}

	delta := round2(credits - previousCredits)
	if delta != 0 {
		if err := s.Reputation.Apply(ctx, batch.FarmerAddr, reputation.Delta{CarbonCredits: delta}); err != nil {
			return nil, err
		}
	}

	return &record, nil
}

func carbonKey(batchID uint64) string {
	return fmt.Sprintf("carbon:%d", batchID)
}

// routeDistanceKm sums great-circle distances between consecutive
// checkpoints with usable GPS.
func routeDistanceKm(cps []models.Checkpoint) float64 {
	total := 0.0
	for i := 1; i < len(cps); i++ {
		lat1, lng1, ok1 := geo.Parse(cps[i-1].GPS)
		lat2, lng2, ok2 := geo.Parse(cps[i].GPS)
		if !ok1 || !ok2 {
			continue
		}
		total += geo.HaversineKm(lat1, lng1, lat2, lng2)
	}
	return total
}

func transportMethod(distanceKm float64) string {
	switch {
	case distanceKm <= truckMaxKm:
		return models.TransportTruck
	case distanceKm <= shipMaxKm:
		return models.TransportShip
	default:
		return models.TransportAir
	}
}

func transportPenalty(method string) int {
	switch method {
	case models.TransportShip:
		return 10
	case models.TransportAir:
		return 30
	default:
		return 0
	}
}

func scoreFor(distanceKm float64, method, farmingPractices string) int {
	score := 100.0
	score -= math.Min(distanceKm/50, 60)
	score -= float64(transportPenalty(method))
	if strings.Contains(strings.ToLower(farmingPractices), "organic") {
		score += organicBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
