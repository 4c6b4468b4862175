package verification

import (
	"fmt"
	"strings"

	"agritrace-backend/internal/models"
	"agritrace-backend/internal/pkg/geo"
)

// Anomaly thresholds.
const (
	maxPlausibleSpeedKmh = 120.0
	minElapsedHours      = 0.001
	maxTemperatureC      = 8.0
	maxGapHours          = 48.0
	maxSegmentKm         = 2000.0
	maxRouteKm           = 5000.0
)

const (
	minConfidence = 10
	maxConfidence = 100
)

// AllPassedReason is the fixed reason string for a clean run. Clients
// parse the [WARNING]/[ERROR] tags out of non-clean reasons, so both the
// rendering and the flag order are part of the contract.
const AllPassedReason = "All authenticity checks passed"

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Flag is one anomaly found by a check, with its confidence deduction.
type Flag struct {
	Check     string
	Severity  Severity
	Deduction int
	Message   string
}

func (f Flag) render() string {
	tag := "WARNING"
	if f.Severity == SeverityCritical {
		tag = "ERROR"
	}
	return fmt.Sprintf("[%s] %s: %s", tag, f.Check, f.Message)
}

// Evidence is the closed set of caller-supplied evidence kinds. Unknown
// kinds are rejected at request decoding, not silently dropped.
type Evidence struct {
	MissingPhotos         []string
	CertificationMismatch string
}

// Outcome is the result of one evaluation pass.
type Outcome struct {
	Confidence int
	Result     string
	Reason     string
	Flags      []Flag
}

// Evaluate runs every anomaly check in fixed order against a batch's
// history and returns the scored outcome. Pure and deterministic: same
// inputs, same outcome. batch may be nil for an unknown batch id.
func Evaluate(batch *models.Batch, checkpoints []models.Checkpoint, handoffs []models.Handoff, ev *Evidence) Outcome {
	var flags []Flag
	add := func(check string, sev Severity, deduction int, msg string) {
		flags = append(flags, Flag{Check: check, Severity: sev, Deduction: deduction, Message: msg})
	}

	// 1. Existence
	if batch == nil {
		add("batch_existence", SeverityCritical, 50, "batch not found in ledger")
	}

	hasCheckpoints := len(checkpoints) > 0

	if hasCheckpoints {
		// 2. Speed anomalies between consecutive checkpoints
		for i := 1; i < len(checkpoints); i++ {
			prev, cur := checkpoints[i-1], checkpoints[i]
			lat1, lng1, ok1 := geo.Parse(prev.GPS)
			lat2, lng2, ok2 := geo.Parse(cur.GPS)
			if !ok1 || !ok2 {
				continue
			}
			hours := float64(cur.Timestamp-prev.Timestamp) / 3600
			if hours < minElapsedHours {
				continue
			}
			dist := geo.HaversineKm(lat1, lng1, lat2, lng2)
			speed := dist / hours
			if speed > maxPlausibleSpeedKmh {
				add("transit_speed", SeverityCritical, 30, fmt.Sprintf(
					"checkpoints %d-%d imply %.0f km/h over %.1f km", prev.Index, cur.Index, speed, dist))
			}
		}

		// 3. Cold-chain breaches, per checkpoint
		for _, cp := range checkpoints {
			if cp.TemperatureC > maxTemperatureC {
				add("cold_chain", SeverityWarning, 20, fmt.Sprintf(
					"checkpoint %d temperature %.1f°C exceeds %.0f°C", cp.Index, cp.TemperatureC, maxTemperatureC))
			}
		}

		// 4. Reporting gaps between consecutive checkpoints
		for i := 1; i < len(checkpoints); i++ {
			hours := float64(checkpoints[i].Timestamp-checkpoints[i-1].Timestamp) / 3600
			if hours > maxGapHours {
				add("checkpoint_gap", SeverityWarning, 15, fmt.Sprintf(
					"%.1f h between checkpoints %d and %d", hours, checkpoints[i-1].Index, checkpoints[i].Index))
			}
		}

		// 5. Route consistency: oversized segments, then cumulative length
		totalKm := 0.0
		for i := 1; i < len(checkpoints); i++ {
			lat1, lng1, ok1 := geo.Parse(checkpoints[i-1].GPS)
			lat2, lng2, ok2 := geo.Parse(checkpoints[i].GPS)
			if !ok1 || !ok2 {
				continue
			}
			dist := geo.HaversineKm(lat1, lng1, lat2, lng2)
			totalKm += dist
			if dist > maxSegmentKm {
				add("route_consistency", SeverityWarning, 12, fmt.Sprintf(
					"segment %d-%d spans %.0f km", checkpoints[i-1].Index, checkpoints[i].Index, dist))
			}
		}
		if totalKm > maxRouteKm {
			add("route_consistency", SeverityWarning, 10, fmt.Sprintf(
				"total route length %.0f km exceeds %.0f km", totalKm, maxRouteKm))
		}
	}

	// 6. Pending handoffs count once regardless of how many are open
	pending := 0
	for _, ho := range handoffs {
		if ho.Status == models.HandoffPending {
			pending++
		}
	}
	if pending > 0 {
		add("handoff_consistency", SeverityWarning, 10, fmt.Sprintf("%d handoff(s) still pending confirmation", pending))
	}

	// 7. Caller-supplied evidence
	if ev != nil {
		if len(ev.MissingPhotos) > 0 {
			add("photo_evidence", SeverityWarning, 10, "missing photo evidence reported")
		}
		if ev.CertificationMismatch != "" {
			add("certification", SeverityCritical, 40, "certification mismatch: "+ev.CertificationMismatch)
		}
	}

	// 8. Coverage fallback when the batch exists but has no history
	if batch != nil && !hasCheckpoints {
		add("checkpoint_coverage", SeverityWarning, 15, "no checkpoints recorded for this batch")
	}

	return score(flags)
}

func score(flags []Flag) Outcome {
	confidence := maxConfidence
	critical := false
	for _, f := range flags {
		confidence -= f.Deduction
		if f.Severity == SeverityCritical {
			critical = true
		}
	}
	if confidence < minConfidence {
		confidence = minConfidence
	}

	result := models.ResultVerified
	if critical || confidence < 50 {
		result = models.ResultFlagged
	}

	reason := AllPassedReason
	if len(flags) > 0 {
		parts := make([]string, len(flags))
		for i, f := range flags {
			parts[i] = f.render()
		}
		reason = strings.Join(parts, "; ")
	}

	return Outcome{Confidence: confidence, Result: result, Reason: reason, Flags: flags}
}
