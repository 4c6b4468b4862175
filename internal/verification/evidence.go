package verification

import (
	"encoding/json"
	"fmt"
)

// ParseEvidence decodes the caller-supplied evidence object into the
// closed Evidence set. Unrecognized keys are a validation error rather
// than silently ignored, so typos surface to the caller.
func ParseEvidence(raw map[string]json.RawMessage) (*Evidence, error) {
	if raw == nil {
		return nil, nil
	}

	ev := &Evidence{}
	for key, val := range raw {
		switch key {
		case "missingPhotos":
			if err := json.Unmarshal(val, &ev.MissingPhotos); err != nil {
				return nil, fmt.Errorf("Invalid evidence field: missingPhotos must be a string array")
			}
		case "certificationMismatch":
			if err := json.Unmarshal(val, &ev.CertificationMismatch); err != nil {
				return nil, fmt.Errorf("Invalid evidence field: certificationMismatch must be a string")
			}
		default:
			return nil, fmt.Errorf("Unrecognized evidence field: %s", key)
		}
	}
	return ev, nil
}
