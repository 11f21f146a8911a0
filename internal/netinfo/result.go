package netinfo

import "github.com/HerbHall/netsense/pkg/models"

// Reason explains how a generation result was reached.
type Reason string

const (
	ReasonNone             Reason = "none"
	ReasonNotCellular      Reason = "not_cellular"
	ReasonUnrecognizedCode Reason = "unrecognized_code"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonLookupFailed     Reason = "lookup_failed"
)

// GenerationResult is a classification together with the reason behind it,
// so callers can tell an unclassified cellular network from a failed lookup
// even though both report Mobile.
type GenerationResult struct {
	Generation models.NetworkGeneration `json:"generation"`
	Reason     Reason                   `json:"reason"`
	RadioTech  *RadioTech               `json:"radio_tech,omitempty"`
}

// Degraded reports whether the generation is a fallback rather than a read.
func (r GenerationResult) Degraded() bool {
	return r.Reason == ReasonLookupFailed || r.Reason == ReasonPermissionDenied
}

func fallback(reason Reason) GenerationResult {
	return GenerationResult{Generation: models.GenerationMobile, Reason: reason}
}
