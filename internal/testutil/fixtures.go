package testutil

import "github.com/HerbHall/netsense/pkg/models"

// NewDetailedInfo returns an LTE record on a home network, suitable for
// test fixtures. Override individual fields with options.
func NewDetailedInfo(opts ...func(*models.DetailedNetworkInfo)) models.DetailedNetworkInfo {
	subtype := "LTE"
	operator := "Test Carrier"
	d := models.DetailedNetworkInfo{
		Type:         models.Generation4G,
		Subtype:      &subtype,
		OperatorName: &operator,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithType sets the generation bucket.
func WithType(g models.NetworkGeneration) func(*models.DetailedNetworkInfo) {
	return func(d *models.DetailedNetworkInfo) { d.Type = g }
}

// WithSubtype sets the radio subtype name.
func WithSubtype(s string) func(*models.DetailedNetworkInfo) {
	return func(d *models.DetailedNetworkInfo) { d.Subtype = &s }
}

// WithOperator sets the operator display name.
func WithOperator(name string) func(*models.DetailedNetworkInfo) {
	return func(d *models.DetailedNetworkInfo) { d.OperatorName = &name }
}

// WithRoaming sets the roaming flag.
func WithRoaming(roaming bool) func(*models.DetailedNetworkInfo) {
	return func(d *models.DetailedNetworkInfo) { d.IsRoaming = roaming }
}
