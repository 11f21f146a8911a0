// Package gateway reads radio state from fixed-wireless 5G/LTE gateways
// (Arcadyan KVD21 and Nokia FastMile) through their JSON status endpoints.
package gateway

import (
	"context"
	"fmt"
)

// SignalMetrics contains the signal quality metrics from the gateway.
type SignalMetrics struct {
	// RSRP - Reference Signal Received Power (dBm)
	RSRP float64 `json:"rsrp"`
	// RSRQ - Reference Signal Received Quality (dB)
	RSRQ float64 `json:"rsrq"`
	// SINR - Signal to Interference Noise Ratio (dB)
	SINR float64 `json:"sinr"`
	// RSSI - Received Signal Strength Indicator (dBm)
	RSSI float64 `json:"rssi"`
}

// CellInfo identifies the serving cell.
type CellInfo struct {
	PCI       int64  `json:"pci"`
	ENB       int64  `json:"enb"`
	TAC       int64  `json:"tac"`
	Band      int64  `json:"band"`
	Bandwidth string `json:"bandwidth,omitempty"`
}

// Technology is the radio access the gateway is attached with.
type Technology string

const (
	Technology5G  Technology = "5G"
	TechnologyLTE Technology = "LTE"
)

// Status is one read of the gateway radio state.
type Status struct {
	Model      Model         `json:"model"`
	Technology Technology    `json:"technology"`
	Signal     SignalMetrics `json:"signal"`
	Cell       CellInfo      `json:"cell"`
}

// Model is a supported gateway family.
type Model string

const (
	ModelArcadyanKVD21 Model = "arcadyan_kvd21"
	ModelNokia         Model = "nokia"
	ModelAuto          Model = "auto"
)

// ParseModel validates a configured model name. Empty means ModelAuto.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case "", ModelAuto:
		return ModelAuto, nil
	case ModelArcadyanKVD21, ModelNokia:
		return Model(s), nil
	}
	return "", fmt.Errorf("unsupported gateway model %q", s)
}

// Client reads status from one gateway family.
type Client interface {
	Status(ctx context.Context) (*Status, error)
	Model() Model
}
