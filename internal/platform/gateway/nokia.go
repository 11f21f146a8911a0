package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// nokiaEndpoints are tried in order until one answers with JSON.
var nokiaEndpoints = []string{
	radioStatusPath,
	"/api/model/gateway",
	"/api/v1/network/status",
}

// NokiaClient implements Client for Nokia FastMile 5G gateways.
type NokiaClient struct {
	baseURL    string
	httpClient *http.Client
}

type nokiaRadioStatus struct {
	Cell5G  nokiaCellStats `json:"cell_5G_stats"`
	CellLTE nokiaCellStats `json:"cell_LTE_stats"`
}

// Firmware versions disagree on whether numbers are strings, so every
// metric is decoded loosely.
type nokiaCellStats struct {
	RSRP      any    `json:"rsrp"`
	RSRQ      any    `json:"rsrq"`
	RSSI      any    `json:"rssi"`
	SINR      any    `json:"sinr"`
	SNR       any    `json:"snr"`
	Band      any    `json:"band"`
	PCI       any    `json:"pci"`
	CellID    any    `json:"cid"`
	Bandwidth any    `json:"bandwidth"`
	TAC       any    `json:"tac"`
	State     string `json:"state"`
}

// NewNokiaClient creates a client for the gateway at baseURL.
func NewNokiaClient(baseURL string, httpClient *http.Client) *NokiaClient {
	return &NokiaClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Status reads the first endpoint that answers. 5G stats win when the 5G
// cell is connected or carries a plausible RSRP.
func (c *NokiaClient) Status(ctx context.Context) (*Status, error) {
	radio, err := c.radioStatus(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{Model: ModelNokia, Technology: TechnologyLTE}

	var stats *nokiaCellStats
	if radio.Cell5G.State == "connected" || hasValidSignal(&radio.Cell5G) {
		stats = &radio.Cell5G
		status.Technology = Technology5G
	} else if radio.CellLTE.State == "connected" || hasValidSignal(&radio.CellLTE) {
		stats = &radio.CellLTE
	}

	if stats != nil {
		sinr := parseNumeric(stats.SINR)
		if sinr == 0 {
			sinr = parseNumeric(stats.SNR)
		}
		status.Signal = SignalMetrics{
			RSRP: parseNumeric(stats.RSRP),
			RSRQ: parseNumeric(stats.RSRQ),
			RSSI: parseNumeric(stats.RSSI),
			SINR: sinr,
		}
		status.Cell = CellInfo{
			PCI:  int64(parseNumeric(stats.PCI)),
			ENB:  int64(parseNumeric(stats.CellID)),
			TAC:  int64(parseNumeric(stats.TAC)),
			Band: parseBandValue(stats.Band),
		}
		if stats.Bandwidth != nil {
			status.Cell.Bandwidth = fmt.Sprintf("%v", stats.Bandwidth)
		}
	}
	return status, nil
}

// Model returns ModelNokia.
func (c *NokiaClient) Model() Model {
	return ModelNokia
}

func (c *NokiaClient) radioStatus(ctx context.Context) (*nokiaRadioStatus, error) {
	var errs []error
	for _, endpoint := range nokiaEndpoints {
		var raw map[string]any
		if err := getJSON(ctx, c.httpClient, c.baseURL+endpoint, &raw); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		radio, ok := parseNokiaStatus(raw)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", endpoint, errNoRadioStats))
			continue
		}
		return &radio, nil
	}
	return nil, fmt.Errorf("nokia gateway: %w", errors.Join(errs...))
}

// parseNokiaStatus accepts both the cell_*_stats layout and the short
// 5g/lte keys used by newer firmware. It reports false when neither cell
// is present.
func parseNokiaStatus(data map[string]any) (nokiaRadioStatus, bool) {
	var out nokiaRadioStatus
	found := false
	for _, key := range []string{"cell_5G_stats", "5g"} {
		if m, ok := data[key].(map[string]any); ok {
			out.Cell5G = toNokiaCellStats(m)
			found = true
			break
		}
	}
	for _, key := range []string{"cell_LTE_stats", "lte"} {
		if m, ok := data[key].(map[string]any); ok {
			out.CellLTE = toNokiaCellStats(m)
			found = true
			break
		}
	}
	return out, found
}

func toNokiaCellStats(data map[string]any) nokiaCellStats {
	stats := nokiaCellStats{
		RSRP:      data["rsrp"],
		RSRQ:      data["rsrq"],
		RSSI:      data["rssi"],
		SINR:      data["sinr"],
		SNR:       data["snr"],
		Band:      data["band"],
		PCI:       data["pci"],
		CellID:    data["cid"],
		TAC:       data["tac"],
		Bandwidth: data["bandwidth"],
	}
	if s, ok := data["state"].(string); ok {
		stats.State = s
	}
	return stats
}

func hasValidSignal(stats *nokiaCellStats) bool {
	rsrp := parseNumeric(stats.RSRP)
	return rsrp != 0 && rsrp > -200
}

// parseNumeric handles the numeric shapes the gateway API produces.
func parseNumeric(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case json.Number:
		f, _ := val.Float64()
		return f
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		val = strings.TrimSpace(val)
		if val == "null" {
			return 0
		}
		return parseFloat(val)
	}
	return 0
}

func parseBandValue(v any) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int:
		return int64(val)
	case int64:
		return val
	case string:
		return parseBand(val)
	}
	return 0
}
