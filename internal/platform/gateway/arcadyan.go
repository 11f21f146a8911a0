package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

const radioStatusPath = "/fastmile_radio_status_web_app.cgi"

// ArcadyanClient implements Client for the Arcadyan KVD21 gateway.
type ArcadyanClient struct {
	baseURL    string
	httpClient *http.Client
}

type arcadyanRadioStatus struct {
	Cell5GStats  []arcadyanCellStats `json:"cell_5G_stats_cfg"`
	CellLTEStats []arcadyanCellStats `json:"cell_LTE_stats_cfg"`
}

type arcadyanCellStats struct {
	StatRSRP  string `json:"stat_RSRP"`
	StatRSRQ  string `json:"stat_RSRQ"`
	StatRSSI  string `json:"stat_RSSI"`
	StatSNR   string `json:"stat_SNR"`
	StatSINR  string `json:"stat_SINR"`
	StatBand  string `json:"stat_Band"`
	StatPCI   string `json:"stat_PCI"`
	StatENBID string `json:"stat_eNB_ID"`
	StatTAC   string `json:"stat_TAC"`
	PhyCellID string `json:"stat_PhyCellId"`
	Bandwidth string `json:"stat_Bandwidth"`
}

// NewArcadyanClient creates a client for the gateway at baseURL.
func NewArcadyanClient(baseURL string, httpClient *http.Client) *ArcadyanClient {
	return &ArcadyanClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Status reads the radio status CGI. 5G stats win over LTE when they carry
// an RSRP value.
func (c *ArcadyanClient) Status(ctx context.Context) (*Status, error) {
	var radio arcadyanRadioStatus
	if err := getJSON(ctx, c.httpClient, c.baseURL+radioStatusPath, &radio); err != nil {
		return nil, err
	}

	if len(radio.Cell5GStats) == 0 && len(radio.CellLTEStats) == 0 {
		return nil, errNoRadioStats
	}

	status := &Status{Model: ModelArcadyanKVD21, Technology: TechnologyLTE}

	var stats *arcadyanCellStats
	if len(radio.Cell5GStats) > 0 && radio.Cell5GStats[0].StatRSRP != "" {
		stats = &radio.Cell5GStats[0]
		status.Technology = Technology5G
	} else if len(radio.CellLTEStats) > 0 {
		stats = &radio.CellLTEStats[0]
	}

	if stats != nil {
		status.Signal = SignalMetrics{
			RSRP: parseFloat(stats.StatRSRP),
			RSRQ: parseFloat(stats.StatRSRQ),
			RSSI: parseFloat(stats.StatRSSI),
			SINR: parseFloat(stats.StatSNR, stats.StatSINR),
		}
		status.Cell = CellInfo{
			PCI:       parseInt(stats.StatPCI, stats.PhyCellID),
			ENB:       parseInt(stats.StatENBID),
			TAC:       parseInt(stats.StatTAC),
			Band:      parseBand(stats.StatBand),
			Bandwidth: stats.Bandwidth,
		}
	}
	return status, nil
}

// Model returns ModelArcadyanKVD21.
func (c *ArcadyanClient) Model() Model {
	return ModelArcadyanKVD21
}

// parseFloat returns the first value that parses, ignoring unit suffixes.
func parseFloat(values ...string) float64 {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "N/A" {
			continue
		}
		v = strings.Fields(v)[0]
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

// parseInt accepts decimal and 0x-prefixed hex values.
func parseInt(values ...string) int64 {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || v == "N/A" {
			continue
		}
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			if i, err := strconv.ParseInt(v[2:], 16, 64); err == nil {
				return i
			}
		}
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

// parseBand handles "B66", "n41", "b2" and bare numbers.
func parseBand(value string) int64 {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "b")
	value = strings.TrimPrefix(value, "n")
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	return 0
}
