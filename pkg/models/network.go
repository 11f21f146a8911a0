package models

// NetworkGeneration is the coarse cellular generation bucket reported to callers.
type NetworkGeneration string

const (
	Generation2G      NetworkGeneration = "2G"
	Generation3G      NetworkGeneration = "3G"
	Generation4G      NetworkGeneration = "4G"
	Generation5G      NetworkGeneration = "5G"
	GenerationMobile  NetworkGeneration = "Mobile"
	GenerationUnknown NetworkGeneration = "Unknown"
)

// Generations lists every bucket in display order.
var Generations = []NetworkGeneration{
	Generation2G,
	Generation3G,
	Generation4G,
	Generation5G,
	GenerationMobile,
	GenerationUnknown,
}

// SignalReading is a WiFi signal level in dBm. A nil DBM means the WiFi
// subsystem could not be queried.
type SignalReading struct {
	DBM *int `json:"dbm"`
}

// Available reports whether the reading carries a value.
func (r SignalReading) Available() bool {
	return r.DBM != nil
}

// Value returns the level and whether it is present.
func (r SignalReading) Value() (int, bool) {
	if r.DBM == nil {
		return 0, false
	}
	return *r.DBM, true
}

// NewSignalReading wraps a raw dBm value.
func NewSignalReading(dbm int) SignalReading {
	return SignalReading{DBM: &dbm}
}

// DetailedNetworkInfo is the detailed mobile network record. Field names
// on the wire match what mobile clients already consume.
type DetailedNetworkInfo struct {
	Type         NetworkGeneration `json:"type"`
	Subtype      *string           `json:"subtype"`
	OperatorName *string           `json:"operatorName"`
	IsRoaming    bool              `json:"isRoaming"`
}

// DefaultDetailedNetworkInfo is the record returned when any lookup fails.
func DefaultDetailedNetworkInfo() DetailedNetworkInfo {
	return DetailedNetworkInfo{Type: GenerationUnknown}
}
