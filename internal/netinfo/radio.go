package netinfo

import (
	"strconv"
	"strings"

	"github.com/HerbHall/netsense/pkg/models"
)

// RadioTech is a cellular data radio-technology code. Values follow the
// Android telephony numbering so codes exchanged with mobile clients match.
type RadioTech int

const (
	RadioUnknown RadioTech = 0
	RadioGPRS    RadioTech = 1
	RadioEDGE    RadioTech = 2
	RadioUMTS    RadioTech = 3
	RadioCDMA    RadioTech = 4
	RadioEVDO0   RadioTech = 5
	RadioEVDOA   RadioTech = 6
	Radio1xRTT   RadioTech = 7
	RadioHSDPA   RadioTech = 8
	RadioHSUPA   RadioTech = 9
	RadioHSPA    RadioTech = 10
	RadioIDEN    RadioTech = 11
	RadioEVDOB   RadioTech = 12
	RadioLTE     RadioTech = 13
	RadioEHRPD   RadioTech = 14
	RadioHSPAP   RadioTech = 15
	RadioGSM     RadioTech = 16
	RadioTDSCDMA RadioTech = 17
	RadioIWLAN   RadioTech = 18
	RadioNR      RadioTech = 20
)

// classification is the radio-technology to generation table. Codes not
// listed here are unrecognized.
var classification = map[RadioTech]models.NetworkGeneration{
	RadioGPRS:  models.Generation2G,
	RadioEDGE:  models.Generation2G,
	RadioCDMA:  models.Generation2G,
	Radio1xRTT: models.Generation2G,
	RadioIDEN:  models.Generation2G,

	RadioUMTS:  models.Generation3G,
	RadioEVDO0: models.Generation3G,
	RadioEVDOA: models.Generation3G,
	RadioHSDPA: models.Generation3G,
	RadioHSUPA: models.Generation3G,
	RadioHSPA:  models.Generation3G,
	RadioEVDOB: models.Generation3G,
	RadioEHRPD: models.Generation3G,
	RadioHSPAP: models.Generation3G,

	RadioLTE:   models.Generation4G,
	RadioIWLAN: models.Generation4G,

	RadioNR: models.Generation5G,
}

var subtypeNames = map[RadioTech]string{
	RadioGPRS:  "GPRS",
	RadioEDGE:  "EDGE",
	RadioCDMA:  "CDMA",
	Radio1xRTT: "1xRTT",
	RadioIDEN:  "IDEN",
	RadioUMTS:  "UMTS",
	RadioEVDO0: "EVDO_0",
	RadioEVDOA: "EVDO_A",
	RadioHSDPA: "HSDPA",
	RadioHSUPA: "HSUPA",
	RadioHSPA:  "HSPA",
	RadioEVDOB: "EVDO_B",
	RadioEHRPD: "EHRPD",
	RadioHSPAP: "HSPA+",
	RadioLTE:   "LTE",
	RadioIWLAN: "IWLAN",
	RadioNR:    "NR",
}

// Classify maps a radio code to its generation bucket. Unrecognized codes
// return Mobile and false.
func Classify(code RadioTech) (models.NetworkGeneration, bool) {
	if g, ok := classification[code]; ok {
		return g, true
	}
	return models.GenerationMobile, false
}

// SubtypeName returns the display name for code, or "Unknown".
func SubtypeName(code RadioTech) string {
	if name, ok := subtypeNames[code]; ok {
		return name
	}
	return "Unknown"
}

// String implements fmt.Stringer.
func (r RadioTech) String() string {
	if name, ok := subtypeNames[r]; ok {
		return name
	}
	switch r {
	case RadioGSM:
		return "GSM"
	case RadioTDSCDMA:
		return "TD_SCDMA"
	case RadioUnknown:
		return "UNKNOWN"
	}
	return "RadioTech(" + strconv.Itoa(int(r)) + ")"
}

// ParseRadioTech accepts either a numeric code or a technology name
// ("LTE", "hspa+", "HSPAP", "5gnr", "nr", ...). Unknown names return
// RadioUnknown and false.
func ParseRadioTech(s string) (RadioTech, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RadioUnknown, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return RadioTech(n), true
	}

	key := strings.ToUpper(s)
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "HSPA+", "HSPAP", "HSPA_PLUS":
		return RadioHSPAP, true
	case "NR", "5GNR", "5G_NR", "NR5G":
		return RadioNR, true
	case "EVDO0", "EVDO_0", "EVDOREV0", "EVDO_REV0":
		return RadioEVDO0, true
	case "EVDOA", "EVDO_A", "EVDOREVA", "EVDO_REVA":
		return RadioEVDOA, true
	case "EVDOB", "EVDO_B", "EVDOREVB", "EVDO_REVB":
		return RadioEVDOB, true
	case "1XRTT":
		return Radio1xRTT, true
	case "TD_SCDMA", "TDSCDMA":
		return RadioTDSCDMA, true
	case "GSM":
		return RadioGSM, true
	case "UNKNOWN":
		return RadioUnknown, true
	}
	for code, name := range subtypeNames {
		if strings.EqualFold(name, key) {
			return code, true
		}
	}
	return RadioUnknown, false
}
