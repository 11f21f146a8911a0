package modemmanager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/netinfo"
	"github.com/HerbHall/netsense/pkg/models"
)

const connectedLTE = `{
  "modem": {
    "3gpp": {"operator-name": "Movistar", "registration-state": "home", "operator-code": "21407"},
    "generic": {"access-technologies": ["umts", "lte"], "state": "connected", "signal-quality": {"value": "70"}}
  }
}`

const roaming5G = `{
  "modem": {
    "3gpp": {"operator-name": "--", "registration-state": "roaming"},
    "generic": {"access-technologies": ["lte", "5gnr"], "state": "registered"}
  }
}`

const registeredNoTech = `{
  "modem": {
    "3gpp": {"operator-name": "Movistar", "registration-state": "home"},
    "generic": {"access-technologies": [], "state": "registered"}
  }
}`

const searching = `{
  "modem": {
    "3gpp": {"operator-name": "--", "registration-state": "searching"},
    "generic": {"access-technologies": [], "state": "searching"}
  }
}`

func fixedRunner(out string, err error) (Runner, *[]string) {
	var calls []string
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name)
		calls = append(calls, args...)
		return []byte(out), err
	}, &calls
}

func TestParseModem(t *testing.T) {
	m, err := ParseModem([]byte(roaming5G))
	require.NoError(t, err)
	assert.Equal(t, "", m.ThreeGPP.OperatorName)
	assert.Equal(t, "roaming", m.ThreeGPP.RegistrationState)
	assert.True(t, m.Attached())

	_, err = ParseModem([]byte(`{"modem-list": []}`))
	assert.Error(t, err)

	_, err = ParseModem([]byte(`not json`))
	assert.Error(t, err)
}

func TestTechnologies(t *testing.T) {
	tests := []struct {
		name      string
		techs     []string
		wantFirst netinfo.RadioTech
		wantBest  netinfo.RadioTech
	}{
		{name: "lte over umts", techs: []string{"umts", "lte"}, wantFirst: netinfo.RadioUMTS, wantBest: netinfo.RadioLTE},
		{name: "nsa 5g", techs: []string{"lte", "5gnr"}, wantFirst: netinfo.RadioLTE, wantBest: netinfo.RadioNR},
		{name: "hspa plus", techs: []string{"hspa-plus"}, wantFirst: netinfo.RadioHSPAP, wantBest: netinfo.RadioHSPAP},
		{name: "gsm only", techs: []string{"gsm"}, wantFirst: netinfo.RadioGSM, wantBest: netinfo.RadioGSM},
		{name: "unknown name", techs: []string{"pots"}, wantFirst: netinfo.RadioUnknown, wantBest: netinfo.RadioUnknown},
		{name: "cat-m", techs: []string{"lte-cat-m"}, wantFirst: netinfo.RadioLTE, wantBest: netinfo.RadioLTE},
		{name: "empty", techs: nil, wantFirst: netinfo.RadioUnknown, wantBest: netinfo.RadioUnknown},
		{name: "placeholder", techs: []string{"--"}, wantFirst: netinfo.RadioUnknown, wantBest: netinfo.RadioUnknown},
		{name: "placeholder then lte", techs: []string{"--", "lte"}, wantFirst: netinfo.RadioLTE, wantBest: netinfo.RadioLTE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Modem
			m.Generic.AccessTechnologies = tt.techs

			assert.Equal(t, tt.wantFirst, m.FirstTechnology())
			assert.Equal(t, tt.wantBest, m.BestTechnology())
		})
	}
}

func TestProviderRunsMmcli(t *testing.T) {
	run, calls := fixedRunner(connectedLTE, nil)
	p := NewProvider("/usr/bin/mmcli", 2, run)
	ctx := context.Background()

	transport, err := p.ActiveNetworkType(ctx)
	require.NoError(t, err)
	assert.Equal(t, netinfo.TransportCellular, transport)
	assert.Equal(t, []string{"/usr/bin/mmcli", "-m", "2", "-J"}, *calls)

	legacy, err := p.NetworkType(ctx)
	require.NoError(t, err)
	assert.Equal(t, netinfo.RadioUMTS, legacy)

	data, err := p.DataNetworkType(ctx)
	require.NoError(t, err)
	assert.Equal(t, netinfo.RadioLTE, data)

	op, err := p.OperatorName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Movistar", op)

	roaming, err := p.IsRoaming(ctx)
	require.NoError(t, err)
	assert.False(t, roaming)
}

func TestProviderNotAttached(t *testing.T) {
	run, _ := fixedRunner(searching, nil)
	p := NewProvider("", 0, run)

	transport, err := p.ActiveNetworkType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, netinfo.TransportNone, transport)
}

func TestProviderRunnerError(t *testing.T) {
	run, _ := fixedRunner("", errors.New("mmcli: exit status 1: couldn't find modem"))
	p := NewProvider("", 0, run)

	_, err := p.OperatorName(context.Background())
	assert.ErrorContains(t, err, "query modem 0")
}

func TestFacadeWithModemManager(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want models.DetailedNetworkInfo
	}{
		{
			name: "home lte",
			out:  connectedLTE,
			want: models.DetailedNetworkInfo{Type: models.Generation4G, Subtype: ptr("LTE"), OperatorName: ptr("Movistar")},
		},
		{
			name: "roaming 5g without operator",
			out:  roaming5G,
			want: models.DetailedNetworkInfo{Type: models.Generation5G, Subtype: ptr("NR"), OperatorName: ptr("Unknown"), IsRoaming: true},
		},
		{
			name: "registered without technology",
			out:  registeredNoTech,
			want: models.DetailedNetworkInfo{Type: models.GenerationMobile, Subtype: ptr("Unknown"), OperatorName: ptr("Movistar")},
		},
		{
			name: "searching",
			out:  searching,
			want: models.DetailedNetworkInfo{Type: models.GenerationUnknown, Subtype: ptr("Unknown"), OperatorName: ptr("Unknown")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, _ := fixedRunner(tt.out, nil)
			p := NewProvider("", 0, run)
			f := netinfo.New(netinfo.Services{Connectivity: p, Telephony: p}, nil, nil, zap.NewNop())
			assert.Equal(t, tt.want, f.DetailedInfo(context.Background()))
		})
	}
}

func TestClassifyRegisteredWithoutTechnology(t *testing.T) {
	run, _ := fixedRunner(registeredNoTech, nil)
	p := NewProvider("", 0, run)
	f := netinfo.New(netinfo.Services{Connectivity: p, Telephony: p}, nil, nil, zap.NewNop())

	res := f.ClassifyGeneration(context.Background())
	assert.Equal(t, models.GenerationMobile, res.Generation)
	assert.Equal(t, netinfo.ReasonUnrecognizedCode, res.Reason)
	require.NotNil(t, res.RadioTech)
	assert.Equal(t, netinfo.RadioUnknown, *res.RadioTech)
}

func ptr(s string) *string { return &s }
