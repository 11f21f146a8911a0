package netinfo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/netsense/internal/channel"
	"github.com/HerbHall/netsense/internal/config"
	"github.com/HerbHall/netsense/internal/testutil"
	"github.com/HerbHall/netsense/pkg/plugin"
)

func invoke(t *testing.T, reg *channel.Registry, name, method string) string {
	t.Helper()
	env := reg.Invoke(context.Background(), name, channel.MethodCall{Method: method}).Envelope()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return string(raw)
}

func TestChannels(t *testing.T) {
	f, _ := newTestFacade(lteServices(), &fakeGate{granted: true})
	reg := channel.NewRegistry()
	require.NoError(t, RegisterChannels(reg, f))

	tests := []struct {
		name    string
		channel string
		method  string
		want    string
	}{
		{"wifi", ChannelWifi, "getWifiSignalStrength", `{"result":-61}`},
		{"wifi alias", ChannelWifiAlt, "getWifiSignalStrength", `{"result":-61}`},
		{"wifi unknown method", ChannelWifi, "getFrequency", `{"notImplemented":true}`},
		{"network type", ChannelNetwork, "getMobileNetworkType", `{"result":"4G"}`},
		{"detailed", ChannelNetwork, "getDetailedNetworkInfo",
			`{"result":{"type":"4G","subtype":"LTE","operatorName":"Movistar","isRoaming":false}}`},
		{"network unknown method", ChannelNetwork, "getCellId", `{"notImplemented":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, invoke(t, reg, tt.channel, tt.method))
		})
	}
}

func TestChannelsDegraded(t *testing.T) {
	f, _ := newTestFacade(Services{}, &fakeGate{decision: false})
	reg := channel.NewRegistry()
	require.NoError(t, RegisterChannels(reg, f))

	assert.JSONEq(t,
		`{"error":{"code":"UNAVAILABLE","message":"WiFi signal level unavailable","details":null}}`,
		invoke(t, reg, ChannelWifi, "getWifiSignalStrength"))
	assert.JSONEq(t, `{"result":"Mobile"}`, invoke(t, reg, ChannelNetwork, "getMobileNetworkType"))
	assert.JSONEq(t,
		`{"result":{"type":"Unknown","subtype":null,"operatorName":null,"isRoaming":false}}`,
		invoke(t, reg, ChannelNetwork, "getDetailedNetworkInfo"))
}

func TestRegisterChannelsTwiceFails(t *testing.T) {
	f, _ := newTestFacade(lteServices(), nil)
	reg := channel.NewRegistry()
	require.NoError(t, RegisterChannels(reg, f))
	assert.Error(t, RegisterChannels(reg, f))
}

func newTestPlugin(t *testing.T, svc Services, gate PermissionGate) (*Plugin, http.Handler) {
	t.Helper()
	f, _ := newTestFacade(svc, gate)
	p := NewPlugin(f)
	require.NoError(t, p.Init(context.Background(), plugin.Dependencies{
		Config: config.New(nil),
		Logger: testutil.Logger(t),
	}))

	mux := http.NewServeMux()
	for _, route := range p.Routes() {
		mux.HandleFunc(route.Method+" /api/v1/netinfo"+route.Path, route.Handler)
	}
	return p, mux
}

func TestPluginRoutes(t *testing.T) {
	_, h := newTestPlugin(t, lteServices(), nil)

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/netinfo/wifi-signal", `{"dbm":-61}`},
		{"/api/v1/netinfo/mobile-network-type", `{"type":"4G"}`},
		{"/api/v1/netinfo/detailed", `{"type":"4G","subtype":"LTE","operatorName":"Movistar","isRoaming":false}`},
		{"/api/v1/netinfo/generation", `{"generation":"4G","reason":"none","radio_tech":13}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestPluginWifiUnavailable(t *testing.T) {
	_, h := newTestPlugin(t, Services{Wifi: &fakeWifi{err: errBoom}}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/netinfo/wifi-signal", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestPluginGenerationDenied(t *testing.T) {
	_, h := newTestPlugin(t, lteServices(), &fakeGate{decision: false})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/netinfo/generation", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"generation":"Mobile","reason":"permission_denied"}`, w.Body.String())
}

func TestPluginHealth(t *testing.T) {
	p, _ := newTestPlugin(t, lteServices(), nil)
	assert.Equal(t, "ok", p.Health(context.Background()).Status)

	p, _ = newTestPlugin(t, Services{Wifi: &fakeWifi{}}, nil)
	h := p.Health(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "no provider for connectivity, telephony", h.Message)
}
