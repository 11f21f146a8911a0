// Package metrics exposes network info as Prometheus metrics. Values are
// read from the facade on each scrape.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/netinfo"
	"github.com/HerbHall/netsense/internal/platform/gateway"
	"github.com/HerbHall/netsense/pkg/models"
)

const namespace = "netsense"

// DefaultScrapeTimeout bounds the provider reads of one scrape.
const DefaultScrapeTimeout = 10 * time.Second

// Reader is the facade as seen by the collector.
type Reader interface {
	WifiSignalStrength(ctx context.Context) models.SignalReading
	ClassifyGeneration(ctx context.Context) netinfo.GenerationResult
	DetailedInfo(ctx context.Context) models.DetailedNetworkInfo
}

// StatusSource reads raw gateway radio state.
type StatusSource interface {
	Status(ctx context.Context) (*gateway.Status, error)
}

// Collector implements prometheus.Collector for NetSense readings.
type Collector struct {
	reader  Reader
	gateway StatusSource
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex

	wifiDBMDesc       *prometheus.Desc
	wifiAvailableDesc *prometheus.Desc
	generationDesc    *prometheus.Desc
	roamingDesc       *prometheus.Desc

	rsrpDesc           *prometheus.Desc
	rsrqDesc           *prometheus.Desc
	sinrDesc           *prometheus.Desc
	rssiDesc           *prometheus.Desc
	gatewayUpDesc      *prometheus.Desc
	scrapeDurationDesc *prometheus.Desc
}

// NewCollector creates a Collector. gw may be nil when no gateway serves
// the telephony handle.
func NewCollector(reader Reader, gw StatusSource, logger *zap.Logger) *Collector {
	gatewayLabels := []string{"model", "technology"}

	return &Collector{
		reader:  reader,
		gateway: gw,
		timeout: DefaultScrapeTimeout,
		logger:  logger,

		wifiDBMDesc: prometheus.NewDesc(
			namespace+"_wifi_signal_dbm",
			"WiFi signal level in dBm",
			nil, nil,
		),
		wifiAvailableDesc: prometheus.NewDesc(
			namespace+"_wifi_signal_available",
			"Whether a WiFi signal level could be read",
			nil, nil,
		),
		generationDesc: prometheus.NewDesc(
			namespace+"_mobile_generation",
			"Current mobile network generation bucket (1 for the active bucket)",
			[]string{"generation"}, nil,
		),
		roamingDesc: prometheus.NewDesc(
			namespace+"_mobile_roaming",
			"Whether the device is roaming",
			nil, nil,
		),

		rsrpDesc: prometheus.NewDesc(
			namespace+"_gateway_signal_rsrp",
			"Reference Signal Received Power in dBm",
			gatewayLabels, nil,
		),
		rsrqDesc: prometheus.NewDesc(
			namespace+"_gateway_signal_rsrq",
			"Reference Signal Received Quality in dB",
			gatewayLabels, nil,
		),
		sinrDesc: prometheus.NewDesc(
			namespace+"_gateway_signal_sinr",
			"Signal to Interference Noise Ratio in dB",
			gatewayLabels, nil,
		),
		rssiDesc: prometheus.NewDesc(
			namespace+"_gateway_signal_rssi",
			"Received Signal Strength Indicator in dBm",
			gatewayLabels, nil,
		),
		gatewayUpDesc: prometheus.NewDesc(
			namespace+"_gateway_up",
			"Whether the last gateway status read succeeded",
			nil, nil,
		),
		scrapeDurationDesc: prometheus.NewDesc(
			namespace+"_scrape_duration_seconds",
			"Duration of the last scrape in seconds",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.wifiDBMDesc
	ch <- c.wifiAvailableDesc
	ch <- c.generationDesc
	ch <- c.roamingDesc
	ch <- c.scrapeDurationDesc
	if c.gateway != nil {
		ch <- c.rsrpDesc
		ch <- c.rsrqDesc
		ch <- c.sinrDesc
		ch <- c.rssiDesc
		ch <- c.gatewayUpDesc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		ch <- prometheus.MustNewConstMetric(c.scrapeDurationDesc, prometheus.GaugeValue, v)
	}))
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	reading := c.reader.WifiSignalStrength(ctx)
	if dbm, ok := reading.Value(); ok {
		ch <- prometheus.MustNewConstMetric(c.wifiDBMDesc, prometheus.GaugeValue, float64(dbm))
		ch <- prometheus.MustNewConstMetric(c.wifiAvailableDesc, prometheus.GaugeValue, 1)
	} else {
		ch <- prometheus.MustNewConstMetric(c.wifiAvailableDesc, prometheus.GaugeValue, 0)
	}

	current := c.reader.ClassifyGeneration(ctx).Generation
	for _, g := range models.Generations {
		ch <- prometheus.MustNewConstMetric(c.generationDesc, prometheus.GaugeValue, boolValue(g == current), string(g))
	}

	ch <- prometheus.MustNewConstMetric(c.roamingDesc, prometheus.GaugeValue, boolValue(c.reader.DetailedInfo(ctx).IsRoaming))

	if c.gateway != nil {
		c.collectGateway(ctx, ch)
	}
}

func (c *Collector) collectGateway(ctx context.Context, ch chan<- prometheus.Metric) {
	status, err := c.gateway.Status(ctx)
	if err != nil {
		c.logger.Warn("gateway status read failed", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.gatewayUpDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.gatewayUpDesc, prometheus.GaugeValue, 1)

	model, tech := string(status.Model), string(status.Technology)
	ch <- prometheus.MustNewConstMetric(c.rsrpDesc, prometheus.GaugeValue, status.Signal.RSRP, model, tech)
	ch <- prometheus.MustNewConstMetric(c.rsrqDesc, prometheus.GaugeValue, status.Signal.RSRQ, model, tech)
	ch <- prometheus.MustNewConstMetric(c.sinrDesc, prometheus.GaugeValue, status.Signal.SINR, model, tech)
	ch <- prometheus.MustNewConstMetric(c.rssiDesc, prometheus.GaugeValue, status.Signal.RSSI, model, tech)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewRegistry returns a registry holding c plus the Go runtime and process
// collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry, logger *zap.Logger) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
