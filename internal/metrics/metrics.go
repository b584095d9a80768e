package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Calculations        *prometheus.CounterVec // result label: priced|empty
	CalculationDuration prometheus.Histogram
	SegmentsPriced      *prometheus.CounterVec // fare_type label
	NegativeCosts       prometheus.Counter
	MalformedTransfers  prometheus.Counter

	NATSRequests    *prometheus.CounterVec // kind label: itinerary|batch, outcome label: ok|error
	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	ReplyDuration   prometheus.Histogram

	CatalogReloads *prometheus.CounterVec // reason label: startup|update|ping_failure
	CatalogRules   *prometheus.GaugeVec   // kind label: v1|v2_leg|v2_transfer

	BatchInFlight prometheus.Gauge
	BatchSize     prometheus.Histogram

	RefreshInterval  prometheus.Gauge // seconds
	BatchConcurrency prometheus.Gauge
}

func NewCollector(refreshInterval time.Duration, batchConcurrency int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fares_calculations_total",
			Help: "Itineraries priced, by whether any fare was found.",
		}, []string{"result"}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fares_calculation_duration_seconds",
			Help:    "Duration of a single itinerary fare calculation.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		SegmentsPriced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fares_segments_priced_total",
			Help: "Priced leg segments emitted, by fare type.",
		}, []string{"fare_type"}),
		NegativeCosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_negative_costs_total",
			Help: "Negative leg-range costs discarded during the fare search.",
		}),
		MalformedTransfers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_malformed_transfer_rules_total",
			Help: "Transfer rules ignored because a leg group did not resolve.",
		}),
		NATSRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fares_nats_requests_total",
			Help: "NATS pricing requests handled.",
		}, []string{"kind", "outcome"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fares_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fares_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		ReplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fares_nats_reply_duration_seconds",
			Help:    "Duration to decode, price and reply to a NATS request.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		CatalogReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fares_catalog_reloads_total",
			Help: "Number of fare catalog loads.",
		}, []string{"reason"}),
		CatalogRules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fares_catalog_rules",
			Help: "Rules in the live fare catalog.",
		}, []string{"kind"}),
		BatchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fares_batch_in_flight",
			Help: "Itineraries of batch requests currently being priced.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fares_batch_size",
			Help:    "Itineraries per batch request.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fares_catalog_refresh_interval_seconds",
			Help: "Catalog refresh interval in seconds.",
		}),
		BatchConcurrency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fares_batch_concurrency",
			Help: "Maximum itineraries priced in parallel per batch.",
		}),
	}

	// Register
	reg.MustRegister(
		c.Calculations, c.CalculationDuration, c.SegmentsPriced, c.NegativeCosts, c.MalformedTransfers,
		c.NATSRequests, c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.ReplyDuration,
		c.CatalogReloads, c.CatalogRules,
		c.BatchInFlight, c.BatchSize,
		c.RefreshInterval, c.BatchConcurrency,
	)

	// Set static gauges
	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.BatchConcurrency.Set(float64(batchConcurrency))

	return c
}

// SetCatalogSize records the rule counts of the catalog just swapped in.
func (c *Collector) SetCatalogSize(v1, v2Legs, v2Transfers int) {
	c.CatalogRules.WithLabelValues("v1").Set(float64(v1))
	c.CatalogRules.WithLabelValues("v2_leg").Set(float64(v2Legs))
	c.CatalogRules.WithLabelValues("v2_transfer").Set(float64(v2Transfers))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "err", err)
		}
	}()
	slog.Info("metrics listening", "addr", addr)
	return srv
}
