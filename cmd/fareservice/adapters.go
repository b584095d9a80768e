package main

import (
	"time"

	"transit-fares/internal/batch"
	"transit-fares/internal/broker"
	"transit-fares/internal/fares"
	"transit-fares/internal/metrics"
)

// engineMetrics adapts our Collector to fares.Metrics and faresv2.Metrics.
type engineMetrics struct{ c *metrics.Collector }

func (e *engineMetrics) ObserveCalculation(d time.Duration, priced bool) {
	e.c.CalculationDuration.Observe(d.Seconds())
	if priced {
		e.c.Calculations.WithLabelValues("priced").Inc()
	} else {
		e.c.Calculations.WithLabelValues("empty").Inc()
	}
}

func (e *engineMetrics) SegmentPriced(t fares.FareType) { e.c.SegmentsPriced.WithLabelValues(t.String()).Inc() }
func (e *engineMetrics) NegativeCost()                  { e.c.NegativeCosts.Inc() }
func (e *engineMetrics) MalformedTransferRule()         { e.c.MalformedTransfers.Inc() }

// wrapBrokerMetrics adapts our Collector to the broker.Metrics interface.
func wrapBrokerMetrics(c *metrics.Collector) broker.Metrics {
	if c == nil {
		return nil
	}
	return &brokerMetrics{c: c}
}

type brokerMetrics struct{ c *metrics.Collector }

func (b *brokerMetrics) NATSPublishedInc()  { b.c.NATSPublished.Inc() }
func (b *brokerMetrics) NATSPublishErrInc() { b.c.NATSPublishErrs.Inc() }
func (b *brokerMetrics) NATSSetConnected(v bool) {
	if v {
		b.c.NATSConnected.Set(1)
	} else {
		b.c.NATSConnected.Set(0)
	}
}

func (b *brokerMetrics) RequestHandled(kind string, ok bool, d time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	b.c.NATSRequests.WithLabelValues(kind, outcome).Inc()
	b.c.ReplyDuration.Observe(d.Seconds())
}

func wrapBatchMetrics(c *metrics.Collector) batch.Metrics {
	if c == nil {
		return nil
	}
	return &batchMetrics{c: c}
}

type batchMetrics struct{ c *metrics.Collector }

func (b *batchMetrics) BatchStarted(size int)   { b.c.BatchSize.Observe(float64(size)) }
func (b *batchMetrics) BatchInFlight(delta int) { b.c.BatchInFlight.Add(float64(delta)) }
