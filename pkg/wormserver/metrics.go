package wormserver

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics is a struct of *metrics.Counter/*metrics.Histogram fields
// built once against a private *metrics.Set, so every counter shows up in
// WritePrometheus output even while still at zero.
type serverMetrics struct {
	set *metrics.Set

	ticksTotal            *metrics.Counter
	tickDurationSeconds   *metrics.Histogram
	eventsEmittedTotal    *metrics.Counter
	clientsTableSize      *metrics.Gauge
	gamesStartedTotal     *metrics.Counter
	datagramsRxTotal      *metrics.Counter
	datagramsRxDropped    *metrics.Counter
	datagramsTxTotal      *metrics.Counter
	datagramsTxErrors     *metrics.Counter
	fanOutDurationSeconds *metrics.Histogram
	clientsReapedTotal    *metrics.Counter
}

func newServerMetrics(tableSize func() float64) *serverMetrics {
	m := &serverMetrics{set: metrics.NewSet()}
	m.ticksTotal = m.set.NewCounter(`wormwire_server_ticks_total`)
	m.tickDurationSeconds = m.set.NewHistogram(`wormwire_server_tick_duration_seconds`)
	m.eventsEmittedTotal = m.set.NewCounter(`wormwire_server_events_emitted_total`)
	m.gamesStartedTotal = m.set.NewCounter(`wormwire_server_games_started_total`)
	m.datagramsRxTotal = m.set.NewCounter(`wormwire_server_datagrams_rx_total`)
	m.datagramsRxDropped = m.set.NewCounter(`wormwire_server_datagrams_rx_dropped_total`)
	m.datagramsTxTotal = m.set.NewCounter(`wormwire_server_datagrams_tx_total`)
	m.datagramsTxErrors = m.set.NewCounter(`wormwire_server_datagrams_tx_errors_total`)
	m.fanOutDurationSeconds = m.set.NewHistogram(`wormwire_server_fanout_duration_seconds`)
	m.clientsReapedTotal = m.set.NewCounter(`wormwire_server_clients_reaped_total`)
	m.clientsTableSize = m.set.GetOrCreateGauge(`wormwire_server_clients_table_size`, tableSize)
	return m
}

// WritePrometheus writes the server's metrics in Prometheus text format
// for the /debug/metrics endpoint.
func (s *Server) WritePrometheus(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}
