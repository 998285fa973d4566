package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransportMetrics() {
	r.TransportSentBytes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "transport_sent_bytes_total",
			Help: "Bytes written to the wire after compression",
		},
	)

	r.TransportReceivedBytes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "transport_received_bytes_total",
			Help: "Bytes read from the wire before decompression",
		},
	)

	r.TransportSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_sent_total",
			Help: "Messages sent, by qualifier",
		},
		[]string{"qualifier"},
	)

	r.TransportReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_received_total",
			Help: "Messages received, by qualifier",
		},
		[]string{"qualifier"},
	)

	r.TransportSendErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "transport_send_errors_total",
			Help: "Failed send attempts (no retries are made)",
		},
	)

	r.TransportDecodeErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "transport_decode_errors_total",
			Help: "Incoming frames dropped because they failed to decode",
		},
	)
}
