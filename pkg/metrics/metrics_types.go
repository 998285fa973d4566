package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Cluster membership metrics
	ClusterMembersTotal     prometheus.Gauge
	ClusterMembersByStatus  *prometheus.GaugeVec
	ClusterMergesTotal      *prometheus.CounterVec
	ClusterDeltasTotal      *prometheus.CounterVec
	ClusterRefutationsTotal prometheus.Counter
	ClusterRemovalsTotal    *prometheus.CounterVec

	// Sync metrics
	SyncRoundsTotal      prometheus.Counter
	SyncTimeoutsTotal    prometheus.Counter
	SyncAcksTotal        prometheus.Counter
	SyncRequestsReceived prometheus.Counter
	SyncRoundDuration    prometheus.Histogram

	// Gossip metrics
	GossipSpreadTotal   prometheus.Counter
	GossipSentTotal     prometheus.Counter
	GossipReceivedTotal *prometheus.CounterVec
	GossipQueueSize     prometheus.Gauge
	GossipPeersTotal    prometheus.Gauge

	// Failure detector metrics
	FDetectorProbesTotal   *prometheus.CounterVec
	FDetectorPingReqsTotal prometheus.Counter
	FDetectorVerdictsTotal *prometheus.CounterVec
	FDetectorProbeDuration prometheus.Histogram
	FDetectorPeersTotal    prometheus.Gauge

	// Transport metrics
	TransportSentBytes     prometheus.Counter
	TransportReceivedBytes prometheus.Counter
	TransportSentTotal     *prometheus.CounterVec
	TransportReceivedTotal *prometheus.CounterVec
	TransportSendErrors    prometheus.Counter
	TransportDecodeErrors  prometheus.Counter

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initClusterMetrics()
	r.initSyncMetrics()
	r.initGossipMetrics()
	r.initFDetectorMetrics()
	r.initTransportMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
