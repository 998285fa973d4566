package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/gossip"
	"github.com/dd0wney/cluso-cluster/pkg/health"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/metrics"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML node config")
	host := flag.String("host", "", "Advertised host (overrides config)")
	port := flag.Int("port", 0, "Membership port (overrides config)")
	httpPort := flag.Int("http", 0, "HTTP port for /metrics and /health (overrides config)")
	seeds := flag.String("seeds", "", "Comma-separated seed addresses host:port (overrides config)")
	group := flag.String("group", "", "Sync group (overrides config)")
	flag.Parse()

	config := DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config = loaded
	}
	if *host != "" {
		config.Host = *host
	}
	if *port != 0 {
		config.Port = *port
	}
	if *httpPort != 0 {
		config.HTTPPort = *httpPort
	}
	if *seeds != "" {
		config.Cluster.SeedMembers = splitSeeds(*seeds)
	}
	if *group != "" {
		config.Cluster.SyncGroup = *group
	}

	logger := logging.DefaultLogger()

	endpoint := transport.NewEndpoint(config.Host, config.Port)
	logger.Info("Starting cluster node",
		logging.EndpointID(endpoint.ID),
		logging.Address(fmt.Sprintf("%s:%d", config.Host, config.Port)),
		logging.SyncGroup(config.Cluster.SyncGroup))

	tr := transport.New(transport.NewNNGSocketFactory(), transport.Config{Endpoint: endpoint}, logger)
	if err := tr.Start(); err != nil {
		log.Fatalf("Failed to start transport: %v", err)
	}
	defer tr.Stop()

	fd, err := fdetector.New(tr, config.Detector, logger)
	if err != nil {
		log.Fatalf("Failed to create failure detector: %v", err)
	}
	if err := fd.Start(); err != nil {
		log.Fatalf("Failed to start failure detector: %v", err)
	}
	defer fd.Stop()

	gp, err := gossip.New(tr, config.Gossip, logger)
	if err != nil {
		log.Fatalf("Failed to create gossip protocol: %v", err)
	}
	if err := gp.Start(); err != nil {
		log.Fatalf("Failed to start gossip protocol: %v", err)
	}
	defer gp.Stop()

	ms, err := cluster.New(tr, fd, gp, config.Cluster, logger)
	if err != nil {
		log.Fatalf("Failed to create membership: %v", err)
	}

	// Log every membership transition
	updates := ms.ListenUpdates(context.Background())
	go func() {
		for value := range updates.Channel() {
			member := value.(cluster.Member)
			logger.Info("Membership update",
				logging.EndpointID(member.ID()),
				logging.Address(fmt.Sprintf("%s:%d", member.Endpoint.Host, member.Endpoint.Port)),
				logging.Status(member.Status.String()))
		}
	}()

	go serveHTTP(config.HTTPPort, ms, logger)

	if err := ms.Start(); err != nil {
		log.Fatalf("Failed to start membership: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down, announcing leave")
	ms.Leave()
	// Give the leave announcement a moment on the wire before teardown
	time.Sleep(2 * config.Gossip.GossipInterval)
	ms.Stop()
}

// serveHTTP exposes metrics, health and a members snapshot
func serveHTTP(port int, ms *cluster.Membership, logger logging.Logger) {
	checker := health.NewHealthChecker()
	membershipCheck := health.MembershipCheck(func() (bool, int, int, int) {
		var trusted, suspected, shutdown int
		localTrusted := false
		for _, member := range ms.Members() {
			switch member.Status {
			case cluster.Trusted:
				trusted++
			case cluster.Suspected:
				suspected++
			case cluster.Shutdown:
				shutdown++
			}
			if ms.IsLocalMember(member) && member.Status == cluster.Trusted {
				localTrusted = true
			}
		}
		return localTrusted, trusted, suspected, shutdown
	})
	checker.RegisterCheck("membership", membershipCheck)
	checker.RegisterCheck("seeds", health.SeedCheck(func() int { return len(ms.SeedMembers()) }))
	checker.RegisterReadinessCheck("membership", membershipCheck)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		metrics.DefaultRegistry().GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/health", checker.HTTPHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ms.Members())
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP listening", logging.Address(addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("HTTP server failed", logging.Error(err))
	}
}

func splitSeeds(csv string) []string {
	parts := strings.Split(csv, ",")
	seeds := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			seeds = append(seeds, trimmed)
		}
	}
	return seeds
}
