package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/gossip"
)

// NodeConfig is the YAML file configuration for one cluster node
type NodeConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	HTTPPort int              `yaml:"http_port"`
	Cluster  cluster.Config   `yaml:"cluster"`
	Detector fdetector.Config `yaml:"fdetector"`
	Gossip   gossip.Config    `yaml:"gossip"`
}

// DefaultNodeConfig returns a runnable single-node configuration
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Host:     "127.0.0.1",
		Port:     7946,
		HTTPPort: 8080,
		Cluster:  cluster.DefaultConfig(),
		Detector: fdetector.DefaultConfig(),
		Gossip:   gossip.DefaultConfig(),
	}
}

// LoadNodeConfig reads a YAML config file over the defaults
func LoadNodeConfig(path string) (NodeConfig, error) {
	config := DefaultNodeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}
