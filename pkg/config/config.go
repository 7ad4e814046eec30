// Package config loads a node's startup configuration from an optional
// YAML file, with environment-variable and command-line overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything cmd/flowmesh needs to start one node. It
// mirrors the teacher's flat manager.Config shape, extended with the
// addresses and partition count this core's node command exposes as
// flags.
type Config struct {
	NodeId            string `yaml:"nodeId"`
	DataDir           string `yaml:"dataDir"`
	RaftAddr          string `yaml:"raftAddr"`
	ManagementAddr    string `yaml:"managementAddr"`
	MetricsAddr       string `yaml:"metricsAddr"`
	SystemPartitionId int32  `yaml:"systemPartitionId"`
	PartitionCount    int32  `yaml:"partitionCount"`
}

// Default returns the same baseline values cmd/flowmesh uses as its flag
// defaults, so a Config loaded without a file still boots a single node.
func Default() Config {
	return Config{
		NodeId:            "node-1",
		DataDir:           "./flowmesh-data",
		RaftAddr:          "127.0.0.1:7946",
		ManagementAddr:    "127.0.0.1:8080",
		MetricsAddr:       "127.0.0.1:9090",
		SystemPartitionId: 0,
		PartitionCount:    1,
	}
}

// Load reads path, if non-empty, as YAML over Default's values, then
// applies environment-variable overrides. An empty path returns
// Default with environment overrides applied, so a node can run purely
// off the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FLOWMESH_NODE_ID"); v != "" {
		c.NodeId = v
	}
	if v := os.Getenv("FLOWMESH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FLOWMESH_RAFT_ADDR"); v != "" {
		c.RaftAddr = v
	}
	if v := os.Getenv("FLOWMESH_MANAGEMENT_ADDR"); v != "" {
		c.ManagementAddr = v
	}
	if v := os.Getenv("FLOWMESH_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("FLOWMESH_SYSTEM_PARTITION_ID"); v != "" {
		if n, err := parseInt32(v); err == nil {
			c.SystemPartitionId = n
		}
	}
	if v := os.Getenv("FLOWMESH_PARTITION_COUNT"); v != "" {
		if n, err := parseInt32(v); err == nil {
			c.PartitionCount = n
		}
	}
}

func parseInt32(s string) (int32, error) {
	var n int32
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
