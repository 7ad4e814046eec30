package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/flowmesh/pkg/config"
	"github.com/cuemby/flowmesh/pkg/events"
	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/management"
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partition"
	"github.com/cuemby/flowmesh/pkg/reconciler"
	"github.com/cuemby/flowmesh/pkg/topology"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flowmesh",
	Short: "flowmesh - BPMN event-subscription and routing core",
	Long: `flowmesh runs the event-subscription and cross-partition routing
core of a BPMN workflow engine: it delivers event triggers to the right
partition by correlation key and drives boundary events, event
sub-processes, and event-based gateways from them.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"flowmesh version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Node operations",
}

var nodeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run this node, bootstrapping a new system partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyStringFlagOverride(cmd, "node-id", &cfg.NodeId)
		applyStringFlagOverride(cmd, "raft-addr", &cfg.RaftAddr)
		applyStringFlagOverride(cmd, "management-addr", &cfg.ManagementAddr)
		applyStringFlagOverride(cmd, "data-dir", &cfg.DataDir)
		applyStringFlagOverride(cmd, "metrics-addr", &cfg.MetricsAddr)
		applyInt32FlagOverride(cmd, "system-partition-id", &cfg.SystemPartitionId)
		applyInt32FlagOverride(cmd, "partition-count", &cfg.PartitionCount)

		nodeId := cfg.NodeId
		raftAddr := cfg.RaftAddr
		managementAddr := cfg.ManagementAddr
		dataDir := cfg.DataDir
		metricsAddr := cfg.MetricsAddr
		systemPartitionId := cfg.SystemPartitionId
		partitionCount := cfg.PartitionCount
		if partitionCount < 1 {
			partitionCount = 1
		}

		self := model.NodeInfo{
			NodeId:              nodeId,
			SubscriptionAddress: raftAddr,
			ManagementAddress:   managementAddr,
		}

		view := topology.New()
		broker := events.NewBroker()
		broker.Start()

		node := partition.NewNode(nodeId, model.PartitionId(systemPartitionId), view, broker)

		mgr, err := partition.NewManager(partition.Config{
			PartitionId: model.PartitionId(systemPartitionId),
			NodeId:      nodeId,
			RaftAddr:    raftAddr,
			DataDir:     dataDir,
			View:        view,
			EventBroker: broker,
		})
		if err != nil {
			return fmt.Errorf("create partition manager: %w", err)
		}
		if err := mgr.Bootstrap(self); err != nil {
			return fmt.Errorf("bootstrap system partition: %w", err)
		}
		node.Host(mgr)
		fmt.Println("system partition bootstrapped")

		partitionIds := make([]model.PartitionId, partitionCount)
		for i := int32(0); i < partitionCount; i++ {
			partitionIds[i] = model.PartitionId(i)
		}
		node.SetPartitionIds(partitionIds)

		scopeDone := func(scopeKey uint64) (bool, error) {
			instance, err := mgr.Store().ElementInstances().Get(model.Key(scopeKey))
			if err != nil {
				return true, nil
			}
			return instance.State == model.StateTerminated, nil
		}
		recon := reconciler.NewReconciler(mgr.Store(), scopeDone)
		recon.Start()
		fmt.Println("reconciler started")

		metrics.SetVersion(Version)
		metrics.RegisterComponent("raft", true, "bootstrapped")
		metrics.RegisterComponent("management", false, "initializing")
		metrics.RegisterComponent("topology", true, fmt.Sprintf("%d partitions known", len(partitionIds)))

		collector := metrics.NewCollector(node)
		collector.Start()

		go func() {
			http.Handle("/metrics", metrics.Handler())
			http.Handle("/health", metrics.HealthHandler())
			http.Handle("/ready", metrics.ReadyHandler())
			http.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				log.Errorf("metrics server error", err)
			}
		}()
		fmt.Printf("metrics endpoint: http://%s/metrics\n", metricsAddr)

		srv, err := management.NewServer(managementAddr, node)
		if err != nil {
			return fmt.Errorf("create management server: %w", err)
		}
		errCh := make(chan error, 1)
		go func() {
			if err := srv.Serve(); err != nil {
				errCh <- fmt.Errorf("management server error: %w", err)
			}
		}()
		metrics.RegisterComponent("management", true, "ready")
		fmt.Printf("management listening on %s\n", srv.Addr())

		var readOnlySrv *management.Server
		readOnlyAddr, _ := cmd.Flags().GetString("management-readonly-addr")
		if readOnlyAddr != "" {
			readOnlySrv, err = management.NewServer(readOnlyAddr, node, management.ReadOnlyInterceptor())
			if err != nil {
				return fmt.Errorf("create read-only management server: %w", err)
			}
			go func() {
				if err := readOnlySrv.Serve(); err != nil {
					errCh <- fmt.Errorf("read-only management server error: %w", err)
				}
			}()
			fmt.Printf("read-only management listening on %s\n", readOnlySrv.Addr())
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nshutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
		}

		recon.Stop()
		collector.Stop()
		broker.Stop()
		srv.Stop()
		if readOnlySrv != nil {
			readOnlySrv.Stop()
		}
		if err := mgr.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		fmt.Println("shutdown complete")
		return nil
	},
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display a node's management status",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("management-addr")

		c, err := management.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		resp, err := c.FetchCreatedTopics(context.Background(), &management.FetchCreatedTopicsRequest{})
		if err != nil {
			return fmt.Errorf("fetch created topics: %w", err)
		}

		fmt.Printf("Partitions: %d\n", len(resp.PartitionIds))
		for _, id := range resp.PartitionIds {
			fmt.Printf("  - %d\n", id)
		}
		return nil
	},
}

var nodeJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join this node's partition to an existing cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyStringFlagOverride(cmd, "node-id", &cfg.NodeId)
		applyStringFlagOverride(cmd, "raft-addr", &cfg.RaftAddr)
		applyStringFlagOverride(cmd, "management-addr", &cfg.ManagementAddr)
		applyStringFlagOverride(cmd, "data-dir", &cfg.DataDir)
		applyInt32FlagOverride(cmd, "partition-id", &cfg.SystemPartitionId)

		nodeId := cfg.NodeId
		raftAddr := cfg.RaftAddr
		managementAddr := cfg.ManagementAddr
		dataDir := cfg.DataDir
		partitionId := cfg.SystemPartitionId
		leader, _ := cmd.Flags().GetString("leader")
		token, _ := cmd.Flags().GetString("token")

		if token == "" {
			return fmt.Errorf("--token is required")
		}
		if leader == "" {
			return fmt.Errorf("--leader is required")
		}

		self := model.NodeInfo{
			NodeId:              nodeId,
			SubscriptionAddress: raftAddr,
			ManagementAddress:   managementAddr,
		}

		view := topology.New()
		broker := events.NewBroker()
		broker.Start()

		mgr, err := partition.NewManager(partition.Config{
			PartitionId: model.PartitionId(partitionId),
			NodeId:      nodeId,
			RaftAddr:    raftAddr,
			DataDir:     dataDir,
			View:        view,
			EventBroker: broker,
		})
		if err != nil {
			return fmt.Errorf("create partition manager: %w", err)
		}

		if err := mgr.Join(leader, token, self); err != nil {
			return fmt.Errorf("join cluster: %w", err)
		}

		fmt.Println("joined partition", partitionId)
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeRunCmd)
	nodeCmd.AddCommand(nodeStatusCmd)
	nodeCmd.AddCommand(nodeJoinCmd)

	nodeRunCmd.Flags().String("config", "", "Path to a YAML node config file (overridden by FLOWMESH_* env vars and explicit flags)")
	nodeRunCmd.Flags().String("node-id", "node-1", "Unique node ID")
	nodeRunCmd.Flags().String("raft-addr", "127.0.0.1:7946", "Address for Raft communication")
	nodeRunCmd.Flags().String("management-addr", "127.0.0.1:8080", "Address for the management gRPC listener")
	nodeRunCmd.Flags().String("data-dir", "./flowmesh-data", "Data directory for partition state")
	nodeRunCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the metrics/health HTTP listener")
	nodeRunCmd.Flags().Int32("system-partition-id", 0, "Partition ID of the system partition this node bootstraps")
	nodeRunCmd.Flags().Int32("partition-count", 1, "Total number of partitions in the cluster")
	nodeRunCmd.Flags().String("management-readonly-addr", "", "Optional second management listener that only accepts read-only RPCs (empty disables it)")

	nodeStatusCmd.Flags().String("management-addr", "127.0.0.1:8080", "Management address to query")

	nodeJoinCmd.Flags().String("config", "", "Path to a YAML node config file (overridden by FLOWMESH_* env vars and explicit flags)")
	nodeJoinCmd.Flags().String("node-id", "node-2", "Unique node ID")
	nodeJoinCmd.Flags().String("raft-addr", "127.0.0.1:7947", "Address for Raft communication")
	nodeJoinCmd.Flags().String("management-addr", "127.0.0.1:8081", "Address for the management gRPC listener")
	nodeJoinCmd.Flags().String("data-dir", "./flowmesh-data-2", "Data directory for partition state")
	nodeJoinCmd.Flags().String("leader", "", "Leader's management address")
	nodeJoinCmd.Flags().String("token", "", "Join token from the leader")
	nodeJoinCmd.Flags().Int32("partition-id", 0, "Partition ID to join")
	nodeJoinCmd.MarkFlagRequired("leader")
	nodeJoinCmd.MarkFlagRequired("token")
}

// applyStringFlagOverride overwrites *dst with flagName's value only if
// the caller explicitly passed it, so an unset flag leaves the
// config-file/environment value in place.
func applyStringFlagOverride(cmd *cobra.Command, flagName string, dst *string) {
	if !cmd.Flags().Changed(flagName) {
		return
	}
	v, _ := cmd.Flags().GetString(flagName)
	*dst = v
}

// applyInt32FlagOverride is applyStringFlagOverride's int32 counterpart.
func applyInt32FlagOverride(cmd *cobra.Command, flagName string, dst *int32) {
	if !cmd.Flags().Changed(flagName) {
		return
	}
	v, _ := cmd.Flags().GetInt32(flagName)
	*dst = v
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage partition topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the created partition set",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("management-addr")

		c, err := management.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		resp, err := c.FetchCreatedTopics(context.Background(), &management.FetchCreatedTopicsRequest{})
		if err != nil {
			return fmt.Errorf("fetch created topics: %w", err)
		}

		if len(resp.PartitionIds) == 0 {
			fmt.Println("no partitions created")
			return nil
		}
		fmt.Println("PARTITION ID")
		for _, id := range resp.PartitionIds {
			fmt.Printf("%d\n", id)
		}
		return nil
	},
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)
	topicsListCmd.Flags().String("management-addr", "127.0.0.1:8080", "Management address to query")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage cluster join tokens",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a join token for a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("management-addr")
		role, _ := cmd.Flags().GetString("role")

		c, err := management.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		resp, err := c.RequestJoinToken(context.Background(), &management.RequestJoinTokenRequest{Role: role})
		if err != nil {
			return fmt.Errorf("request join token: %w", err)
		}

		fmt.Printf("Join token for %s:\n\n  %s\n\n", role, resp.Token)
		fmt.Println("This token expires in 24 hours.")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd)
	tokenGenerateCmd.Flags().String("management-addr", "127.0.0.1:8080", "Management address to request from")
	tokenGenerateCmd.Flags().String("role", "worker", "Role the token grants (worker, manager)")
}
