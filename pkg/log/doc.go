/*
Package log provides structured logging for flowmesh using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support
filtering by severity level for production debugging.

# Architecture

flowmesh's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("router")                  │          │
	│  │  - WithNodeID("node-abc123")                │          │
	│  │  - WithPartition(3)                         │          │
	│  │  - WithWorkflowInstance(42)                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "router",                   │          │
	│  │    "time": "2026-07-31T10:30:00Z",          │          │
	│  │    "message": "subscription opened"          │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-31T10:30:00Z INF subscription opened component=router │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all flowmesh packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithNodeID: Add node ID context
  - WithPartition: Add partition ID context
  - WithWorkflowInstance: Add workflow instance key context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "evaluating correlation key against trigger"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "message subscription opened: order-placed"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "discarding deferred record for terminated scope"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "failed to route subscription command: partition unreachable"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "failed to open store: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/flowmesh/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/flowmesh.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("node joined cluster")
	log.Debug("checking partition leadership")
	log.Warn("subscription delivery queue near capacity")
	log.Error("failed to forward subscription command")
	log.Fatal("cannot start without a writable data directory") // Exits process

Structured Logging:

	log.Logger.Info().
		Uint64("workflow_instance_key", 42).
		Str("message_name", "order-placed").
		Msg("message subscription opened")

	log.Logger.Error().
		Err(err).
		Int32("partition_id", 3).
		Msg("failed to apply command to partition")

Component Loggers:

	// Create component-specific logger
	routerLog := log.WithComponent("router")
	routerLog.Info().Msg("starting subscription command router")
	routerLog.Debug().Uint64("workflow_instance_key", 42).Msg("resolved owning partition")

	// Multiple context fields
	subLog := log.WithComponent("bpmn").
		With().Uint64("workflow_instance_key", 42).
		Str("message_name", "order-placed").Logger()
	subLog.Info().Msg("correlating message to open subscription")
	subLog.Error().Err(err).Msg("correlation failed")

Context Logger Helpers:

	// Node-specific logs
	nodeLog := log.WithNodeID("node-abc123")
	nodeLog.Info().Msg("node joined cluster")

	// Partition-specific logs
	partitionLog := log.WithPartition(3)
	partitionLog.Info().Msg("partition became leader")

	// Workflow-instance-specific logs
	instanceLog := log.WithWorkflowInstance(42)
	instanceLog.Info().Msg("message subscription closed")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/flowmesh/pkg/log"
	)

	func main() {
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("flowmesh node starting")

		routerLog := log.WithComponent("router")
		routerLog.Info().
			Int32("partition_id", 1).
			Int("subscriptions_routed", 5).
			Msg("routing pending subscription commands")

		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "transport").
			Msg("failed to reach remote partition leader")

		log.Info("flowmesh node stopped")
	}

# Integration Points

This package integrates with:

  - pkg/partition: logs Raft leadership changes, Apply failures, and
    join/bootstrap lifecycle events.
  - pkg/router: logs subscription command routing decisions and
    cross-partition forwarding.
  - pkg/bpmn: logs event-subscription open/correlate/close transitions.
  - pkg/reconciler: logs deferred-record reconciliation cycles and
    discards.
  - pkg/transport: logs connection retries and delivery failures.
  - pkg/management: logs join-token issuance and topology pushes.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"router","time":"2026-07-31T10:30:00Z","message":"subscription command routed"}
	{"level":"info","component":"bpmn","workflow_instance_key":42,"time":"2026-07-31T10:30:01Z","message":"message subscription opened"}
	{"level":"error","component":"transport","error":"connection refused","time":"2026-07-31T10:30:02Z","message":"failed to deliver subscription command"}

Console Format (Development):

	2026-07-31T10:30:00Z INF subscription command routed component=router
	2026-07-31T10:30:01Z INF message subscription opened component=bpmn workflow_instance_key=42
	2026-07-31T10:30:02Z ERR failed to deliver subscription command component=transport error="connection refused"

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Uint64, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Troubleshooting

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Missing Context Fields:
  - Symptom: Logs missing component, node, or partition fields
  - Cause: Using the global Logger instead of a child logger
  - Solution: Use WithComponent/WithNodeID/WithPartition before logging

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Solution: Use .Str() instead of string interpolation

# Log Rotation

File-Based Logging:

flowmesh doesn't include built-in log rotation. Use external tools:

Logrotate (Linux):

	# /etc/logrotate.d/flowmesh
	/var/log/flowmesh/*.log {
	    daily
	    rotate 7
	    compress
	    delaycompress
	    missingok
	    notifempty
	    copytruncate
	}

Systemd Journal:

	# Automatic rotation by systemd
	journalctl -u flowmesh -f

Kubernetes:

	# JSON logs to stdout, collected by the cluster's log driver.

# Security

Log Content:
  - Never log correlation key values or message payload contents at
    Info level; log their length or a hash instead.
  - Redact tokens before logging join-token issuance or validation.
  - Review logs before sharing externally.

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user-supplied data into log messages
  - Use typed fields (.Str, .Uint64) for user data

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Derive component-specific loggers at package boundaries
  - Log errors with .Err() for consistent error formatting

Don't:
  - Log correlation keys or message payloads at Info level
  - Use Debug level in production
  - Concatenate strings (use .Str, .Uint64)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
