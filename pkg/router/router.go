// Package router implements the subscription command router: the
// partition-aware, leader-tracking client that maps a correlation key
// to its owning partition and delivers the five subscription wire
// records to that partition's current leader (spec §4.1).
package router

import (
	"context"
	"strconv"
	"time"

	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/management"
	"github.com/cuemby/flowmesh/pkg/metrics"
	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/cuemby/flowmesh/pkg/partitionkey"
	"github.com/cuemby/flowmesh/pkg/topology"
	"github.com/cuemby/flowmesh/pkg/transport"
)

// fetchCreatedTopicsDeadline is the bootstrap timeout from spec §4.1.
const fetchCreatedTopicsDeadline = 15 * time.Second

// Router delivers subscription commands to the partition leader that
// owns their target state. It is meant to be owned by a single
// partition's actor: every method here runs to completion synchronously
// with respect to its caller except FetchCreatedTopics (spec §5).
type Router struct {
	ownPartitionId model.PartitionId
	view           *topology.View
	transportClient transport.TransportClient
	hasher         *partitionkey.Hasher
}

// New creates a Router for the partition ownPartitionId, using view for
// leader lookups and transportClient to actually deliver commands.
func New(ownPartitionId model.PartitionId, view *topology.View, transportClient transport.TransportClient) *Router {
	return &Router{
		ownPartitionId:  ownPartitionId,
		view:            view,
		transportClient: transportClient,
		hasher:          partitionkey.New(),
	}
}

// HasPartitionIds reports whether the initial topology fetch completed.
func (r *Router) HasPartitionIds() bool {
	return r.view.HasPartitionIds()
}

// SubscriptionPartitionId computes the partition owning correlationKey,
// the same mapping OpenMessageSubscription uses internally. Exposed so
// a caller that opened a subscription can later address a close or
// reject command at the same partition without re-deriving the hash
// itself.
func (r *Router) SubscriptionPartitionId(correlationKey []byte) (model.PartitionId, bool) {
	ids := r.view.PartitionIds()
	if len(ids) == 0 {
		return 0, false
	}
	return r.hasher.Partition(correlationKey, ids), true
}

// OpenMessageSubscription computes the owning partition for
// correlationKey and routes an OpenMessageSubscription command there.
func (r *Router) OpenMessageSubscription(wfInstanceKey, activityKey model.Key, messageName, correlationKey []byte) bool {
	ids := r.view.PartitionIds()
	if len(ids) == 0 {
		return true
	}
	subscriptionPartitionId := r.hasher.Partition(correlationKey, ids)

	cmd := &model.SubscriptionCommand{
		Type:                        model.CommandOpenMessageSubscription,
		SubscriptionPartitionId:     subscriptionPartitionId,
		WorkflowInstancePartitionId: r.ownPartitionId,
		WorkflowInstanceKey:         wfInstanceKey,
		ActivityInstanceKey:         activityKey,
		MessageName:                 messageName,
		CorrelationKey:              correlationKey,
	}
	return r.send(subscriptionPartitionId, cmd)
}

// OpenedMessageSubscription routes the open acknowledgement back to the
// workflow instance's own partition.
func (r *Router) OpenedMessageSubscription(wfInstancePartitionId model.PartitionId, wfInstanceKey, activityKey model.Key, messageName []byte) bool {
	cmd := &model.SubscriptionCommand{
		Type:                        model.CommandOpenedMessageSubscription,
		WorkflowInstancePartitionId: wfInstancePartitionId,
		WorkflowInstanceKey:         wfInstanceKey,
		ActivityInstanceKey:         activityKey,
		MessageName:                 messageName,
	}
	return r.send(wfInstancePartitionId, cmd)
}

// CorrelateWorkflowInstanceSubscription delivers the payload that
// triggers the workflow-side subscription.
func (r *Router) CorrelateWorkflowInstanceSubscription(wfInstancePartitionId model.PartitionId, wfInstanceKey, activityKey model.Key, messageName, payload []byte) bool {
	cmd := &model.SubscriptionCommand{
		Type:                        model.CommandCorrelateWorkflowInstanceSubscription,
		WorkflowInstancePartitionId: wfInstancePartitionId,
		WorkflowInstanceKey:         wfInstanceKey,
		ActivityInstanceKey:         activityKey,
		MessageName:                 messageName,
		Payload:                     payload,
	}
	return r.send(wfInstancePartitionId, cmd)
}

// CloseMessageSubscription routes a close command to the subscription's
// owning partition.
func (r *Router) CloseMessageSubscription(subscriptionPartitionId model.PartitionId, wfInstanceKey, activityKey model.Key, messageName []byte) bool {
	cmd := &model.SubscriptionCommand{
		Type:                    model.CommandCloseMessageSubscription,
		SubscriptionPartitionId: subscriptionPartitionId,
		WorkflowInstanceKey:     wfInstanceKey,
		ActivityInstanceKey:     activityKey,
		MessageName:             messageName,
	}
	return r.send(subscriptionPartitionId, cmd)
}

// RejectCorrelateMessageSubscription tells the subscription's owning
// partition that correlation failed, so it can retry a different
// candidate subscription.
func (r *Router) RejectCorrelateMessageSubscription(subscriptionPartitionId model.PartitionId, wfInstanceKey, activityKey model.Key, messageName []byte) bool {
	cmd := &model.SubscriptionCommand{
		Type:                    model.CommandRejectCorrelateMessageSubscription,
		SubscriptionPartitionId: subscriptionPartitionId,
		WorkflowInstanceKey:     wfInstanceKey,
		ActivityInstanceKey:     activityKey,
		MessageName:             messageName,
	}
	return r.send(subscriptionPartitionId, cmd)
}

// send resolves target's current leader and hands cmd to the
// transport. Per spec R3, an unknown leader is not an error: the
// command is treated as retryable and send reports true without
// transmitting, so the caller's stream processor advances rather than
// blocking or committing ahead of a successful dispatch.
func (r *Router) send(target model.PartitionId, cmd *model.SubscriptionCommand) bool {
	leader, ok := r.view.Leader(target)
	if !ok {
		metrics.PartitionLeaderUnknownTotal.WithLabelValues(strconv.Itoa(int(target))).Inc()
		return true
	}

	remote := r.transportClient.RegisterRemoteAddress(leader.SubscriptionAddress)

	timer := metrics.NewTimer()
	sent := r.transportClient.SendMessage(remote, cmd)
	timer.ObserveDurationVec(metrics.SubscriptionCommandDuration, string(cmd.Type))

	if sent {
		metrics.SubscriptionCommandsSent.WithLabelValues(string(cmd.Type)).Inc()
	} else {
		metrics.SubscriptionCommandsRetried.WithLabelValues(string(cmd.Type)).Inc()
	}
	return sent
}

// FetchCreatedTopics is the one-shot bootstrap that resolves the full
// ordered partition set from the system partition's leader. It retries
// internally until the system partition leader both resolves and
// answers, for up to 15 seconds, then installs the result on view.
func (r *Router) FetchCreatedTopics() error {
	resolver := func() (string, bool) {
		return r.view.SystemPartitionLeader()
	}

	acceptor := func(addr string) (interface{}, bool, error) {
		c, err := management.Dial(addr)
		if err != nil {
			return nil, false, err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := c.FetchCreatedTopics(ctx, &management.FetchCreatedTopicsRequest{})
		if err != nil {
			return nil, false, err
		}
		return resp, true, nil
	}

	result, err := transport.SendRequestWithRetry(resolver, acceptor, fetchCreatedTopicsDeadline)
	if err != nil {
		log.WithComponent("router").Error().Err(err).Msg("fetchCreatedTopics failed to complete within deadline")
		return err
	}

	resp := result.(*management.FetchCreatedTopicsResponse)
	r.view.SetPartitionIds(resp.PartitionIds)
	return nil
}
