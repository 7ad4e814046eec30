// Package bpmn implements the per-instance state-machine logic that
// subscribes element scopes to their declared catch events, consumes
// the event triggers the subscription router deposits, and injects
// them into workflow execution at the correct scope with correct
// interruption semantics: boundary events on activities, intermediate
// catch events, event-based gateways, event sub-processes, and
// message/none start events.
//
// Every exported Behavior method here is meant to run on the owning
// partition's single-threaded actor, the same way pkg/router's
// SubscriptionCommandRouter does — no locking happens inside this
// package because nothing here is ever called concurrently with
// itself.
package bpmn
