/*
Package events provides an in-memory pub/sub bus for observing engine
activity: subscription lifecycle changes, event trigger creation and
consumption, boundary/gateway/sub-process activations, and partition
leadership changes.

The bus is purely observational. Nothing in pkg/router or pkg/bpmn reads
from it; it exists for CLI streaming, audit logging, and tests that want
to assert "this sequence of records was published" without reaching into
internal state.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			log.Printf("%s: %s", event.Type, event.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventTriggerCreated,
		Message: "event trigger written for boundary event 'timeout'",
	})

Publish hands the event to a 100-slot queue and blocks only while that
queue is full (or until the broker stops). Delivery to subscribers is
best-effort: a subscriber with a full buffer skips events rather than
stalling the broadcast loop.
*/
package events
