// Package transport implements the subscription-command wire protocol:
// a persistent, msgpack-framed TCP connection per remote partition
// leader, carrying SubscriptionCommand records with a non-blocking,
// bounded outgoing queue per connection (spec §6 TransportClient).
//
// This mirrors the framing hashicorp/raft's own NetworkTransport uses
// over TCP (a length-delimited msgpack stream via
// github.com/hashicorp/go-msgpack/v2/codec) rather than inventing a
// second wire format for a second purpose.
package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/model"
)

// RemoteAddress identifies a registered peer endpoint. Registration is
// idempotent: calling RegisterRemoteAddress twice for the same address
// returns equal values.
type RemoteAddress struct {
	addr string
}

func (r RemoteAddress) String() string { return r.addr }

// TransportClient is the contract the subscription command router uses
// to reach other partitions' leaders, matching spec.md §6 exactly:
// sendMessage is non-blocking and may refuse under backpressure,
// sendRequestWithRetry retries a request/response exchange against a
// resolver-supplied address until an acceptor is satisfied or a deadline
// elapses, and RegisterRemoteAddress idempotently names an endpoint.
type TransportClient interface {
	SendMessage(remote RemoteAddress, cmd *model.SubscriptionCommand) bool
	SendRequestWithRetry(resolver Resolver, acceptor Acceptor, request interface{}, deadline time.Duration) (interface{}, error)
	RegisterRemoteAddress(addr string) RemoteAddress
}

// Resolver returns the current best-known address for a logical target
// (e.g. "the system partition leader"), or ok=false if unknown yet.
type Resolver func() (addr string, ok bool)

// Acceptor performs one request/response attempt against addr and
// reports whether the response is usable. A false return (or error)
// causes sendRequestWithRetry to try again after re-resolving.
type Acceptor func(addr string) (response interface{}, ok bool, err error)

// SendRequestWithRetry alternates resolver and acceptor calls until the
// acceptor succeeds or deadline elapses, per spec §4.1's bootstrap
// contract for fetchCreatedTopics. It does not itself know how to speak
// any particular RPC — callers close over their own client in acceptor.
func SendRequestWithRetry(resolver Resolver, acceptor Acceptor, deadline time.Duration) (interface{}, error) {
	timeout := time.After(deadline)
	backoff := 100 * time.Millisecond
	const maxBackoff = 2 * time.Second

	for {
		select {
		case <-timeout:
			return nil, fmt.Errorf("request deadline of %s exceeded", deadline)
		default:
		}

		addr, ok := resolver()
		if !ok {
			select {
			case <-timeout:
				return nil, fmt.Errorf("request deadline of %s exceeded: no address resolved", deadline)
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		resp, ok, err := acceptor(addr)
		if err != nil {
			log.WithComponent("transport").Debug().Err(err).Str("addr", addr).Msg("request attempt failed, retrying")
		}
		if ok {
			return resp, nil
		}

		select {
		case <-timeout:
			return nil, fmt.Errorf("request deadline of %s exceeded", deadline)
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// SubscriptionTransport is the TransportClient implementation used for
// the subscription protocol's five wire records. It keeps one
// persistent connection per remote leader and a bounded, non-blocking
// outgoing queue on each.
type SubscriptionTransport struct {
	mu    sync.Mutex
	conns map[string]*conn
}

// NewSubscriptionTransport creates an empty transport. Connections are
// established lazily on first send.
func NewSubscriptionTransport() *SubscriptionTransport {
	return &SubscriptionTransport{conns: make(map[string]*conn)}
}

// RegisterRemoteAddress names an endpoint. Idempotent: it does not dial
// until a message is actually sent to it.
func (t *SubscriptionTransport) RegisterRemoteAddress(addr string) RemoteAddress {
	return RemoteAddress{addr: addr}
}

// SendMessage enqueues cmd on the connection for remote, dialing lazily
// if no connection exists yet. Returns false if the outgoing queue is
// saturated or the connection could not be established — the caller's
// stream processor is expected to replay from its own record of what
// was not yet acknowledged.
func (t *SubscriptionTransport) SendMessage(remote RemoteAddress, cmd *model.SubscriptionCommand) bool {
	c, err := t.connFor(remote.addr)
	if err != nil {
		log.WithComponent("transport").Warn().Err(err).Str("addr", remote.addr).Msg("could not establish subscription connection")
		return false
	}
	return c.enqueue(cmd)
}

// SendRequestWithRetry implements TransportClient by delegating to the
// package-level helper; kept as a method so callers can depend on the
// TransportClient interface alone.
func (t *SubscriptionTransport) SendRequestWithRetry(resolver Resolver, acceptor Acceptor, request interface{}, deadline time.Duration) (interface{}, error) {
	return SendRequestWithRetry(resolver, acceptor, deadline)
}

func (t *SubscriptionTransport) connFor(addr string) (*conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[addr]; ok && !c.closed() {
		return c, nil
	}

	c, err := dial(addr)
	if err != nil {
		return nil, err
	}
	t.conns[addr] = c
	return c, nil
}

// Close tears down every connection this transport opened.
func (t *SubscriptionTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, c := range t.conns {
		c.close()
		delete(t.conns, addr)
	}
}
