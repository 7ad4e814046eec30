package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/model"
	msgpack "github.com/hashicorp/go-msgpack/v2/codec"
)

// outgoingQueueDepth bounds how many unsent commands a single
// connection will buffer before SendMessage starts refusing — the
// transport backpressure signal spec.md §7 calls TransportBackpressure.
const outgoingQueueDepth = 256

const dialTimeout = 5 * time.Second

var msgpackHandle = &msgpack.MsgpackHandle{}

// conn owns one persistent outgoing TCP connection to a remote
// subscription listener, plus the single goroutine draining its queue.
// Commands for the same conn are written in enqueue order, giving the
// O1 ordering guarantee from spec.md §5 (one outgoing stream per
// remote).
type conn struct {
	addr    string
	outCh   chan *model.SubscriptionCommand
	stopCh  chan struct{}
	done    chan struct{}
	closedF int32

	mu      sync.Mutex
	netConn net.Conn
	enc     *msgpack.Encoder
}

func dial(addr string) (*conn, error) {
	nc, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial subscription transport %s: %w", addr, err)
	}

	c := &conn{
		addr:    addr,
		outCh:   make(chan *model.SubscriptionCommand, outgoingQueueDepth),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		netConn: nc,
		enc:     msgpack.NewEncoder(nc, msgpackHandle),
	}
	go c.run()
	return c, nil
}

// enqueue performs a non-blocking send onto the outgoing queue. A full
// queue means the remote is not draining fast enough, or is down; the
// caller treats false the same as an unreachable leader.
func (c *conn) enqueue(cmd *model.SubscriptionCommand) bool {
	if c.closed() {
		return false
	}
	select {
	case c.outCh <- cmd:
		return true
	default:
		return false
	}
}

func (c *conn) run() {
	defer close(c.done)
	logger := log.WithComponent("transport").With().Str("remote", c.addr).Logger()

	for {
		select {
		case cmd := <-c.outCh:
			if err := c.write(cmd); err != nil {
				logger.Warn().Err(err).Msg("subscription command write failed, dropping connection")
				c.close()
				return
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *conn) write(cmd *model.SubscriptionCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.netConn.SetWriteDeadline(time.Now().Add(dialTimeout)); err != nil {
		return err
	}
	return c.enc.Encode(cmd)
}

func (c *conn) closed() bool {
	return atomic.LoadInt32(&c.closedF) == 1
}

func (c *conn) close() {
	if !atomic.CompareAndSwapInt32(&c.closedF, 0, 1) {
		return
	}
	close(c.stopCh)
	c.mu.Lock()
	c.netConn.Close()
	c.mu.Unlock()
}
