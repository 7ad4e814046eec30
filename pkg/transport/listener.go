package transport

import (
	"errors"
	"net"

	"github.com/cuemby/flowmesh/pkg/log"
	"github.com/cuemby/flowmesh/pkg/model"
	msgpack "github.com/hashicorp/go-msgpack/v2/codec"
)

// Handler processes one decoded subscription command received from a
// peer partition's SubscriptionTransport.
type Handler func(cmd *model.SubscriptionCommand)

// Listener accepts incoming subscription connections and decodes a
// continuous msgpack stream of SubscriptionCommand records from each,
// the receiving half of the same wire protocol conn.go speaks.
type Listener struct {
	ln      net.Listener
	handler Handler
}

// Listen binds addr and returns a Listener that is not yet accepting;
// call Serve to start.
func Listen(addr string, handler Handler) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, handler: handler}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Serve accepts connections until the listener is closed, handling each
// on its own goroutine. Blocks; callers run it in a goroutine.
func (l *Listener) Serve() error {
	logger := log.WithComponent("transport")
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		go l.handleConn(nc)
	}
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func (l *Listener) handleConn(nc net.Conn) {
	defer nc.Close()
	logger := log.WithComponent("transport").With().Str("remote", nc.RemoteAddr().String()).Logger()

	dec := msgpack.NewDecoder(nc, msgpackHandle)
	for {
		var cmd model.SubscriptionCommand
		if err := dec.Decode(&cmd); err != nil {
			logger.Debug().Err(err).Msg("subscription stream closed")
			return
		}
		l.handler(&cmd)
	}
}
