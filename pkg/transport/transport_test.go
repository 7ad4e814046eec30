package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/cuemby/flowmesh/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionTransportDeliversMessageToListener(t *testing.T) {
	received := make(chan *model.SubscriptionCommand, 1)
	lis, err := Listen("127.0.0.1:0", func(cmd *model.SubscriptionCommand) {
		received <- cmd
	})
	require.NoError(t, err)
	defer lis.Close()
	go lis.Serve()

	tr := NewSubscriptionTransport()
	defer tr.Close()

	remote := tr.RegisterRemoteAddress(lis.Addr())
	cmd := &model.SubscriptionCommand{
		Type:                model.CommandType("OPEN_MESSAGE_SUBSCRIPTION"),
		WorkflowInstanceKey: 42,
		MessageName:         []byte("order-placed"),
		CorrelationKey:      []byte("order-1"),
	}

	ok := tr.SendMessage(remote, cmd)
	assert.True(t, ok)

	select {
	case got := <-received:
		assert.Equal(t, cmd.WorkflowInstanceKey, got.WorkflowInstanceKey)
		assert.Equal(t, cmd.MessageName, got.MessageName)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message delivery")
	}
}

func TestSendRequestWithRetrySucceedsAfterResolverMiss(t *testing.T) {
	attempts := 0
	resolver := func() (string, bool) {
		attempts++
		if attempts < 2 {
			return "", false
		}
		return "127.0.0.1:1234", true
	}
	acceptor := func(addr string) (interface{}, bool, error) {
		return "ok", true, nil
	}

	result, err := SendRequestWithRetry(resolver, acceptor, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestSendRequestWithRetryTimesOut(t *testing.T) {
	resolver := func() (string, bool) { return "", false }
	acceptor := func(addr string) (interface{}, bool, error) { return nil, false, errors.New("unreachable") }

	_, err := SendRequestWithRetry(resolver, acceptor, 150*time.Millisecond)
	assert.Error(t, err)
}
