package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/queue"
)

// recordingHandler classifies payloads by content so the consume loop's
// ack/drop behavior can be observed without a store.
type recordingHandler struct {
	m         sync.Mutex
	processed []string
}

func (h *recordingHandler) Kind() protocol.Kind {
	return protocol.KindPosts
}

func (h *recordingHandler) Process(payload []byte) (Result, error) {
	h.m.Lock()
	defer h.m.Unlock()
	h.processed = append(h.processed, string(payload))
	if string(payload) == "poison" {
		return PoisonMessage, fmt.Errorf("unparseable payload")
	}
	return Persisted, nil
}

func (h *recordingHandler) snapshot() []string {
	h.m.Lock()
	defer h.m.Unlock()
	return append([]string{}, h.processed...)
}

func TestConsumeAcksTerminalOutcomes(t *testing.T) {
	pubsub := queue.NewGoChannel()
	defer pubsub.Close()

	h := &recordingHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Consume(ctx, pubsub, h)

	// Give the subscription a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	require.Nil(t, queue.Publish(pubsub, protocol.KindPosts.QueueName(), []byte("poison")))
	require.Nil(t, queue.Publish(pubsub, protocol.KindPosts.QueueName(), []byte("fine")))

	assert.Eventually(t, func() bool {
		return len(h.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Poison is acked and dropped, never redelivered.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"poison", "fine"}, h.snapshot())
}
