package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

func TestSubscribeRejectsNilHandler(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	assert.Error(t, service.Subscribe(interfaces.EventReasoningStep, nil))
}

func TestPublishSyncDeliversToAllSubscribers(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	var mu sync.Mutex
	var received []string

	for _, name := range []string{"first", "second"} {
		name := name
		err := service.Subscribe(interfaces.EventReasoningStep, func(_ context.Context, event interfaces.Event) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, name)
			return nil
		})
		require.NoError(t, err)
	}

	err := service.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventReasoningStep,
		Payload: interfaces.ProgressEvent{RunID: "ask_test", Label: "analysis"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, received)
}

func TestPublishSyncAggregatesHandlerErrors(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	require.NoError(t, service.Subscribe(interfaces.EventIngestCompleted, func(context.Context, interfaces.Event) error {
		return fmt.Errorf("handler failed")
	}))

	err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventIngestCompleted})
	assert.Error(t, err)
}

func TestPublishIsFireAndForget(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	done := make(chan struct{})
	require.NoError(t, service.Subscribe(interfaces.EventReasoningStep, func(context.Context, interfaces.Event) error {
		close(done)
		return nil
	}))

	require.NoError(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventReasoningStep}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestPublishToUnknownTypeIsNoop(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	assert.NoError(t, service.Publish(context.Background(), interfaces.Event{Type: "unknown"}))
}
