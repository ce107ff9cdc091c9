package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "harvest-events", map[string]any{"run_id": "r1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "harvest-events", map[string]any{"run_id": "r2"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "harvest-events", msgs[0].Topic)
	require.Equal(t, map[string]any{"run_id": "r1"}, msgs[0].Payload)
}

func TestSetErrorForcesPublishFailure(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.SetError(errors.New("broker down"))
	_, err := pub.Publish(context.Background(), "t", "payload")
	require.Error(t, err)
	require.Empty(t, pub.Messages())

	pub.SetError(nil)
	_, err = pub.Publish(context.Background(), "t", "payload")
	require.NoError(t, err)
	require.Len(t, pub.Messages(), 1)
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "t", "payload")
	require.NoError(t, err)

	msgs := pub.Messages()
	msgs[0].Topic = "mutated"
	require.Equal(t, "t", pub.Messages()[0].Topic)
}
