package tlmt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/tlmt"
	"github.com/reviewlink/reviewlink/tlmt/gonoop"
)

func TestNewEvent(t *testing.T) {
	props := map[string]any{"place_id": "ChIJx"}

	ev := tlmt.NewEvent("page_view", "session-1", props)

	assert.Equal(t, "page_view", ev.Name)
	assert.Equal(t, "session-1", ev.DistinctID)
	assert.Equal(t, "ChIJx", ev.Properties["place_id"])
	assert.Equal(t, "reviewlink", ev.Properties["source"])
	assert.False(t, ev.Timestamp.IsZero())

	// the caller's map is not modified
	assert.Len(t, props, 1)
}

func TestNoop(t *testing.T) {
	sink := gonoop.New()

	require.NoError(t, sink.Send(context.Background(), tlmt.NewEvent("x", "y", nil)))
	require.NoError(t, sink.Close())
}
