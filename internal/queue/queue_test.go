package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_EnqueueAndDrain(t *testing.T) {
	c := NewChannel(2)
	job := Job{RawIngestionID: uuid.New(), UserID: uuid.New()}

	require.NoError(t, c.Enqueue(context.Background(), job))

	received := <-c.Jobs()
	assert.Equal(t, job, received)
}

func TestChannel_FullQueueReturnsErrQueueFull(t *testing.T) {
	c := NewChannel(1)
	ctx := context.Background()

	require.NoError(t, c.Enqueue(ctx, Job{RawIngestionID: uuid.New()}))
	err := c.Enqueue(ctx, Job{RawIngestionID: uuid.New()})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestChannel_CloseStopsAcceptingAfterDrain(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Enqueue(context.Background(), Job{RawIngestionID: uuid.New()}))
	c.Close()

	_, ok := <-c.Jobs()
	assert.True(t, ok) // buffered job still delivered

	_, ok = <-c.Jobs()
	assert.False(t, ok) // channel now closed
}
