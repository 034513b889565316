package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_EnqueueDequeue(t *testing.T) {
	q := newInbox()

	ok := q.Enqueue(Message{Type: MessageUndo, Cursor: "A1"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, MessageUndo, got.Type)
	assert.Equal(t, "A1", got.Cursor)
}

func TestInbox_FIFO(t *testing.T) {
	q := newInbox()

	for _, cursor := range []string{"A", "B", "C"} {
		q.Enqueue(Message{Type: MessageStart, Cursor: cursor})
	}

	for _, want := range []string{"A", "B", "C"} {
		m, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, m.Cursor)
	}
}

func TestInbox_TryDequeue_Empty(t *testing.T) {
	q := newInbox()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty inbox should return false")
}

func TestInbox_WaitSignalsOnEnqueue(t *testing.T) {
	q := newInbox()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(Message{Type: MessageRedo})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}

	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestInbox_CloseWakesWaiters(t *testing.T) {
	q := newInbox()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not wake waiter")
	}
}

func TestInbox_EnqueueAfterClose(t *testing.T) {
	q := newInbox()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Message{Type: MessageStart}), "enqueue after close should return false")
}

func TestInbox_Len(t *testing.T) {
	q := newInbox()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(Message{Type: MessageStart})
	q.Enqueue(Message{Type: MessageStart})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestInbox_ConcurrentProducers(t *testing.T) {
	q := newInbox()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				q.Enqueue(Message{Type: MessageStart})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
