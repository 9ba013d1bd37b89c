package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := New()

	ch := n.Subscribe("main")
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Listeners("main"))

	n.Unsubscribe("main", ch)
	assert.Equal(t, 0, n.Listeners("main"))

	n.mu.RLock()
	assert.Empty(t, n.topics, "empty topics are dropped")
	n.mu.RUnlock()

	_, open := <-ch
	assert.False(t, open, "channel is closed on unsubscribe")
}

func TestNotifier_BroadcastIsScopedToBoard(t *testing.T) {
	n := New()

	main1 := n.Subscribe("main")
	main2 := n.Subscribe("main")
	other := n.Subscribe("other")
	defer n.Unsubscribe("main", main1)
	defer n.Unsubscribe("main", main2)
	defer n.Unsubscribe("other", other)

	n.Broadcast("main")

	assert.True(t, received(main1))
	assert.True(t, received(main2))
	assert.False(t, received(other), "other board must not be pinged")
}

func TestNotifier_BroadcastAll(t *testing.T) {
	n := New()

	a := n.Subscribe("a")
	b := n.Subscribe("b")
	defer n.Unsubscribe("a", a)
	defer n.Unsubscribe("b", b)

	n.BroadcastAll()

	assert.True(t, received(a))
	assert.True(t, received(b))
}

func TestNotifier_BroadcastNonBlocking(t *testing.T) {
	n := New()

	ch := n.Subscribe("main")
	defer n.Unsubscribe("main", ch)

	// fill the buffer
	ch <- struct{}{}

	done := make(chan struct{})
	go func() {
		n.Broadcast("main")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Broadcast blocked on full channel")
	}
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := n.Subscribe("main")
			n.Broadcast("main")
			n.Unsubscribe("main", ch)
		}()
		go func() {
			defer wg.Done()
			n.BroadcastAll()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Listeners("main"))
}
