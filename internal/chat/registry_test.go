package chat

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
	writes []any
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistryAddEvictsPrevious(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}

	r.Add("alice", first)
	r.Add("alice", second)

	require.True(t, first.isClosed(), "evicted connection should be closed")
	require.False(t, second.isClosed())

	got, ok := r.Get("alice")
	require.True(t, ok)
	require.Same(t, second, got.(*fakeConn))
	require.Equal(t, 1, r.Len())
}

func TestRegistryStaleRemoveKeepsReplacement(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}

	r.Add("alice", first)
	r.Add("alice", second)

	// The evicted connection's read loop exits and calls Remove; the
	// replacement must survive it.
	r.Remove("alice", first)

	_, ok := r.Get("alice")
	require.True(t, ok)

	r.Remove("alice", second)
	_, ok = r.Get("alice")
	require.False(t, ok)
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()

	a := &fakeConn{}
	b := &fakeConn{}
	r.Add("alice", a)
	r.Add("bob", b)

	r.CloseAll()

	require.True(t, a.isClosed())
	require.True(t, b.isClosed())
	require.Zero(t, r.Len())
}

// overlapConn flags any two writes that run at the same time, which is the
// failure mode a shared websocket connection cannot survive.
type overlapConn struct {
	active  atomic.Int32
	overlap atomic.Bool
	writes  atomic.Int32
}

func (c *overlapConn) WriteJSON(v any) error {
	if c.active.Add(1) != 1 {
		c.overlap.Store(true)
	}
	c.writes.Add(1)
	c.active.Add(-1)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestRegistrySendSerializesWriters(t *testing.T) {
	r := NewRegistry()

	conn := &overlapConn{}
	r.Add("carol", conn)

	const senders = 8
	const perSender = 200

	var wg sync.WaitGroup
	var undelivered atomic.Int32
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if delivered, err := r.Send("carol", "msg"); err != nil || !delivered {
					undelivered.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, undelivered.Load())
	require.False(t, conn.overlap.Load(), "writes to one connection must not overlap")
	require.Equal(t, int32(senders*perSender), conn.writes.Load())
}

func TestRegistrySendToAbsentPrincipal(t *testing.T) {
	r := NewRegistry()

	delivered, err := r.Send("nobody", "msg")
	require.NoError(t, err)
	require.False(t, delivered)
}

func TestRegistryConcurrentAdds(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add("alice", &fakeConn{})
		}()
	}
	wg.Wait()

	require.Equal(t, 1, r.Len())
}
