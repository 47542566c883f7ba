package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	mu     sync.Mutex
	name   string
	limit  int
	msgs   [][]byte
	closed bool
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, limit: 64}
}

func (f *fakeChannel) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.msgs) >= f.limit {
		return false
	}
	f.msgs = append(f.msgs, payload)
	return true
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeChannel) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, 0, len(f.msgs))
	for _, m := range f.msgs {
		var ev Event
		if err := json.Unmarshal(m, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegisterLastWriterWins(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, zap.NewNop())
	c1, c2 := newFakeChannel("c1"), newFakeChannel("c2")

	r.Register("u", c1)
	r.Register("u", c2)

	assert.Equal(t, []string{"u"}, r.ActiveUserIDs())
	assert.True(t, c1.isClosed(), "replaced channel is closed")
	assert.False(t, c2.isClosed())

	require.True(t, b.SendToUser("u", NewEvent(EventMarketUpdate, []int{1})))
	assert.Empty(t, c1.received())
	require.Len(t, c2.received(), 1)
	assert.Equal(t, EventMarketUpdate, c2.received()[0].Type)
}

func TestRegisterSameChannelTwice(t *testing.T) {
	r := NewRegistry()
	c := newFakeChannel("c")

	r.Register("u", c)
	r.Register("u", c)

	assert.False(t, c.isClosed())
	assert.Equal(t, 1, r.Count())
}

func TestRegisterMovesChannelBetweenUsers(t *testing.T) {
	r := NewRegistry()
	c := newFakeChannel("c")

	r.Register("alice", c)
	r.Register("bob", c)

	assert.Equal(t, []string{"bob"}, r.ActiveUserIDs())
	user, ok := r.UserOf(c)
	require.True(t, ok)
	assert.Equal(t, "bob", user)
	assert.False(t, c.isClosed())
}

func TestUnregisterOnlyRemovesCurrentChannel(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newFakeChannel("c1"), newFakeChannel("c2")

	r.Register("u", c1)
	r.Register("u", c2)

	// the stale connection closing must not evict its replacement
	assert.False(t, r.Unregister(c1))
	ch, ok := r.Lookup("u")
	require.True(t, ok)
	assert.Same(t, c2, ch)

	assert.True(t, r.Unregister(c2))
	assert.Empty(t, r.ActiveUserIDs())
	assert.False(t, r.Unregister(c2))
}

func TestReplacedChannelCannotRegisterAgain(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, zap.NewNop())
	old, live := newFakeChannel("old"), newFakeChannel("live")

	require.True(t, r.Register("trader", old))
	require.True(t, r.Register("trader", live))

	// a late auth frame still buffered on the old connection
	assert.False(t, r.Register("trader", old))
	assert.False(t, live.isClosed())
	ch, ok := r.Lookup("trader")
	require.True(t, ok)
	assert.Same(t, live, ch)

	// the old connection's teardown leaves the live one in place
	assert.False(t, r.Unregister(old))
	assert.Equal(t, []string{"trader"}, r.ActiveUserIDs())
	require.True(t, b.SendToUser("trader", NewEvent(EventMarketUpdate, []int{1})))
	assert.Len(t, live.received(), 1)
	assert.Empty(t, old.received())
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newFakeChannel("c1"), newFakeChannel("c2")
	r.Register("a", c1)
	r.Register("b", c2)

	r.CloseAll()

	assert.Zero(t, r.Count())
	assert.True(t, c1.isClosed())
	assert.True(t, c2.isClosed())
	assert.False(t, r.Register("a", c1))
	assert.False(t, r.Unregister(c1))
}

func TestSendToUnknownOrClosedIsNoop(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, zap.NewNop())

	assert.NotPanics(t, func() {
		assert.False(t, b.SendToUser("ghost", NewEvent(EventNewInsights, nil)))
	})

	c := newFakeChannel("c")
	r.Register("u", c)
	c.Close()
	assert.NotPanics(t, func() {
		assert.False(t, b.SendToUser("u", NewEvent(EventNewInsights, nil)))
	})
}

func TestSendToUserFullQueueDrops(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, zap.NewNop())
	c := newFakeChannel("c")
	c.limit = 1
	r.Register("u", c)

	assert.True(t, b.SendToUser("u", NewEvent(EventMarketUpdate, 1)))
	assert.False(t, b.SendToUser("u", NewEvent(EventMarketUpdate, 2)))
	assert.Len(t, c.received(), 1)
}

func TestSendToAll(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, zap.NewNop())
	a, c := newFakeChannel("a"), newFakeChannel("c")
	r.Register("alice", a)
	r.Register("carol", c)

	assert.Equal(t, 2, b.SendToAll(NewEvent(EventMarketUpdate, map[string]string{"symbol": "CRUDE_OIL"})))
	assert.Len(t, a.received(), 1)
	assert.Len(t, c.received(), 1)

	assert.Zero(t, NewBroadcaster(NewRegistry(), zap.NewNop()).SendToAll(NewEvent(EventMarketUpdate, nil)))
}

func TestConcurrentRegisterSameUser(t *testing.T) {
	for range 50 {
		r := NewRegistry()
		b := NewBroadcaster(r, zap.NewNop())
		cA, cB := newFakeChannel("cA"), newFakeChannel("cB")

		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, ch := range []*fakeChannel{cA, cB} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				r.Register("trader", ch)
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, []string{"trader"}, r.ActiveUserIDs())

		winner, ok := r.Lookup("trader")
		require.True(t, ok)
		loser := cA
		if winner == Channel(cA) {
			loser = cB
		}
		assert.True(t, loser.isClosed())

		b.SendToAll(NewEvent(EventMarketUpdate, nil))
		assert.Len(t, winner.(*fakeChannel).received(), 1)
		assert.Empty(t, loser.received())
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newFakeChannel("c")
			user := []string{"a", "b", "c"}[i%3]
			r.Register(user, c)
			if i%2 == 0 {
				r.Unregister(c)
			}
		}(i)
	}
	wg.Wait()

	ids := r.ActiveUserIDs()
	assert.LessOrEqual(t, len(ids), 3)
	assert.IsIncreasing(t, ids)
}
