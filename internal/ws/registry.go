package ws

import (
	"sort"
	"sync"

	"github.com/Aidin1998/energydesk/pkg/metrics"
)

// Channel is an outbound push channel to one client
type Channel interface {
	// Send queues payload without blocking. It reports false if the channel
	// is closed or its queue is full.
	Send(payload []byte) bool
	// Close releases the channel; it is safe to call more than once
	Close()
}

// Registry maps each user to at most one live channel
type Registry struct {
	mu        sync.Mutex
	byUser    map[string]Channel
	byChannel map[Channel]string
	// channels closed by the registry; they may not register again
	retired map[Channel]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]Channel),
		byChannel: make(map[Channel]string),
		retired:   make(map[Channel]struct{}),
	}
}

// Register binds ch to userID. The last registration wins: a different
// channel previously bound to userID is closed. A channel registered under
// another user is moved. A channel the registry already replaced or closed is
// rejected and Register reports false.
func (r *Registry) Register(userID string, ch Channel) bool {
	var replaced Channel

	r.mu.Lock()
	if _, dead := r.retired[ch]; dead {
		r.mu.Unlock()
		return false
	}
	if prev, ok := r.byChannel[ch]; ok && prev != userID && r.byUser[prev] == ch {
		delete(r.byUser, prev)
	}
	if old, ok := r.byUser[userID]; ok && old != ch {
		delete(r.byChannel, old)
		r.retired[old] = struct{}{}
		replaced = old
	}
	r.byUser[userID] = ch
	r.byChannel[ch] = userID
	metrics.ActiveConnections.Set(float64(len(r.byUser)))
	r.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}
	return true
}

// Unregister removes ch if it is still the current channel of its user. It
// reports whether a mapping was removed. Callers unregister a channel once,
// when it is torn down.
func (r *Registry) Unregister(ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.retired, ch)
	userID, ok := r.byChannel[ch]
	if !ok {
		return false
	}
	delete(r.byChannel, ch)
	if r.byUser[userID] != ch {
		return false
	}
	delete(r.byUser, userID)
	metrics.ActiveConnections.Set(float64(len(r.byUser)))
	return true
}

// Lookup returns the current channel of userID
func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.byUser[userID]
	return ch, ok
}

// UserOf returns the user a channel is registered under
func (r *Registry) UserOf(ch Channel) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byChannel[ch]
	return userID, ok
}

// ActiveUserIDs returns a sorted snapshot of users with a channel
func (r *Registry) ActiveUserIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered users
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// CloseAll removes and closes every registered channel
func (r *Registry) CloseAll() {
	r.mu.Lock()
	chans := make([]Channel, 0, len(r.byUser))
	for _, ch := range r.byUser {
		chans = append(chans, ch)
		r.retired[ch] = struct{}{}
	}
	clear(r.byUser)
	clear(r.byChannel)
	metrics.ActiveConnections.Set(0)
	r.mu.Unlock()

	for _, ch := range chans {
		ch.Close()
	}
}
