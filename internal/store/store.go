// Package store is the volatile in-memory repository shared by the scheduler,
// the agents and the HTTP handlers.
package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds every entity of the dashboard. All methods are safe for
// concurrent use and return copies of the stored records.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq uint64

	users      map[string]*models.User
	usernames  map[string]string
	positions  map[string]*models.Position
	posSeq     map[string]uint64
	byOwner    map[string]*timeline[models.Position]
	ticks      map[string]*timeline[models.MarketTick]
	insights   map[string]*timeline[models.Insight]
	chat       map[string]*timeline[models.ChatMessage]
	activity   map[string]*timeline[models.ActivityRecord]
	activityID map[string]*models.ActivityRecord
	risk       map[string]*models.RiskMetric
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		users:      make(map[string]*models.User),
		usernames:  make(map[string]string),
		positions:  make(map[string]*models.Position),
		posSeq:     make(map[string]uint64),
		byOwner:    make(map[string]*timeline[models.Position]),
		ticks:      make(map[string]*timeline[models.MarketTick]),
		insights:   make(map[string]*timeline[models.Insight]),
		chat:       make(map[string]*timeline[models.ChatMessage]),
		activity:   make(map[string]*timeline[models.ActivityRecord]),
		activityID: make(map[string]*models.ActivityRecord),
		risk:       make(map[string]*models.RiskMetric),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// next returns the current time and a fresh sequence number. Callers hold mu.
func (s *Store) next() (time.Time, uint64) {
	s.seq++
	return s.now().UTC(), s.seq
}

func (s *Store) requireUser(userID string) error {
	if _, ok := s.users[userID]; !ok {
		return errors.NotFound.Explain("user %s not found", userID)
	}
	return nil
}

func timelineFor[T any](m map[string]*timeline[T], key string) *timeline[T] {
	t, ok := m[key]
	if !ok {
		t = newTimeline[T]()
		m[key] = t
	}
	return t
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Invalid.Explain("unusable password").
			WithField("password", "bcrypt", err.Error())
	}
	return string(hash), nil
}

// CreateUser stores a new user. Usernames are unique. The password is kept
// as a bcrypt hash.
func (s *Store) CreateUser(_ context.Context, in models.NewUser) (models.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[in.Username]; taken {
		return models.User{}, errors.Invalid.Explain("username %s already exists", in.Username).
			WithField("username", "unique", "username already exists")
	}
	role := in.Role
	if role == "" {
		role = "trader"
	}
	u := &models.User{
		ID:       uuid.NewString(),
		Username: in.Username,
		Password: hash,
		Name:     in.Name,
		Role:     role,
	}
	s.users[u.ID] = u
	s.usernames[u.Username] = u.ID
	return *u, nil
}

// GetUser looks up a user by id
func (s *Store) GetUser(_ context.Context, id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// GetUserByUsername looks up a user by username
func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return models.User{}, false
	}
	return *s.users[id], true
}

// Authenticate returns the user whose username and password match
func (s *Store) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, ok := s.GetUserByUsername(ctx, username)
	if !ok {
		return models.User{}, errors.Unauthorized.Explain("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return models.User{}, errors.Unauthorized.Explain("invalid credentials")
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of update
func (s *Store) UpdateUser(_ context.Context, id string, update models.UserUpdate) (models.User, error) {
	var hash string
	if update.Password != nil {
		h, err := hashPassword(*update.Password)
		if err != nil {
			return models.User{}, err
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, errors.NotFound.Explain("user %s not found", id)
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.Password != nil {
		u.Password = hash
	}
	return *u, nil
}

// ListPositions returns a user's positions in creation order
func (s *Store) ListPositions(_ context.Context, userID string) []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byOwner[userID]
	if !ok {
		return []models.Position{}
	}
	return copyAll(t.oldest())
}

// CreatePosition opens a position for an existing user
func (s *Store) CreatePosition(_ context.Context, in models.NewPosition) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUser(in.UserID); err != nil {
		return models.Position{}, err
	}
	now, seq := s.next()
	p := &models.Position{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		Symbol:        in.Symbol,
		Type:          in.Type,
		Quantity:      in.Quantity,
		EntryPrice:    in.EntryPrice,
		CurrentPrice:  in.CurrentPrice,
		UnrealizedPnl: in.UnrealizedPnl,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.positions[p.ID] = p
	s.posSeq[p.ID] = seq
	timelineFor(s.byOwner, p.UserID).add(now, seq, p)
	return *p, nil
}

// UpdatePosition applies the non-nil fields of update
func (s *Store) UpdatePosition(_ context.Context, id string, update models.PositionUpdate) (models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return models.Position{}, errors.NotFound.Explain("position %s not found", id)
	}
	if update.Quantity != nil {
		p.Quantity = *update.Quantity
	}
	if update.CurrentPrice != nil {
		p.CurrentPrice = *update.CurrentPrice
	}
	if update.UnrealizedPnl != nil {
		p.UnrealizedPnl = *update.UnrealizedPnl
	}
	p.UpdatedAt = s.now().UTC()
	return *p, nil
}

// DeletePosition removes a position
func (s *Store) DeletePosition(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return errors.NotFound.Explain("position %s not found", id)
	}
	if t, ok := s.byOwner[p.UserID]; ok {
		t.tree.Delete(entry[models.Position]{at: p.CreatedAt, seq: s.posSeq[id]})
	}
	delete(s.positions, id)
	delete(s.posSeq, id)
	return nil
}

// RepricePositions marks every position in symbol at price and recomputes its
// unrealized P&L. It returns the updated positions.
func (s *Store) RepricePositions(_ context.Context, symbol string, price decimal.Decimal) []models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	var updated []models.Position
	for _, p := range s.positions {
		if p.Symbol != symbol || p.CurrentPrice.Equal(price) {
			continue
		}
		p.CurrentPrice = price
		p.UnrealizedPnl = p.PnlAt(price)
		p.UpdatedAt = now
		updated = append(updated, *p)
	}
	sort.Slice(updated, func(i, j int) bool {
		if !updated[i].CreatedAt.Equal(updated[j].CreatedAt) {
			return updated[i].CreatedAt.Before(updated[j].CreatedAt)
		}
		return updated[i].ID < updated[j].ID
	})
	return updated
}

// CreateMarketTick appends a price observation. A zero timestamp is replaced by
// the store clock.
func (s *Store) CreateMarketTick(_ context.Context, tick models.MarketTick) models.MarketTick {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, seq := s.next()
	t := tick
	t.ID = uuid.NewString()
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	}
	timelineFor(s.ticks, t.Symbol).add(t.Timestamp, seq, &t)
	return t
}

// ListMarketTicks returns ticks for symbol, or for all symbols when symbol is
// empty, in chronological order
func (s *Store) ListMarketTicks(_ context.Context, symbol string) []models.MarketTick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if symbol != "" {
		t, ok := s.ticks[symbol]
		if !ok {
			return []models.MarketTick{}
		}
		return copyAll(t.oldest())
	}
	var all []models.MarketTick
	for _, sym := range s.symbolsLocked() {
		all = append(all, copyAll(s.ticks[sym].oldest())...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all
}

// LatestMarketTick returns the most recent tick for symbol
func (s *Store) LatestMarketTick(_ context.Context, symbol string) (models.MarketTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[symbol]
	if !ok {
		return models.MarketTick{}, false
	}
	latest, ok := t.latest()
	if !ok {
		return models.MarketTick{}, false
	}
	return *latest, true
}

// LatestMarketTicks returns the most recent tick of every symbol, ordered by symbol
func (s *Store) LatestMarketTicks(_ context.Context) []models.MarketTick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MarketTick, 0, len(s.ticks))
	for _, sym := range s.symbolsLocked() {
		if latest, ok := s.ticks[sym].latest(); ok {
			out = append(out, *latest)
		}
	}
	return out
}

func (s *Store) symbolsLocked() []string {
	symbols := make([]string, 0, len(s.ticks))
	for sym := range s.ticks {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

func copyAll[T any](in []*T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
