package marketfeeds

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

const pricePlaces = 4

type walk struct {
	symbol string
	lo, hi decimal.Decimal
	step   float64
	last   decimal.Decimal
}

// SyntheticFeed produces a bounded random walk per symbol. Every price stays
// within base*(1±volatility).
type SyntheticFeed struct {
	mu    sync.Mutex
	rng   *rand.Rand
	walks []*walk
	index map[string]*walk
}

// SyntheticOption configures a SyntheticFeed
type SyntheticOption func(*SyntheticFeed)

// WithRand sets the random source, mainly for deterministic tests
func WithRand(rng *rand.Rand) SyntheticOption {
	return func(f *SyntheticFeed) {
		f.rng = rng
	}
}

// NewSyntheticFeed creates a synthetic feed seeded at each symbol's base price
func NewSyntheticFeed(symbols []config.SymbolConfig, opts ...SyntheticOption) *SyntheticFeed {
	f := &SyntheticFeed{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		index: make(map[string]*walk, len(symbols)),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, s := range symbols {
		base := decimal.NewFromFloat(s.BasePrice)
		vol := decimal.NewFromFloat(s.Volatility)
		w := &walk{
			symbol: s.Symbol,
			lo:     base.Mul(decimal.NewFromInt(1).Sub(vol)).RoundCeil(pricePlaces),
			hi:     base.Mul(decimal.NewFromInt(1).Add(vol)).RoundFloor(pricePlaces),
			// a single step moves at most half the band
			step: s.Volatility / 2,
			last: base.Round(pricePlaces),
		}
		f.walks = append(f.walks, w)
		f.index[s.Symbol] = w
	}
	return f
}

// FetchLatest advances every walk one step. It never fails.
func (f *SyntheticFeed) FetchLatest(_ context.Context) ([]models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quotes := make([]models.Quote, 0, len(f.walks))
	for _, w := range f.walks {
		quotes = append(quotes, f.advance(w))
	}
	return quotes, nil
}

// Quote advances the walk for one symbol
func (f *SyntheticFeed) Quote(symbol string) (models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.index[symbol]
	if !ok {
		return models.Quote{}, errors.NotFound.Explain("symbol %s is not tracked", symbol)
	}
	return f.advance(w), nil
}

// Symbols returns the tracked symbols in configured order
func (f *SyntheticFeed) Symbols() []string {
	out := make([]string, len(f.walks))
	for i, w := range f.walks {
		out[i] = w.symbol
	}
	return out
}

// advance moves w one step. Callers hold mu.
func (f *SyntheticFeed) advance(w *walk) models.Quote {
	factor := (f.rng.Float64()*2 - 1) * w.step
	next := w.last.Mul(decimal.NewFromFloat(1 + factor)).Round(pricePlaces)
	if next.LessThan(w.lo) {
		next = w.lo
	}
	if next.GreaterThan(w.hi) {
		next = w.hi
	}

	prev := w.last
	w.last = next
	change := next.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(hundred).Round(2)
	}
	volume := decimal.NewFromInt(f.rng.Int64N(1_000_000))
	return models.Quote{
		Symbol:        w.symbol,
		Price:         next,
		Change:        change,
		ChangePercent: pct,
		Volume:        &volume,
	}
}
