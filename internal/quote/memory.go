package quote

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

// MemoryProvider is a deterministic, in-memory Provider/HoldingsProvider used
// by backtests and tests: quotes and holdings are pre-seeded rather than
// fetched over the network, so replays are byte-identical across runs.
type MemoryProvider struct {
	mu       sync.RWMutex
	quotes   map[string]Quote
	holdings map[string][]Holding // keyed by etf_code
	names    map[string]string    // etf_code -> etf_name
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		quotes:   make(map[string]Quote),
		holdings: make(map[string][]Holding),
		names:    make(map[string]string),
	}
}

// SeedQuote installs or replaces the quote for q.Code.
func (p *MemoryProvider) SeedQuote(q Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.Code] = q
}

// SeedHoldings installs the top holdings for an ETF and its display name.
func (p *MemoryProvider) SeedHoldings(etfCode, etfName string, holdings []Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sorted := make([]Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	p.holdings[etfCode] = sorted
	p.names[etfCode] = etfName
}

// Get implements Provider.
func (p *MemoryProvider) Get(ctx context.Context, code string) (Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.quotes[code]
	if !ok {
		return Quote{}, apperr.NotFound("no quote seeded for %q", code)
	}
	return q, nil
}

// GetBatch implements Provider.
func (p *MemoryProvider) GetBatch(ctx context.Context, codes []string) (map[string]Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Quote, len(codes))
	for _, code := range codes {
		if q, ok := p.quotes[code]; ok {
			out[code] = q
		}
	}
	return out, nil
}

// TopHoldings implements HoldingsProvider.
func (p *MemoryProvider) TopHoldings(ctx context.Context, etfCode string, topN int) ([]Holding, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	all := p.holdings[etfCode]
	if topN <= 0 || topN >= len(all) {
		out := make([]Holding, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]Holding, topN)
	copy(out, all[:topN])
	return out, nil
}

// ETFName implements HoldingsProvider.
func (p *MemoryProvider) ETFName(ctx context.Context, etfCode string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, ok := p.names[etfCode]
	if !ok {
		return "", apperr.NotFound("unknown etf code %q", etfCode)
	}
	return name, nil
}

// ETFCodes returns every ETF code this provider has holdings seeded for,
// the universe used by mapping.Store.Rebuild.
func (p *MemoryProvider) ETFCodes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	codes := make([]string, 0, len(p.holdings))
	for code := range p.holdings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
