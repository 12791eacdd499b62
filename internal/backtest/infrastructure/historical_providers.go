// Package infrastructure holds the Backtest Driver's storage adapters: the
// JobRepository implementations (repository_impl.go, memory_repository.go)
// and the historical-data providers the Driver replays against.
package infrastructure

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/wyfcoding/etfarb/internal/apperr"
	"github.com/wyfcoding/etfarb/internal/backtest/domain"
	"github.com/wyfcoding/etfarb/internal/quote"
)

// bar is one historical quote, as loaded from a JSON fixture file.
type bar struct {
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
	Quote     quote.Quote `json:"quote"`
}

// snapshotRecord is one ETF's quarterly disclosure, as loaded from a JSON
// fixture file.
type snapshotRecord struct {
	ETFCode  string         `json:"etf_code"`
	ETFName  string         `json:"etf_name"`
	AsOf     time.Time      `json:"as_of"`
	Holdings []quote.Holding `json:"holdings"`
}

// HistoricalSeries is a deterministic, in-memory domain.BarProvider and
// domain.SnapshotProvider, loaded once from a pair of JSON fixture files.
// It plays the same role for the backtest driver that quote.MemoryProvider
// plays for the live engine: the real historical-data feed is a provider
// boundary (spec §1 "Out of scope"), so this repository ships only the
// deterministic, pre-seeded implementation.
type HistoricalSeries struct {
	bars      map[string][]bar // keyed by code, sorted by Timestamp ascending
	snapshots map[string][]domain.Snapshot
	names     map[string]string
}

// NewHistoricalSeries creates an empty series; call LoadBars/LoadSnapshots
// or Seed* to populate it.
func NewHistoricalSeries() *HistoricalSeries {
	return &HistoricalSeries{
		bars:      make(map[string][]bar),
		snapshots: make(map[string][]domain.Snapshot),
		names:     make(map[string]string),
	}
}

// SeedBar installs one historical quote for code at t.
func (s *HistoricalSeries) SeedBar(code string, t time.Time, q quote.Quote) {
	s.bars[code] = append(s.bars[code], bar{Code: code, Timestamp: t, Quote: q})
	sort.Slice(s.bars[code], func(i, j int) bool { return s.bars[code][i].Timestamp.Before(s.bars[code][j].Timestamp) })
}

// SeedSnapshot installs one quarterly disclosure snapshot for an ETF.
func (s *HistoricalSeries) SeedSnapshot(etfCode, etfName string, asOf time.Time, holdings []quote.Holding) {
	s.names[etfCode] = etfName
	s.snapshots[etfCode] = append(s.snapshots[etfCode], domain.Snapshot{AsOf: asOf, Holdings: holdings})
	sort.Slice(s.snapshots[etfCode], func(i, j int) bool { return s.snapshots[etfCode][i].AsOf.Before(s.snapshots[etfCode][j].AsOf) })
}

// LoadBars replaces the bar set from a JSON fixture file (a flat []bar
// array), mirroring the mapping/watchlist stores' load-from-document idiom.
func (s *HistoricalSeries) LoadBars(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Internal(err, "read historical bars file")
	}
	var records []bar
	if err := json.Unmarshal(data, &records); err != nil {
		return apperr.Internal(err, "unmarshal historical bars file")
	}
	s.bars = make(map[string][]bar)
	for _, b := range records {
		s.bars[b.Code] = append(s.bars[b.Code], b)
	}
	for code := range s.bars {
		sort.Slice(s.bars[code], func(i, j int) bool { return s.bars[code][i].Timestamp.Before(s.bars[code][j].Timestamp) })
	}
	return nil
}

// LoadSnapshots replaces the disclosure-snapshot set from a JSON fixture
// file (a flat []snapshotRecord array).
func (s *HistoricalSeries) LoadSnapshots(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.Internal(err, "read historical snapshots file")
	}
	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return apperr.Internal(err, "unmarshal historical snapshots file")
	}
	s.snapshots = make(map[string][]domain.Snapshot)
	s.names = make(map[string]string)
	for _, r := range records {
		s.names[r.ETFCode] = r.ETFName
		s.snapshots[r.ETFCode] = append(s.snapshots[r.ETFCode], domain.Snapshot{AsOf: r.AsOf, Holdings: r.Holdings})
	}
	for code := range s.snapshots {
		sort.Slice(s.snapshots[code], func(i, j int) bool { return s.snapshots[code][i].AsOf.Before(s.snapshots[code][j].AsOf) })
	}
	return nil
}

// Bars implements domain.BarProvider: every distinct bar timestamp seeded
// for any code within [start,end], regardless of granularity (the fixture
// author is responsible for seeding at the intended frequency).
func (s *HistoricalSeries) Bars(ctx context.Context, start, end time.Time, granularity domain.Granularity) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	for _, series := range s.bars {
		for _, b := range series {
			if b.Timestamp.Before(start) || b.Timestamp.After(end) {
				continue
			}
			seen[b.Timestamp] = true
		}
	}
	out := make([]time.Time, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// QuoteAt implements domain.BarProvider: the most recent seeded bar for
// code at or before t.
func (s *HistoricalSeries) QuoteAt(ctx context.Context, code string, t time.Time) (quote.Quote, error) {
	series := s.bars[code]
	var best *bar
	for i := range series {
		if series[i].Timestamp.After(t) {
			break
		}
		best = &series[i]
	}
	if best == nil {
		return quote.Quote{}, apperr.NotFound("no historical bar for %q at or before %s", code, t)
	}
	return best.Quote, nil
}

// Snapshots implements domain.SnapshotProvider.
func (s *HistoricalSeries) Snapshots(ctx context.Context, etfCode string) ([]domain.Snapshot, error) {
	snaps, ok := s.snapshots[etfCode]
	if !ok {
		return nil, apperr.NotFound("no disclosure snapshots for etf %q", etfCode)
	}
	out := make([]domain.Snapshot, len(snaps))
	copy(out, snaps)
	return out, nil
}

// ETFName implements domain.SnapshotProvider.
func (s *HistoricalSeries) ETFName(ctx context.Context, etfCode string) (string, error) {
	name, ok := s.names[etfCode]
	if !ok {
		return "", apperr.NotFound("unknown etf code %q", etfCode)
	}
	return name, nil
}
