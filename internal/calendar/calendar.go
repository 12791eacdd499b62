// Package calendar provides the trading-session view (§5, §6 trading_hours)
// that the TimeFilter and monitor scheduler need: whether a timestamp falls
// inside one of the two daily A-share sessions, and how many seconds remain
// until the current session's close.
package calendar

import (
	"fmt"
	"time"
)

// Session is a configured trading-hours window (morning or afternoon).
type Session struct {
	Start, End time.Duration // offsets from local midnight
}

// Sessions is the two-session trading day (§6 "trading_hours.*").
type Sessions struct {
	Morning   Session
	Afternoon Session
}

// DefaultSessions is the 09:30-11:30 / 13:00-15:00 A-share trading day.
func DefaultSessions() Sessions {
	return Sessions{
		Morning:   Session{Start: 9*time.Hour + 30*time.Minute, End: 11*time.Hour + 30*time.Minute},
		Afternoon: Session{Start: 13 * time.Hour, End: 15 * time.Hour},
	}
}

// ParseSessions builds Sessions from "HH:MM" config strings.
func ParseSessions(morningStart, morningEnd, afternoonStart, afternoonEnd string) (Sessions, error) {
	ms, err := parseClock(morningStart)
	if err != nil {
		return Sessions{}, err
	}
	me, err := parseClock(morningEnd)
	if err != nil {
		return Sessions{}, err
	}
	as, err := parseClock(afternoonStart)
	if err != nil {
		return Sessions{}, err
	}
	ae, err := parseClock(afternoonEnd)
	if err != nil {
		return Sessions{}, err
	}
	return Sessions{
		Morning:   Session{Start: ms, End: me},
		Afternoon: Session{Start: as, End: ae},
	}, nil
}

func parseClock(hhmm string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid HH:MM time %q: %w", hhmm, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func offsetOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// IsTradingTime reports whether t falls inside the morning or afternoon session.
func (s Sessions) IsTradingTime(t time.Time) bool {
	offset := offsetOfDay(t)
	inMorning := offset >= s.Morning.Start && offset < s.Morning.End
	inAfternoon := offset >= s.Afternoon.Start && offset < s.Afternoon.End
	return inMorning || inAfternoon
}

// SecondsToClose returns how many seconds remain until the current
// session's close, and whether t is inside a session at all. Outside
// trading hours it returns (0, false).
func (s Sessions) SecondsToClose(t time.Time) (int, bool) {
	offset := offsetOfDay(t)
	switch {
	case offset >= s.Morning.Start && offset < s.Morning.End:
		return int((s.Morning.End - offset).Seconds()), true
	case offset >= s.Afternoon.Start && offset < s.Afternoon.End:
		return int((s.Afternoon.End - offset).Seconds()), true
	default:
		return 0, false
	}
}

// NextOpen returns the next session start at or after t, used by the
// monitor scheduler to sleep until the market opens.
func (s Sessions) NextOpen(t time.Time) time.Time {
	offset := offsetOfDay(t)
	// time.Truncate(24*time.Hour) rounds to a UTC day boundary, which is
	// wrong for any non-UTC t; build midnight in t's own location instead.
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch {
	case offset < s.Morning.Start:
		return midnight.Add(s.Morning.Start)
	case offset < s.Afternoon.Start:
		return midnight.Add(s.Afternoon.Start)
	default:
		return midnight.Add(24 * time.Hour).Add(s.Morning.Start)
	}
}

// Clock abstracts "now" so the backtest driver can pin a fixed instant
// while the live engine uses the wall clock (§5 "Suspension points").
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant; used by the backtest driver
// to pin the pipeline's notion of "now" to a historical bar's timestamp.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time { return f.At }
