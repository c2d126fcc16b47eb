package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is the [start, end] interval spanned by all events sharing one
// session id. Both bounds start at the first observed event time and are
// only ever widened, so Start <= End always holds; a single-event session
// has Start == End and contributes zero duration.
type Window struct {
	Start time.Time
	End   time.Time
}

// Widen extends the window to cover t.
func (w *Window) Widen(t time.Time) {
	if t.Before(w.Start) {
		w.Start = t
	}
	if t.After(w.End) {
		w.End = t
	}
}

// Duration returns the window's span.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Windows tracks one user's session windows keyed by session id.
// Sessions are never merged across different session ids, even when their
// time ranges overlap.
type Windows map[string]*Window

// Track widens the window for sessionID to cover t, creating it on first
// sight. Callers only invoke this for events with a session id and a
// parsable timestamp; events missing either stay in the rest of the
// pipeline but contribute nothing here.
func (ws Windows) Track(sessionID string, t time.Time) {
	if w, ok := ws[sessionID]; ok {
		w.Widen(t)
		return
	}
	ws[sessionID] = &Window{Start: t, End: t}
}

// TimeSpentMins returns the user's total engagement: the sum over all
// session windows of (end - start), in minutes rounded to one decimal.
func (ws Windows) TimeSpentMins() float64 {
	var total time.Duration
	for _, w := range ws {
		total += w.Duration()
	}
	mins := decimal.NewFromFloat(total.Seconds()).Div(decimal.NewFromInt(60))
	f, _ := mins.Round(1).Float64()
	return f
}
