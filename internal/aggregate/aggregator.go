package aggregate

import (
	"time"

	"github.com/loopcredit/dailybrief/internal/event"
	"github.com/loopcredit/dailybrief/internal/identity"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

// DefaultScreenCap is the number of distinct screens shown per user in
// the report. Further distinct screens still count toward ScreenCount.
const DefaultScreenCap = 12

// Options tunes report projection. The zero value gets defaults.
type Options struct {
	// Screens names the screen-identifier property and its fallback.
	Screens taxonomy.ScreenProps

	// ScreenCap truncates each user's displayed screen list.
	ScreenCap int
}

func (o Options) normalized() Options {
	n := o
	if n.Screens.Primary == "" {
		n.Screens = taxonomy.DefaultScreenProps()
	}
	if n.ScreenCap <= 0 {
		n.ScreenCap = DefaultScreenCap
	}
	return n
}

// Aggregator performs the single-pass reduction over a closed one-day
// batch of export events. The taxonomy table and screen-property config
// are injected at construction and never consulted ambiently.
//
// Nothing an event contains can fail the pass: malformed timestamps and
// absent session ids degrade per-field, unknown event types count only
// toward all-active and the raw tally, and an empty batch produces a
// fully-populated all-zero report.
type Aggregator struct {
	table *taxonomy.Table
	opts  Options

	users     map[string]*UserState
	buckets   map[taxonomy.Kind]map[string]struct{}
	allActive map[string]struct{}
	rawTally  map[string]int

	totalEvents int
	seq         int64
}

// New creates an Aggregator bound to a taxonomy table.
func New(table *taxonomy.Table, opts Options) *Aggregator {
	return &Aggregator{
		table:     table,
		opts:      opts.normalized(),
		users:     make(map[string]*UserState),
		buckets:   make(map[taxonomy.Kind]map[string]struct{}),
		allActive: make(map[string]struct{}),
		rawTally:  make(map[string]int),
	}
}

// Observe folds one event into the running state.
func (a *Aggregator) Observe(evt *event.Event) {
	a.observeAt(evt, a.seq)
	a.seq++
}

// observeAt is Observe with an explicit input position, used by the
// partitioned pass so screen ordering survives out-of-order merges.
func (a *Aggregator) observeAt(evt *event.Event, seq int64) {
	key := identity.Resolve(evt.UserID, evt.DeviceID)

	u, ok := a.users[key]
	if !ok {
		u = newUserState(key)
		a.users[key] = u
	}

	u.EventCount++
	a.totalEvents++
	a.allActive[key] = struct{}{}
	a.rawTally[evt.Type]++

	eventTime, hasTime := event.ParseTime(evt.Time)

	// Session windows need both a session id and a parsable timestamp.
	// Missing either never drops the event from the rest of the pipeline.
	if evt.SessionID != "" && hasTime {
		u.SessionIDs[evt.SessionID] = struct{}{}
		u.Windows.Track(evt.SessionID, eventTime)
	}

	kind, matched := a.table.Classify(evt.Type)
	if !matched {
		return
	}

	a.bucket(kind)[key] = struct{}{}

	if kind == taxonomy.KindScreenView {
		a.captureScreen(u, evt, eventTime, hasTime, seq)
		return
	}
	if effect, ok := Effects[kind]; ok {
		effect(u)
	}
}

func (a *Aggregator) captureScreen(u *UserState, evt *event.Event, at time.Time, hasTime bool, seq int64) {
	name := evt.StringProperty(a.opts.Screens.Primary)
	if name == "" {
		name = evt.StringProperty(a.opts.Screens.Fallback)
	}
	if name == "" {
		return
	}
	u.noteScreen(name, at, hasTime, seq)
}

func (a *Aggregator) bucket(kind taxonomy.Kind) map[string]struct{} {
	b, ok := a.buckets[kind]
	if !ok {
		b = make(map[string]struct{})
		a.buckets[kind] = b
	}
	return b
}

// UniqueCount returns the number of distinct user keys that performed the
// given kind at least once.
func (a *Aggregator) UniqueCount(kind taxonomy.Kind) int {
	return len(a.buckets[kind])
}

// ActiveUsers returns the number of distinct user keys seen in the batch.
func (a *Aggregator) ActiveUsers() int { return len(a.allActive) }

// Merge folds a partial aggregation (from another partition of the same
// batch) into a. Bucket merge is set union, user-state merge is flag OR /
// counter sum / window widening.
func (a *Aggregator) Merge(other *Aggregator) {
	for key, otherUser := range other.users {
		if u, ok := a.users[key]; ok {
			u.merge(otherUser)
		} else {
			a.users[key] = otherUser
		}
	}
	for kind, otherBucket := range other.buckets {
		b := a.bucket(kind)
		for key := range otherBucket {
			b[key] = struct{}{}
		}
	}
	for key := range other.allActive {
		a.allActive[key] = struct{}{}
	}
	for rawType, n := range other.rawTally {
		a.rawTally[rawType] += n
	}
	a.totalEvents += other.totalEvents
}
