package aggregate

import (
	"time"

	"github.com/loopcredit/dailybrief/internal/session"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

// UserState is the per-user accumulator, one entry per canonical user key.
// Created lazily on the user's first event, mutated monotonically for the
// duration of the batch (flags only flip false→true, counters only
// increment), and discarded when the run ends.
type UserState struct {
	Key string

	// Funnel and engagement milestone flags.
	SignupStarted  bool
	SignedUp       bool
	SignupFailed   bool
	Onboarded      bool
	CardLinked     bool
	CardLinkFailed bool
	BankLinked     bool
	BankLinkFailed bool
	AutopayEnabled bool
	IncomeAdded    bool
	Churned        bool
	FraudBlocked   bool
	UsedCredgpt    bool
	UsedSpinwheel  bool
	RewardClaimed  bool

	CardsCount       int
	BanksCount       int
	BillPaymentsMade int
	EventCount       int

	SessionIDs map[string]struct{}
	Windows    session.Windows

	screens []screenEntry
}

// screenEntry is one distinct screen the user visited. The first-seen
// event time (and the original input position as a tiebreak) is carried so
// the displayed ordering survives input permutation and partition merges.
type screenEntry struct {
	Name    string
	At      time.Time
	HasTime bool
	Seq     int64
}

func newUserState(key string) *UserState {
	return &UserState{
		Key:        key,
		SessionIDs: make(map[string]struct{}),
		Windows:    session.Windows{},
	}
}

// noteScreen records a distinct screen name, keeping the earliest sighting
// when the same screen shows up again.
func (u *UserState) noteScreen(name string, at time.Time, hasTime bool, seq int64) {
	for i := range u.screens {
		e := &u.screens[i]
		if e.Name != name {
			continue
		}
		if earlier(at, hasTime, seq, e.At, e.HasTime, e.Seq) {
			e.At, e.HasTime, e.Seq = at, hasTime, seq
		}
		return
	}
	u.screens = append(u.screens, screenEntry{Name: name, At: at, HasTime: hasTime, Seq: seq})
}

// earlier orders sightings: timed before untimed, timed by event time then
// input position, untimed by input position.
func earlier(at time.Time, hasTime bool, seq int64, otherAt time.Time, otherHasTime bool, otherSeq int64) bool {
	if hasTime != otherHasTime {
		return hasTime
	}
	if hasTime && !at.Equal(otherAt) {
		return at.Before(otherAt)
	}
	return seq < otherSeq
}

// Screens returns the user's distinct screens in first-seen event-time
// order, truncated to cap. cap <= 0 means no truncation.
func (u *UserState) Screens(cap int) []string {
	ordered := make([]screenEntry, len(u.screens))
	copy(ordered, u.screens)
	sortScreens(ordered)

	if cap > 0 && len(ordered) > cap {
		ordered = ordered[:cap]
	}
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.Name
	}
	return names
}

// ScreenCount returns the number of distinct screens seen, independent of
// the display cap.
func (u *UserState) ScreenCount() int { return len(u.screens) }

func sortScreens(entries []screenEntry) {
	// Insertion sort: screen lists are short (tens of entries at most).
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j], entries[j-1]
			if !earlier(a.At, a.HasTime, a.Seq, b.At, b.HasTime, b.Seq) {
				break
			}
			entries[j], entries[j-1] = b, a
		}
	}
}

// Effects maps each canonical action kind to its state mutation.
// The aggregator's hot path is a single map lookup — no switch. Each event
// applies at most one kind, so counters increment at most once per event,
// and flag writes are idempotent by construction.
// Screen-view capture lives in the aggregator (it needs event properties),
// so KindScreenView has no entry here.
var Effects = map[taxonomy.Kind]func(*UserState){
	taxonomy.KindSignupStarted:       func(u *UserState) { u.SignupStarted = true },
	taxonomy.KindSignupCompleted:     func(u *UserState) { u.SignedUp = true },
	taxonomy.KindSignupFailed:        func(u *UserState) { u.SignupFailed = true },
	taxonomy.KindOnboardingCompleted: func(u *UserState) { u.Onboarded = true },
	taxonomy.KindCardLinkSuccess:     func(u *UserState) { u.CardLinked = true; u.CardsCount++ },
	taxonomy.KindCardLinkFailed:      func(u *UserState) { u.CardLinkFailed = true },
	taxonomy.KindBankLinkSuccess:     func(u *UserState) { u.BankLinked = true; u.BanksCount++ },
	taxonomy.KindBankLinkFailed:      func(u *UserState) { u.BankLinkFailed = true },
	taxonomy.KindAutopayEnabled:      func(u *UserState) { u.AutopayEnabled = true },
	taxonomy.KindIncomeAdded:         func(u *UserState) { u.IncomeAdded = true },
	taxonomy.KindBillPaymentMade:     func(u *UserState) { u.BillPaymentsMade++ },
	taxonomy.KindChurned:             func(u *UserState) { u.Churned = true },
	taxonomy.KindFraudBlocked:        func(u *UserState) { u.FraudBlocked = true },
	taxonomy.KindUsedCredgpt:         func(u *UserState) { u.UsedCredgpt = true },
	taxonomy.KindUsedSpinwheel:       func(u *UserState) { u.UsedSpinwheel = true },
	taxonomy.KindRewardClaimed:       func(u *UserState) { u.RewardClaimed = true },
}

// merge folds another partial state for the same user into u.
// Flags OR, counters sum, session windows widen per session id, screen
// sightings keep the earliest occurrence.
func (u *UserState) merge(other *UserState) {
	u.SignupStarted = u.SignupStarted || other.SignupStarted
	u.SignedUp = u.SignedUp || other.SignedUp
	u.SignupFailed = u.SignupFailed || other.SignupFailed
	u.Onboarded = u.Onboarded || other.Onboarded
	u.CardLinked = u.CardLinked || other.CardLinked
	u.CardLinkFailed = u.CardLinkFailed || other.CardLinkFailed
	u.BankLinked = u.BankLinked || other.BankLinked
	u.BankLinkFailed = u.BankLinkFailed || other.BankLinkFailed
	u.AutopayEnabled = u.AutopayEnabled || other.AutopayEnabled
	u.IncomeAdded = u.IncomeAdded || other.IncomeAdded
	u.Churned = u.Churned || other.Churned
	u.FraudBlocked = u.FraudBlocked || other.FraudBlocked
	u.UsedCredgpt = u.UsedCredgpt || other.UsedCredgpt
	u.UsedSpinwheel = u.UsedSpinwheel || other.UsedSpinwheel
	u.RewardClaimed = u.RewardClaimed || other.RewardClaimed

	u.CardsCount += other.CardsCount
	u.BanksCount += other.BanksCount
	u.BillPaymentsMade += other.BillPaymentsMade
	u.EventCount += other.EventCount

	for id := range other.SessionIDs {
		u.SessionIDs[id] = struct{}{}
	}
	for id, w := range other.Windows {
		if existing, ok := u.Windows[id]; ok {
			existing.Widen(w.Start)
			existing.Widen(w.End)
		} else {
			u.Windows[id] = &session.Window{Start: w.Start, End: w.End}
		}
	}
	for _, e := range other.screens {
		u.noteScreen(e.Name, e.At, e.HasTime, e.Seq)
	}
}
