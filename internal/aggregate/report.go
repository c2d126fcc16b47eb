package aggregate

import (
	"sort"

	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

// CohortUser is the per-user projection included in the report's cohort
// lists. Screens are truncated to the display cap; ScreenCount keeps the
// true distinct total.
type CohortUser struct {
	UserID           string   `json:"user_id"`
	SignedUp         bool     `json:"signed_up"`
	Onboarded        bool     `json:"onboarded"`
	CardLinked       bool     `json:"card_linked"`
	BankLinked       bool     `json:"bank_linked"`
	AutopayEnabled   bool     `json:"autopay_enabled"`
	CardsCount       int      `json:"cards_count"`
	BanksCount       int      `json:"banks_count"`
	BillPaymentsMade int      `json:"bill_payments_made"`
	Screens          []string `json:"screens"`
	ScreenCount      int      `json:"screen_count"`
	TimeSpentMins    float64  `json:"time_spent_mins"`
	SessionCount     int      `json:"session_count"`
	EventCount       int      `json:"event_count"`
}

// Report is the immutable output snapshot of one day's reduction.
// Every field is populated on every run: an empty batch yields zero
// counts, NoRate rate strings, and empty cohort lists.
type Report struct {
	Date string `json:"date"`

	TotalActiveUsers int `json:"total_active_users"`
	TotalEvents      int `json:"total_events"`

	// Per-kind unique user counts.
	SignupStartedCount int `json:"signup_started_count"`
	NewSignupCount     int `json:"new_signup_count"`
	SignupFailedCount  int `json:"signup_failed_count"`
	OnboardedCount     int `json:"onboarded_count"`
	CardLinkedCount    int `json:"card_linked_count"`
	CardFailedCount    int `json:"card_failed_count"`
	BankLinkedCount    int `json:"bank_linked_count"`
	BankFailedCount    int `json:"bank_failed_count"`
	AutopayCount       int `json:"autopay_count"`
	IncomeAddedCount   int `json:"income_added_count"`
	ChurnCount         int `json:"churn_count"`
	FraudBlockedCount  int `json:"fraud_blocked_count"`
	CredgptUsers       int `json:"credgpt_users"`
	SpinwheelUsers     int `json:"spinwheel_users"`
	RewardUsers        int `json:"reward_users"`

	// BillPaymentsTotal is an event total, not a unique count.
	BillPaymentsTotal int `json:"bill_payments_total"`

	// Derived rates; NoRate when the denominator is zero.
	SignupCompletionRate string `json:"signup_completion_rate"`
	OnboardingRate       string `json:"onboarding_rate"`
	CardLinkSuccessRate  string `json:"card_link_success_rate"`
	BankLinkSuccessRate  string `json:"bank_link_success_rate"`

	AvgSessionMins float64 `json:"avg_session_mins"`

	// EventTypeTally counts raw occurrences per event-type string,
	// including types the taxonomy does not recognize.
	EventTypeTally map[string]int `json:"event_type_tally"`

	// NewSignups is the cohort of users whose signup completed this day,
	// sorted by user key ascending. AllUsers covers every active key.
	NewSignups []CohortUser `json:"new_signups"`
	AllUsers   []CohortUser `json:"all_users"`
}

// Finalize derives the Report from the accumulated state. The aggregator
// must not be observed again afterwards.
func (a *Aggregator) Finalize(date string) *Report {
	r := &Report{
		Date:             date,
		TotalActiveUsers: len(a.allActive),
		TotalEvents:      a.totalEvents,

		SignupStartedCount: a.UniqueCount(taxonomy.KindSignupStarted),
		NewSignupCount:     a.UniqueCount(taxonomy.KindSignupCompleted),
		SignupFailedCount:  a.UniqueCount(taxonomy.KindSignupFailed),
		OnboardedCount:     a.UniqueCount(taxonomy.KindOnboardingCompleted),
		CardLinkedCount:    a.UniqueCount(taxonomy.KindCardLinkSuccess),
		CardFailedCount:    a.UniqueCount(taxonomy.KindCardLinkFailed),
		BankLinkedCount:    a.UniqueCount(taxonomy.KindBankLinkSuccess),
		BankFailedCount:    a.UniqueCount(taxonomy.KindBankLinkFailed),
		AutopayCount:       a.UniqueCount(taxonomy.KindAutopayEnabled),
		IncomeAddedCount:   a.UniqueCount(taxonomy.KindIncomeAdded),
		ChurnCount:         a.UniqueCount(taxonomy.KindChurned),
		FraudBlockedCount:  a.UniqueCount(taxonomy.KindFraudBlocked),
		CredgptUsers:       a.UniqueCount(taxonomy.KindUsedCredgpt),
		SpinwheelUsers:     a.UniqueCount(taxonomy.KindUsedSpinwheel),
		RewardUsers:        a.UniqueCount(taxonomy.KindRewardClaimed),

		EventTypeTally: make(map[string]int, len(a.rawTally)),
	}
	for rawType, n := range a.rawTally {
		r.EventTypeTally[rawType] = n
	}

	// Deterministic output: map iteration order never leaks into the
	// cohort lists.
	keys := make([]string, 0, len(a.users))
	for key := range a.users {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var timeSpent []float64
	for _, key := range keys {
		u := a.users[key]
		rec := a.project(u)
		timeSpent = append(timeSpent, rec.TimeSpentMins)
		r.BillPaymentsTotal += u.BillPaymentsMade
		r.AllUsers = append(r.AllUsers, rec)
		if u.SignedUp {
			r.NewSignups = append(r.NewSignups, rec)
		}
	}

	r.AvgSessionMins = meanMins(timeSpent)
	r.SignupCompletionRate = Percent(r.NewSignupCount, r.NewSignupCount+r.SignupFailedCount)
	r.OnboardingRate = Percent(r.OnboardedCount, r.NewSignupCount)
	r.CardLinkSuccessRate = Percent(r.CardLinkedCount, r.CardLinkedCount+r.CardFailedCount)
	r.BankLinkSuccessRate = Percent(r.BankLinkedCount, r.BankLinkedCount+r.BankFailedCount)

	if r.NewSignups == nil {
		r.NewSignups = []CohortUser{}
	}
	if r.AllUsers == nil {
		r.AllUsers = []CohortUser{}
	}
	return r
}

func (a *Aggregator) project(u *UserState) CohortUser {
	return CohortUser{
		UserID:           u.Key,
		SignedUp:         u.SignedUp,
		Onboarded:        u.Onboarded,
		CardLinked:       u.CardLinked,
		BankLinked:       u.BankLinked,
		AutopayEnabled:   u.AutopayEnabled,
		CardsCount:       u.CardsCount,
		BanksCount:       u.BanksCount,
		BillPaymentsMade: u.BillPaymentsMade,
		Screens:          u.Screens(a.opts.ScreenCap),
		ScreenCount:      u.ScreenCount(),
		TimeSpentMins:    u.Windows.TimeSpentMins(),
		SessionCount:     len(u.SessionIDs),
		EventCount:       u.EventCount,
	}
}
