package taxonomy

import "fmt"

// Kind is a canonical action kind — a normalized business action that one
// or more raw event-type strings map onto.
type Kind string

const (
	KindSignupStarted       Kind = "signup_started"
	KindSignupCompleted     Kind = "signup_completed"
	KindSignupFailed        Kind = "signup_failed"
	KindOnboardingCompleted Kind = "onboarding_completed"
	KindCardLinkSuccess     Kind = "card_link_success"
	KindCardLinkFailed      Kind = "card_link_failed"
	KindBankLinkSuccess     Kind = "bank_link_success"
	KindBankLinkFailed      Kind = "bank_link_failed"
	KindAutopayEnabled      Kind = "autopay_enabled"
	KindIncomeAdded         Kind = "income_added"
	KindBillPaymentMade     Kind = "bill_payment_made"
	KindChurned             Kind = "churned"
	KindFraudBlocked        Kind = "fraud_blocked"
	KindUsedCredgpt         Kind = "used_credgpt"
	KindUsedSpinwheel       Kind = "used_spinwheel"
	KindRewardClaimed       Kind = "reward_claimed"
	KindScreenView          Kind = "screen_view"
)

// Kinds lists every canonical action kind. Order is the report display
// order and must stay stable.
var Kinds = []Kind{
	KindSignupStarted,
	KindSignupCompleted,
	KindSignupFailed,
	KindOnboardingCompleted,
	KindCardLinkSuccess,
	KindCardLinkFailed,
	KindBankLinkSuccess,
	KindBankLinkFailed,
	KindAutopayEnabled,
	KindIncomeAdded,
	KindBillPaymentMade,
	KindChurned,
	KindFraudBlocked,
	KindUsedCredgpt,
	KindUsedSpinwheel,
	KindRewardClaimed,
	KindScreenView,
}

// ValidKind reports whether k is a recognized canonical action kind.
func ValidKind(k Kind) bool {
	for _, known := range Kinds {
		if known == k {
			return true
		}
	}
	return false
}

// ScreenProps names the event property holding the screen identifier for
// screen-view events, plus one fallback property name.
type ScreenProps struct {
	Primary  string
	Fallback string
}

// DefaultScreenProps matches the client SDK's screen tracker payload.
func DefaultScreenProps() ScreenProps {
	return ScreenProps{Primary: "screen_name", Fallback: "screen"}
}

// Table maps raw event-type strings to canonical action kinds.
// Lookup is exact string match, case-sensitive. The mapping is many-to-one
// (synonyms), never one-to-many: construction rejects a raw string claimed
// by two kinds, so an event classifies to at most one kind.
type Table struct {
	byRaw map[string]Kind
}

// New builds a Table from a kind → accepted raw strings mapping.
func New(kinds map[Kind][]string) (*Table, error) {
	byRaw := make(map[string]Kind)
	for kind, raws := range kinds {
		if !ValidKind(kind) {
			return nil, fmt.Errorf("taxonomy: unknown action kind %q", kind)
		}
		for _, raw := range raws {
			if raw == "" {
				return nil, fmt.Errorf("taxonomy: kind %q lists an empty raw event type", kind)
			}
			if prev, exists := byRaw[raw]; exists && prev != kind {
				return nil, fmt.Errorf("taxonomy: raw event type %q claimed by both %q and %q", raw, prev, kind)
			}
			byRaw[raw] = kind
		}
	}
	return &Table{byRaw: byRaw}, nil
}

// Classify returns the canonical kind for a raw event-type string.
// ok is false for unrecognized types — those events still count toward
// all-active and the raw tally, just never a specific bucket.
func (t *Table) Classify(rawType string) (Kind, bool) {
	k, ok := t.byRaw[rawType]
	return k, ok
}

// Len returns the number of raw event-type strings in the table.
func (t *Table) Len() int { return len(t.byRaw) }

// Default returns the built-in taxonomy covering the app's current
// Amplitude event names. Deployments with a custom naming scheme load
// overrides from a taxonomy directory instead.
func Default() *Table {
	t, err := New(map[Kind][]string{
		KindSignupStarted:       {"signup_started", "sign_up_started"},
		KindSignupCompleted:     {"signup_completed", "sign_up_complete"},
		KindSignupFailed:        {"signup_failed", "sign_up_failed"},
		KindOnboardingCompleted: {"onboarding_completed"},
		KindCardLinkSuccess:     {"add_card_successful", "card_linked"},
		KindCardLinkFailed:      {"add_card_failed", "card_link_failed"},
		KindBankLinkSuccess:     {"add_bank_successful", "bank_account_linked"},
		KindBankLinkFailed:      {"add_bank_failed", "bank_link_failed"},
		KindAutopayEnabled:      {"autopay_enabled", "autopay_setup_complete"},
		KindIncomeAdded:         {"income_added"},
		KindBillPaymentMade:     {"bill_payment_made", "bill_paid"},
		KindChurned:             {"account_deleted", "subscription_cancelled"},
		KindFraudBlocked:        {"fraud_block_triggered"},
		KindUsedCredgpt:         {"credgpt_session_started", "credgpt_session_ended"},
		KindUsedSpinwheel:       {"spinwheel_spun"},
		KindRewardClaimed:       {"reward_claimed"},
		KindScreenView:          {"common_screen_view_tracker", "screen_view"},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return t
}
