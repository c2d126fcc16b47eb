package narrative

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/loopcredit/dailybrief/internal/aggregate"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1500
	apiVersion       = "2023-06-01"
	requestTimeout   = 60 * time.Second

	// cohortLimit trims the per-user detail sent to the model so a big
	// signup day cannot blow the token budget.
	cohortLimit = 50
)

// Analysis is the narrative commentary generated from one day's report.
type Analysis struct {
	ExecutiveSummary string `json:"executive_summary"`
	Highlights       string `json:"highlights"`
	WatchList        string `json:"watch_list"`
	FullText         string `json:"full_text,omitempty"`
}

// Placeholder returns the analysis used when generation fails or is
// disabled; the report still goes out.
func Placeholder() *Analysis {
	return &Analysis{
		ExecutiveSummary: "Analysis unavailable — narrative generation failed. See logs.",
	}
}

// Client generates report narratives via the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// New creates a narrative client. model, maxTokens and baseURL may be
// zero-valued for defaults.
func New(apiKey, model string, maxTokens int, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the structured report to the model and splits the response
// into the three narrative sections.
func (c *Client) Analyze(ctx context.Context, report *aggregate.Report, day time.Time) (*Analysis, error) {
	prompt, err := buildPrompt(report, day)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("messages API error (status %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("messages API error: status %d", resp.StatusCode)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return nil, fmt.Errorf("messages API returned no text content")
	}

	raw := parsed.Content[0].Text
	sections := splitSections(raw)

	analysis := &Analysis{
		ExecutiveSummary: sections[sectionExecutiveSummary],
		Highlights:       sections[sectionHighlights],
		WatchList:        sections[sectionWatchList],
		FullText:         raw,
	}
	if analysis.ExecutiveSummary == "" {
		// Model ignored the section markers; better the whole text than
		// an empty summary.
		analysis.ExecutiveSummary = raw
	}
	return analysis, nil
}

// promptSummary is the compact data representation embedded in the prompt.
type promptSummary struct {
	Date           string           `json:"date"`
	SummaryMetrics map[string]any   `json:"summary_metrics"`
	NewSignups     []map[string]any `json:"new_signup_details"`
}

func buildPrompt(report *aggregate.Report, day time.Time) (string, error) {
	signups := report.NewSignups
	if len(signups) > cohortLimit {
		signups = signups[:cohortLimit]
	}

	summary := promptSummary{
		Date: day.Format("Monday, January 02, 2006"),
		SummaryMetrics: map[string]any{
			"daily_active_users":        report.TotalActiveUsers,
			"new_signups":               report.NewSignupCount,
			"users_who_linked_card":     report.CardLinkedCount,
			"users_who_linked_bank":     report.BankLinkedCount,
			"card_link_success_rate":    report.CardLinkSuccessRate,
			"bank_link_success_rate":    report.BankLinkSuccessRate,
			"onboarding_rate":           report.OnboardingRate,
			"autopay_users":             report.AutopayCount,
			"fraud_blocked_users":       report.FraudBlockedCount,
			"churned_users":             report.ChurnCount,
			"avg_session_duration_mins": report.AvgSessionMins,
		},
	}
	for _, u := range signups {
		summary.NewSignups = append(summary.NewSignups, map[string]any{
			"user_id":         u.UserID,
			"card_linked":     u.CardLinked,
			"bank_linked":     u.BankLinked,
			"cards_count":     u.CardsCount,
			"banks_count":     u.BanksCount,
			"screens_visited": u.Screens,
			"time_spent_mins": u.TimeSpentMins,
			"sessions":        u.SessionCount,
		})
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, summary.Date, data), nil
}

const promptTemplate = `You are a senior product analyst at a consumer fintech company.
You are writing a daily report email for the founders. Your tone should be clear, direct, and data-driven, like a smart colleague briefing them before their morning coffee.

Here is yesterday's data (%s):

%s

Write three sections:

---

**EXECUTIVE SUMMARY**
2-3 paragraphs. Cover what happened yesterday at a high level. Highlight what was good, what was concerning, and one key question the data raises. Be specific with numbers.

---

**KEY HIGHLIGHTS**
3-5 bullet points. Each one should be a concrete, actionable observation from the data. For example: which users completed the full onboarding funnel (signup + card + bank), any drop-off patterns you see, average engagement depth, etc.

---

**WATCH LIST**
2-3 items that need attention or follow-up. These are things that could become problems or opportunities. Be brief and specific.

---

Rules:
- Use actual numbers from the data, not vague language.
- Don't pad. If something isn't notable, skip it.
- Never say "it's important to note" or "it's worth mentioning".
- Write in second person ("you had X signups") not third person.
`
