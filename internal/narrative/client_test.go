package narrative

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/loopcredit/dailybrief/internal/aggregate"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

const sampleResponse = `**EXECUTIVE SUMMARY**

You had 3 signups yesterday. Two of them linked a card within the first session.

---

**KEY HIGHLIGHTS**

- 2 of 3 signups linked a card
- Average session was 4.2 minutes

---

**WATCH LIST**

- Bank linking conversion is flat
`

func TestSplitSections(t *testing.T) {
	sections := splitSections(sampleResponse)

	require.Contains(t, sections[sectionExecutiveSummary], "3 signups yesterday")
	require.Contains(t, sections[sectionHighlights], "linked a card")
	require.Contains(t, sections[sectionWatchList], "Bank linking")
	require.NotContains(t, sections[sectionExecutiveSummary], "---")
}

func TestSplitSections_HeaderVariants(t *testing.T) {
	text := "## EXECUTIVE SUMMARY\nbody one\n\nWATCH LIST\nbody two"
	sections := splitSections(text)

	require.Equal(t, "body one", sections[sectionExecutiveSummary])
	require.Equal(t, "body two", sections[sectionWatchList])
}

func TestSplitSections_NoHeaders(t *testing.T) {
	require.Empty(t, splitSections("just some prose with no section markers"))
}

func sampleReport() *aggregate.Report {
	r := aggregate.Run(nil, taxonomy.Default(), aggregate.Options{}, "2025-03-15")
	return r
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("anthropic-version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req messagesRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 1)
		require.Contains(t, req.Messages[0].Content, "daily_active_users")
		require.Contains(t, req.Messages[0].Content, "Saturday, March 15, 2025")

		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": sampleResponse}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := New("test-key", "", 0, srv.URL)
	analysis, err := client.Analyze(context.Background(), sampleReport(), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, analysis.ExecutiveSummary, "3 signups")
	require.Contains(t, analysis.WatchList, "Bank linking")
	require.Equal(t, sampleResponse, analysis.FullText)
}

func TestAnalyze_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
	}))
	defer srv.Close()

	client := New("test-key", "", 0, srv.URL)
	_, err := client.Analyze(context.Background(), sampleReport(), time.Now())
	require.ErrorContains(t, err, "max_tokens required")
}

func TestAnalyze_UnsectionedResponseFallsBackToFullText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": "plain prose, no markers"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := New("test-key", "", 0, srv.URL)
	analysis, err := client.Analyze(context.Background(), sampleReport(), time.Now())
	require.NoError(t, err)
	require.Equal(t, "plain prose, no markers", analysis.ExecutiveSummary)
}

func TestBuildPrompt_TrimsCohort(t *testing.T) {
	report := sampleReport()
	for i := 0; i < cohortLimit+25; i++ {
		report.NewSignups = append(report.NewSignups, aggregate.CohortUser{UserID: "u" + strings.Repeat("x", i%5)})
	}

	prompt, err := buildPrompt(report, time.Now())
	require.NoError(t, err)

	var payload promptSummary
	start := strings.Index(prompt, "{")
	end := strings.LastIndex(prompt, "}")
	require.NoError(t, json.Unmarshal([]byte(prompt[start:end+1]), &payload))
	require.Len(t, payload.NewSignups, cohortLimit)
}
