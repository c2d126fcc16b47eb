package amplitude

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func gzipNDJSON(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf []byte
	for _, chunk := range lines {
		w := &writeBuffer{}
		gz := gzip.NewWriter(w)
		_, err := gz.Write([]byte(chunk))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		buf = append(buf, w.data...)
	}
	return buf
}

type writeBuffer struct{ data []byte }

func (w *writeBuffer) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func TestExportDay(t *testing.T) {
	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/export", r.URL.Path)
		require.Equal(t, "20250315T00", r.URL.Query().Get("start"))
		require.Equal(t, "20250315T23", r.URL.Query().Get("end"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "api-key", user)
		require.Equal(t, "secret-key", pass)

		// Two concatenated gzip members, the way the export API chunks.
		body := gzipNDJSON(t,
			`{"user_id":"u1","event_type":"signup_completed","event_time":"2025-03-15 10:00:00"}`+"\n",
			`{"user_id":"u2","event_type":"add_card_successful","event_time":"2025-03-15 11:00:00"}`+"\n"+`broken line`+"\n",
		)
		w.Write(body)
	}))
	defer srv.Close()

	client := New("api-key", "secret-key", srv.URL)
	events, err := client.ExportDay(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "u1", events[0].UserID)
	require.Equal(t, "add_card_successful", events[1].Type)
}

func TestExportDay_EmptyDayIs404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New("k", "s", srv.URL)
	events, err := client.ExportDay(context.Background(), time.Now())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestExportDay_RetriesOn429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(gzipNDJSON(t, `{"user_id":"u1","event_type":"signup_completed"}`+"\n"))
	}))
	defer srv.Close()

	client := New("k", "s", srv.URL)
	events, err := client.ExportDay(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Len(t, events, 1)
}

func TestExportDay_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := New("k", "s", srv.URL)
	_, err := client.ExportDay(context.Background(), time.Now())
	require.ErrorContains(t, err, "status 403")
}

func TestUniqueCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events/segmentation", r.URL.Path)
		require.Equal(t, "uniques", r.URL.Query().Get("m"))
		require.Contains(t, r.URL.Query().Get("e"), "signup_completed")
		w.Write([]byte(`{"data":{"series":[[42]]}}`))
	}))
	defer srv.Close()

	client := New("k", "s", srv.URL)
	got := client.UniqueCount(context.Background(), "signup_completed", time.Now())
	require.Equal(t, 42, got)
}

func TestUniqueCount_DegradesToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New("k", "s", srv.URL)
	require.Zero(t, client.UniqueCount(context.Background(), "whatever", time.Now()))
}
