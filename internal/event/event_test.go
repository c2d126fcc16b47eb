package event

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "plain seconds",
			input:  "2025-03-15 10:00:00",
			want:   time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "sub-second fraction",
			input:  "2025-03-15 10:00:00.123456",
			want:   time.Date(2025, 3, 15, 10, 0, 0, 123456000, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso-8601 rejected",
			input:  "2025-03-15T10:00:00Z",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
		{
			name:   "garbage",
			input:  "yesterday-ish",
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTime(tc.input)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.True(t, tc.want.Equal(got), "got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStringProperty(t *testing.T) {
	evt := &Event{Properties: map[string]any{
		"screen_name": "home",
		"count":       float64(3),
	}}

	require.Equal(t, "home", evt.StringProperty("screen_name"))
	require.Equal(t, "", evt.StringProperty("count"), "non-string values are ignored")
	require.Equal(t, "", evt.StringProperty("missing"))

	var empty Event
	require.Equal(t, "", empty.StringProperty("screen_name"))
}

func TestDecodeNDJSON(t *testing.T) {
	input := strings.Join([]string{
		`{"user_id":"u1","event_type":"signup_completed","event_time":"2025-03-15 10:00:00"}`,
		``,
		`not json at all`,
		`{"device_id":"d9","event_type":"common_screen_view_tracker","session_id":"s1","event_properties":{"screen_name":"home"}}`,
	}, "\n")

	events, skipped, err := DecodeNDJSON(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Len(t, events, 2)

	require.Equal(t, "u1", events[0].UserID)
	require.Equal(t, "signup_completed", events[0].Type)

	require.Equal(t, "d9", events[1].DeviceID)
	require.Equal(t, "s1", events[1].SessionID)
	require.Equal(t, "home", events[1].StringProperty("screen_name"))
}

func TestDecodeNDJSON_Empty(t *testing.T) {
	events, skipped, err := DecodeNDJSON(strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Empty(t, events)
}
