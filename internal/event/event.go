package event

import (
	"bufio"
	"bytes"
	"io"
	"time"

	"github.com/goccy/go-json"
)

// Event is one raw Amplitude export record.
// All fields are optional on the wire — the export stream is loosely typed
// and the engine reads it defensively. Events are consumed read-only.
type Event struct {
	// UserID is the app-level identity, empty for anonymous traffic.
	UserID string `json:"user_id"`

	// DeviceID is the per-install identifier, used as an identity fallback.
	DeviceID string `json:"device_id"`

	// Type is the raw event-type string as emitted by the client.
	// It is matched exactly (case-sensitive) against the taxonomy.
	Type string `json:"event_type"`

	// SessionID is an opaque client session identifier. Events without a
	// session id are still counted and classified, they just contribute
	// nothing to time-spent.
	SessionID string `json:"session_id,omitempty"`

	// Time is the textual event timestamp. See ParseTime for the two
	// accepted layouts.
	Time string `json:"event_time"`

	// Properties is the free-form event payload (e.g. screen_name).
	Properties map[string]any `json:"event_properties,omitempty"`
}

// StringProperty looks up a property and returns it only if it is a
// non-empty string. Missing keys and non-string values yield "".
func (e *Event) StringProperty(name string) string {
	if e.Properties == nil {
		return ""
	}
	if s, ok := e.Properties[name].(string); ok {
		return s
	}
	return ""
}

// The export API emits timestamps in one of exactly two layouts,
// with and without a sub-second fraction.
const (
	layoutFractional = "2006-01-02 15:04:05.999999"
	layoutSeconds    = "2006-01-02 15:04:05"
)

// ParseTime parses an export timestamp. The boolean reports whether the
// input matched either accepted layout; callers must treat false as
// "no timestamp" and keep processing the event's other fields.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{layoutFractional, layoutSeconds} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeNDJSON reads newline-delimited JSON events from r.
// Blank and undecodable lines are skipped — a corrupt line in a multi-GB
// export must not abort the batch. Returns the number of skipped lines.
func DecodeNDJSON(r io.Reader) ([]*Event, int, error) {
	var (
		events  []*Event
		skipped int
	)

	scanner := bufio.NewScanner(r)
	// Export lines routinely exceed bufio's 64K default.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			skipped++
			continue
		}
		events = append(events, &evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return events, skipped, nil
}
