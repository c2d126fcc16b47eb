package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(min, sec int) time.Time {
	return time.Date(2025, 3, 15, 10, min, sec, 0, time.UTC)
}

func TestTrack_WidensWindow(t *testing.T) {
	ws := Windows{}

	ws.Track("s1", at(5, 0))
	require.Equal(t, at(5, 0), ws["s1"].Start)
	require.Equal(t, at(5, 0), ws["s1"].End)
	require.Zero(t, ws["s1"].Duration(), "single-event session spans nothing")

	// Later event extends the end, earlier event extends the start.
	ws.Track("s1", at(9, 0))
	ws.Track("s1", at(2, 30))
	require.Equal(t, at(2, 30), ws["s1"].Start)
	require.Equal(t, at(9, 0), ws["s1"].End)

	// An event inside the window changes nothing.
	ws.Track("s1", at(6, 0))
	require.Equal(t, at(2, 30), ws["s1"].Start)
	require.Equal(t, at(9, 0), ws["s1"].End)
}

func TestTrack_SessionsNeverMerge(t *testing.T) {
	ws := Windows{}

	// Overlapping time ranges under different session ids stay separate.
	ws.Track("s1", at(0, 0))
	ws.Track("s1", at(10, 0))
	ws.Track("s2", at(5, 0))
	ws.Track("s2", at(15, 0))

	require.Len(t, ws, 2)
	require.Equal(t, 20.0, ws.TimeSpentMins(), "10 + 10 minutes, overlap not collapsed")
}

func TestTimeSpentMins_Rounding(t *testing.T) {
	ws := Windows{}
	ws.Track("s1", at(0, 0))
	ws.Track("s1", at(1, 10)) // 70s = 1.1666… min → 1.2

	require.Equal(t, 1.2, ws.TimeSpentMins())
}

func TestTimeSpentMins_Monotone(t *testing.T) {
	ws := Windows{}
	ws.Track("s1", at(5, 0))

	prev := ws.TimeSpentMins()
	for _, tm := range []time.Time{at(6, 0), at(3, 0), at(8, 30), at(8, 30)} {
		ws.Track("s1", tm)
		got := ws.TimeSpentMins()
		require.GreaterOrEqual(t, got, prev)
		require.True(t, !ws["s1"].End.Before(ws["s1"].Start), "end must never precede start")
		prev = got
	}
}

func TestTimeSpentMins_Empty(t *testing.T) {
	require.Zero(t, Windows{}.TimeSpentMins())
}
