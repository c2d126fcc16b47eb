package aggregate

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		num, den int
		want     string
	}{
		{0, 0, NoRate},
		{5, 0, NoRate},
		{0, 10, "0%"},
		{10, 10, "100%"},
		{1, 3, "33%"},
		{2, 3, "67%"},
		{1, 2, "50%"},
		{99, 200, "50%"}, // 49.5 rounds up, no float drift
		{7, 7, "100%"},
	}
	for _, tc := range tests {
		if got := Percent(tc.num, tc.den); got != tc.want {
			t.Errorf("Percent(%d, %d) = %q, want %q", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestMeanMins(t *testing.T) {
	if got := meanMins(nil); got != 0 {
		t.Errorf("meanMins(nil) = %v, want 0", got)
	}
	if got := meanMins([]float64{1.5, 2.5}); got != 2.0 {
		t.Errorf("meanMins([1.5 2.5]) = %v, want 2.0", got)
	}
	if got := meanMins([]float64{1.0, 1.0, 0.5}); got != 0.8 {
		// 2.5 / 3 = 0.8333… → 0.8
		t.Errorf("meanMins([1 1 0.5]) = %v, want 0.8", got)
	}
}
