package identity

import (
	"strconv"
	"testing"
)

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		userID, deviceID, want string
	}{
		{"u1", "d1", "u1"},
		{"u1", "", "u1"},
		{"", "d1", "d1"},
		{"", "", AnonymousKey},
	}
	for _, tc := range tests {
		if got := Resolve(tc.userID, tc.deviceID); got != tc.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tc.userID, tc.deviceID, got, tc.want)
		}
	}
}

func TestPartition_Determinism(t *testing.T) {
	// Same key must always produce the same partition.
	p := Partition("user-abc", 8)
	for i := 0; i < 100; i++ {
		if got := Partition("user-abc", 8); got != p {
			t.Fatalf("Partition(\"user-abc\", 8) = %d on iteration %d, want %d", got, i, p)
		}
	}
}

func TestPartition_Range(t *testing.T) {
	inputs := []string{"", "a", AnonymousKey, "device-9f3a", "very-long-user-key-that-should-still-hash-correctly"}
	for _, s := range inputs {
		for _, n := range []int{1, 4, 8} {
			p := Partition(s, n)
			if p < 0 || p >= n {
				t.Errorf("Partition(%q, %d) = %d, want [0, %d)", s, n, p, n)
			}
		}
	}
}

func TestPartition_Distribution(t *testing.T) {
	// 1000 keys over 8 partitions should hit all of them.
	seen := make(map[int]struct{})
	for i := 0; i < 1000; i++ {
		seen[Partition("user-"+strconv.Itoa(i), 8)] = struct{}{}
	}
	if len(seen) != 8 {
		t.Errorf("only %d distinct partitions from 1000 keys, want 8", len(seen))
	}
}
