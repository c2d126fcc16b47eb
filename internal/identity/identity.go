package identity

import "hash/fnv"

// AnonymousKey is the shared bucket for events carrying neither a user id
// nor a device id. It is deliberately a single bucket, not per-device:
// folding all fully-anonymous traffic together is a known aggregation
// artifact the report accepts.
const AnonymousKey = "anonymous"

// Resolve derives the canonical user key for one event.
// Precedence: user_id if non-empty, else device_id if non-empty, else the
// shared anonymous sentinel. Never fails.
func Resolve(userID, deviceID string) string {
	if userID != "" {
		return userID
	}
	if deviceID != "" {
		return deviceID
	}
	return AnonymousKey
}

// Partition returns the partition index for a user key in [0, n).
// Stable and deterministic: the same key always lands on the same
// partition, so per-partition aggregation never splits a user's state.
// Uses FNV-32a (stdlib, fast, well-distributed).
func Partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()) % n
}
