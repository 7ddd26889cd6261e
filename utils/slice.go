package utils

// UniqueUint returns ids with duplicates removed and first-occurrence
// order preserved. Batch liked-status lookups dedupe with it before
// hitting the database.
func UniqueUint(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
