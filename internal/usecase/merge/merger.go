// Package merge combines result lists from multiple retrieval passes into
// one response of fixed size without re-ranking anything.
package merge

import "github.com/lumen-skin/lumenkb/internal/domain/result"

// Merge concatenates the lists in the order given, drops duplicate ids
// (first occurrence wins), tops the list up from fallback when it runs
// short, and truncates to quota. Input ordering is preserved throughout:
// scores from different strategies are not comparable, so results are
// never re-sorted across lists.
func Merge(lists [][]result.Result, quota int, fallback []result.Result) []result.Result {
	if quota <= 0 {
		return []result.Result{}
	}

	merged := make([]result.Result, 0, quota)
	seen := make(map[string]struct{})

	appendUnique := func(rs []result.Result) {
		for i := range rs {
			if len(merged) >= quota {
				return
			}
			id := rs[i].ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, rs[i])
		}
	}

	for _, list := range lists {
		appendUnique(list)
	}
	if len(merged) < quota {
		appendUnique(fallback)
	}
	return merged
}
