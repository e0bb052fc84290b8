package rental

import "github.com/google/btree"

// interval is one booked slot in an asset's schedule, half-open [start, end).
type interval struct {
	start    int64
	end      int64
	rentalID string
}

// assetSchedule keeps one asset's booked intervals ordered by start so a
// conflict check is a neighbor comparison around the candidate start rather
// than a scan. Disjointness guarantees starts are unique, so ordering by
// start alone is a total order over stored items.
type assetSchedule struct {
	tree *btree.BTreeG[interval]
}

func newAssetSchedule() *assetSchedule {
	return &assetSchedule{
		tree: btree.NewG(16, func(a, b interval) bool { return a.start < b.start }),
	}
}

// conflict reports the rental id of an existing interval intersecting
// [start, end), if any. Only two neighbors can intersect: the latest
// interval starting at or before start, and the earliest starting after it.
func (s *assetSchedule) conflict(start, end int64) (string, bool) {
	var hit interval
	found := false

	s.tree.DescendLessOrEqual(interval{start: start}, func(iv interval) bool {
		if iv.end > start {
			hit = iv
			found = true
		}
		return false
	})
	if found {
		return hit.rentalID, true
	}

	s.tree.AscendGreaterOrEqual(interval{start: start + 1}, func(iv interval) bool {
		if iv.start < end {
			hit = iv
			found = true
		}
		return false
	})
	if found {
		return hit.rentalID, true
	}
	return "", false
}

// insert adds an interval. Callers must have run conflict first under the
// same lock; the two steps together are the atomic book operation.
func (s *assetSchedule) insert(iv interval) {
	s.tree.ReplaceOrInsert(iv)
}

// remove deletes the interval starting at start. Used only to compensate a
// booking whose payment hold failed after the slot was taken.
func (s *assetSchedule) remove(start int64) {
	s.tree.Delete(interval{start: start})
}

func (s *assetSchedule) len() int {
	return s.tree.Len()
}
