package vm

import "github.com/coregx/regexvm/internal/sparse"

// maxSparseStates bounds the (instruction, position) universe the sparse
// ledger will allocate for; larger searches fall back to a map.
const maxSparseStates = 1 << 22

// maxMapStates bounds the fallback map. Past it the map is dropped and
// restarted: correctness is unaffected, only protection against
// re-exploring states is reduced.
const maxMapStates = 1 << 20

// visitedSet records which (instruction, position) pairs an execution
// has entered. Pruning revisits is sound for a backtracker: whether a
// match is reachable from a pair does not depend on how it was reached,
// and the first visit explores its alternatives in priority order.
type visitedSet struct {
	set    *sparse.SparseSet
	m      map[uint64]struct{}
	stride uint64
}

func newVisitedSet(instCount, subjectLen int) *visitedSet {
	v := &visitedSet{stride: uint64(subjectLen + 1)}
	if states := uint64(instCount) * v.stride; states <= maxSparseStates {
		v.set = sparse.NewSparseSet(uint32(states))
	} else {
		v.m = make(map[uint64]struct{})
	}
	return v
}

// visit records (pc, pos) and reports true the first time the pair is
// seen.
func (v *visitedSet) visit(pc uint32, pos int) bool {
	key := uint64(pc)*v.stride + uint64(pos)
	if v.set != nil {
		if v.set.Contains(uint32(key)) {
			return false
		}
		v.set.Insert(uint32(key))
		return true
	}
	if _, seen := v.m[key]; seen {
		return false
	}
	if len(v.m) >= maxMapStates {
		v.m = make(map[uint64]struct{})
	}
	v.m[key] = struct{}{}
	return true
}
