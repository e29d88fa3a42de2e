package harvest

// StateTable maps process ids to the counters observed on the previous tick.
//
// Entries live in a slot arena indexed by id. Every tick marks the slots it
// touches with the current epoch; Sweep frees the unmarked ones, so after a
// tick the table holds exactly the ids seen during it. StateTable is not safe
// for concurrent use.
type StateTable struct {
	index map[int32]int
	slots []tableSlot
	free  []int
	epoch uint64
}

type tableSlot struct {
	id       int32
	counters EntityCounters
	seen     uint64
	used     bool
}

// NewStateTable returns an empty table.
func NewStateTable() *StateTable {
	return &StateTable{index: make(map[int32]int)}
}

// Begin starts a new tick. Entries not touched before the next Sweep are evicted.
func (t *StateTable) Begin() {
	t.epoch++
}

// Touch marks id as live for the current tick and returns its counters,
// inserting a zero entry on first sighting. The pointer is valid until the
// next call to Touch or Sweep.
func (t *StateTable) Touch(id int32) *EntityCounters {
	if i, ok := t.index[id]; ok {
		t.slots[i].seen = t.epoch
		return &t.slots[i].counters
	}

	var i int
	if n := len(t.free); n > 0 {
		i = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, tableSlot{})
		i = len(t.slots) - 1
	}
	t.slots[i] = tableSlot{id: id, seen: t.epoch, used: true}
	t.index[id] = i
	return &t.slots[i].counters
}

// Sweep evicts every entry not touched since Begin and returns how many were removed.
func (t *StateTable) Sweep() int {
	evicted := 0
	for i := range t.slots {
		s := &t.slots[i]
		if !s.used || s.seen == t.epoch {
			continue
		}
		delete(t.index, s.id)
		*s = tableSlot{}
		t.free = append(t.free, i)
		evicted++
	}
	return evicted
}

// Get returns the counters recorded for id.
func (t *StateTable) Get(id int32) (EntityCounters, bool) {
	i, ok := t.index[id]
	if !ok {
		return EntityCounters{}, false
	}
	return t.slots[i].counters, true
}

// Len returns the number of tracked ids.
func (t *StateTable) Len() int {
	return len(t.index)
}
