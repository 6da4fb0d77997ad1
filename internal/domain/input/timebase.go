package input

// Timebase enforces strictly increasing host timestamps per pointer.
// A timestamp that does not advance is replaced by last+1 and counted.
// Not safe for concurrent use.
type Timebase struct {
	last      map[uint32]int64
	corrected uint64
}

// NewTimebase creates an empty timebase.
func NewTimebase() *Timebase {
	return &Timebase{last: make(map[uint32]int64)}
}

// Normalize returns a host timestamp for pointerID that is greater than the
// previous one returned for the same pointer.
func (t *Timebase) Normalize(pointerID uint32, hostUS int64) int64 {
	prev, seen := t.last[pointerID]
	out := hostUS
	if seen && hostUS <= prev {
		out = prev + 1
		t.corrected++
	}
	t.last[pointerID] = out
	return out
}

// Forget drops the history for one pointer.
func (t *Timebase) Forget(pointerID uint32) {
	delete(t.last, pointerID)
}

// Reset clears every pointer and the correction counter.
func (t *Timebase) Reset() {
	t.last = make(map[uint32]int64)
	t.corrected = 0
}

// Corrected returns how many timestamps were rewritten.
func (t *Timebase) Corrected() uint64 {
	return t.corrected
}
