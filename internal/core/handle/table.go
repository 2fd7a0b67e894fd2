package handle

// Handle encodes a 16-bit slot index in the lower bits and a 16-bit serial in
// the upper bits. The serial increments on Free to invalidate stale refs.
type Handle uint32

// Invalid is the all-bits-set sentinel. It never passes IsValid.
const Invalid Handle = 0xFFFFFFFF

// MaxSlots is the number of addressable slots. Index 0xFFFF is never issued
// so no live handle can collide with Invalid.
const MaxSlots = 0xFFFF

const noSlot = -1

func NewHandle(index, serial uint16) Handle {
	return Handle(uint32(serial)<<16 | uint32(index))
}

func (h Handle) Index() int     { return int(uint16(h)) }
func (h Handle) Serial() uint16 { return uint16(h >> 16) }

type slot[T any] struct {
	value    T
	serial   uint16
	inUse    bool
	nextFree int32
}

// Table is a free-list-backed array of fixed-size records addressed by
// recycled handles. Growth is geometric and never compacts, so handles stay
// stable. Not safe for concurrent mutation.
type Table[T any] struct {
	slots    []slot[T]
	freeHead int32
	freeTail int32
	live     int
}

func New[T any](initialCap int) *Table[T] {
	if initialCap <= 0 {
		initialCap = 64
	}
	return &Table[T]{
		slots:    make([]slot[T], 0, initialCap),
		freeHead: noSlot,
		freeTail: noSlot,
	}
}

// Alloc returns a handle to a zeroed slot. Free slots are reused oldest
// first; when none are free the table grows. Returns Invalid when MaxSlots
// slots are live.
func (t *Table[T]) Alloc() Handle {
	if t.freeHead != noSlot {
		idx := t.freeHead
		s := &t.slots[idx]
		t.freeHead = s.nextFree
		if t.freeHead == noSlot {
			t.freeTail = noSlot
		}
		s.nextFree = noSlot
		s.inUse = true
		t.live++
		return NewHandle(uint16(idx), s.serial)
	}
	if len(t.slots) >= MaxSlots {
		return Invalid
	}
	// append doubles capacity once the backing array is full.
	t.slots = append(t.slots, slot[T]{inUse: true, nextFree: noSlot})
	t.live++
	return NewHandle(uint16(len(t.slots)-1), 0)
}

// Free clears the slot, bumps its serial and appends it to the free-list
// tail. A stale or invalid handle is ignored and reports false.
func (t *Table[T]) Free(h Handle) bool {
	if !t.IsValid(h) {
		return false
	}
	idx := int32(h.Index())
	s := &t.slots[idx]
	var zero T
	s.value = zero
	s.inUse = false
	s.serial++
	s.nextFree = noSlot
	if t.freeTail == noSlot {
		t.freeHead = idx
	} else {
		t.slots[t.freeTail].nextFree = idx
	}
	t.freeTail = idx
	t.live--
	return true
}

func (t *Table[T]) IsValid(h Handle) bool {
	idx := h.Index()
	if h == Invalid || idx >= len(t.slots) {
		return false
	}
	s := &t.slots[idx]
	return s.inUse && s.serial == h.Serial()
}

// Get returns the record for h, or nil if h is stale.
func (t *Table[T]) Get(h Handle) *T {
	if !t.IsValid(h) {
		return nil
	}
	return &t.slots[h.Index()].value
}

// At returns the record at a slot index without a serial check. Callers must
// have validated the handle already. The pointer is invalidated by growth.
func (t *Table[T]) At(index int) *T {
	return &t.slots[index].value
}

// HandleAt rebuilds the live handle for a slot index, or Invalid.
func (t *Table[T]) HandleAt(index int) Handle {
	if index < 0 || index >= len(t.slots) || !t.slots[index].inUse {
		return Invalid
	}
	return NewHandle(uint16(index), t.slots[index].serial)
}

// Len returns the number of live records.
func (t *Table[T]) Len() int { return t.live }

// Cap returns the number of slots ever allocated.
func (t *Table[T]) Cap() int { return len(t.slots) }

// Each visits every live record in slot order.
func (t *Table[T]) Each(fn func(Handle, *T)) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.inUse {
			continue
		}
		fn(NewHandle(uint16(i), s.serial), &s.value)
	}
}

// Clear frees every slot. Serials keep counting so handles issued before the
// clear stay stale.
func (t *Table[T]) Clear() {
	for i := range t.slots {
		if t.slots[i].inUse {
			t.Free(NewHandle(uint16(i), t.slots[i].serial))
		}
	}
}
