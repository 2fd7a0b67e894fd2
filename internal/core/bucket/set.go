package bucket

// Index addresses an entry in a Set's entry arena. List heads stored in the
// owning records are Index values.
type Index uint32

// InvalidIndex terminates every list. Records must initialise their head
// fields to InvalidIndex.
const InvalidIndex Index = 0xFFFFFFFF

type entry[B, E comparable] struct {
	bucket B
	elem   E

	// bucket-side list: all elements in one bucket
	nextInBucket, prevInBucket Index
	// element-side list: all buckets holding one element
	nextInElem, prevInElem Index

	inUse bool
}

// Set is a many-to-many relation between buckets and elements. Each pairing
// is a single entry threaded through two intrusive doubly-linked lists, one
// reached from the bucket's head and one from the element's head, so either
// side can be walked or torn down without a search.
//
// Heads are owned by the caller's records and reached through accessor funcs.
// Accessors are re-invoked on every use and their pointers are never retained.
// Not safe for concurrent use.
type Set[B, E comparable] struct {
	entries  []entry[B, E]
	freeHead Index
	live     int

	bucketHead func(B) *Index
	elemHead   func(E) *Index
}

func New[B, E comparable](bucketHead func(B) *Index, elemHead func(E) *Index) *Set[B, E] {
	return &Set[B, E]{
		entries:    make([]entry[B, E], 0, 256),
		freeHead:   InvalidIndex,
		bucketHead: bucketHead,
		elemHead:   elemHead,
	}
}

func (s *Set[B, E]) alloc() Index {
	if s.freeHead != InvalidIndex {
		i := s.freeHead
		s.freeHead = s.entries[i].nextInBucket
		return i
	}
	s.entries = append(s.entries, entry[B, E]{})
	return Index(len(s.entries) - 1)
}

func (s *Set[B, E]) release(i Index) {
	var zero entry[B, E]
	s.entries[i] = zero
	s.entries[i].nextInBucket = s.freeHead
	s.freeHead = i
	s.live--
}

// AddElementToBucket links e into b's element list and b into e's bucket
// list. O(1). Adding an existing pair creates a second entry; callers guard
// against that with enum stamps.
func (s *Set[B, E]) AddElementToBucket(b B, e E) {
	i := s.alloc()

	bh := s.bucketHead(b)
	eh := s.elemHead(e)
	s.entries[i] = entry[B, E]{
		bucket:       b,
		elem:         e,
		nextInBucket: *bh,
		prevInBucket: InvalidIndex,
		nextInElem:   *eh,
		prevInElem:   InvalidIndex,
		inUse:        true,
	}
	if *bh != InvalidIndex {
		s.entries[*bh].prevInBucket = i
	}
	*bh = i
	if *eh != InvalidIndex {
		s.entries[*eh].prevInElem = i
	}
	*eh = i
	s.live++
}

// unlink detaches entry i from both lists and frees it.
func (s *Set[B, E]) unlink(i Index) {
	en := &s.entries[i]

	if en.prevInBucket != InvalidIndex {
		s.entries[en.prevInBucket].nextInBucket = en.nextInBucket
	} else {
		*s.bucketHead(en.bucket) = en.nextInBucket
	}
	if en.nextInBucket != InvalidIndex {
		s.entries[en.nextInBucket].prevInBucket = en.prevInBucket
	}

	if en.prevInElem != InvalidIndex {
		s.entries[en.prevInElem].nextInElem = en.nextInElem
	} else {
		*s.elemHead(en.elem) = en.nextInElem
	}
	if en.nextInElem != InvalidIndex {
		s.entries[en.nextInElem].prevInElem = en.prevInElem
	}

	s.release(i)
}

// RemoveElement unlinks e from every bucket holding it. O(k) in the number of
// buckets e belongs to.
func (s *Set[B, E]) RemoveElement(e E) {
	for i := *s.elemHead(e); i != InvalidIndex; i = *s.elemHead(e) {
		s.unlink(i)
	}
}

// RemoveBucket unlinks every element from b. O(k) in the number of elements
// in b.
func (s *Set[B, E]) RemoveBucket(b B) {
	for i := *s.bucketHead(b); i != InvalidIndex; i = *s.bucketHead(b) {
		s.unlink(i)
	}
}

// RemoveElementFromBucket unlinks the first entry pairing b and e, walking
// e's bucket list. Reports whether a pairing was found.
func (s *Set[B, E]) RemoveElementFromBucket(b B, e E) bool {
	for i := *s.elemHead(e); i != InvalidIndex; i = s.entries[i].nextInElem {
		if s.entries[i].bucket == b {
			s.unlink(i)
			return true
		}
	}
	return false
}

func (s *Set[B, E]) FirstElement(b B) Index { return *s.bucketHead(b) }
func (s *Set[B, E]) NextElement(i Index) Index {
	return s.entries[i].nextInBucket
}
func (s *Set[B, E]) Element(i Index) E { return s.entries[i].elem }

func (s *Set[B, E]) FirstBucket(e E) Index { return *s.elemHead(e) }
func (s *Set[B, E]) NextBucket(i Index) Index {
	return s.entries[i].nextInElem
}
func (s *Set[B, E]) Bucket(i Index) B { return s.entries[i].bucket }

// EachElement calls fn for each element in b until fn returns false. fn must
// not mutate b's list.
func (s *Set[B, E]) EachElement(b B, fn func(E) bool) {
	for i := s.FirstElement(b); i != InvalidIndex; i = s.NextElement(i) {
		if !fn(s.entries[i].elem) {
			return
		}
	}
}

// EachBucket calls fn for each bucket holding e until fn returns false. fn
// must not mutate e's list.
func (s *Set[B, E]) EachBucket(e E, fn func(B) bool) {
	for i := s.FirstBucket(e); i != InvalidIndex; i = s.NextBucket(i) {
		if !fn(s.entries[i].bucket) {
			return
		}
	}
}

// IsElementInTree reports whether e belongs to any bucket.
func (s *Set[B, E]) IsElementInTree(e E) bool {
	return *s.elemHead(e) != InvalidIndex
}

// Len returns the number of live pairings.
func (s *Set[B, E]) Len() int { return s.live }

// Reset drops every entry without touching the owners' heads. Only valid when
// the owning records are being discarded too.
func (s *Set[B, E]) Reset() {
	s.entries = s.entries[:0]
	s.freeHead = InvalidIndex
	s.live = 0
}
