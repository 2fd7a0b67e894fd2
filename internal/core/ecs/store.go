package ecs

// Removable lets World drop a destroyed entity from every store.
type Removable interface {
	Remove(id EntityID)
}

// Store is a sparse-set component store. Iteration walks a dense slice in
// insertion order (reshuffled by removals), so runs are reproducible.
type Store[T any] struct {
	ids   []EntityID
	items []*T
	index map[EntityID]int
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{index: make(map[EntityID]int, 64)}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if i, ok := s.index[id]; ok {
		s.items[i] = c
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.items = append(s.items, c)
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

// Remove swaps the last element into the hole.
func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	last := len(s.ids) - 1
	if i != last {
		s.ids[i], s.items[i] = s.ids[last], s.items[last]
		s.index[s.ids[i]] = i
	}
	s.ids[last], s.items[last] = 0, nil
	s.ids, s.items = s.ids[:last], s.items[:last]
	delete(s.index, id)
}

func (s *Store[T]) Len() int { return len(s.ids) }

// Each visits components in dense order. fn must not add or remove.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.items[i])
	}
}

// Join calls fn for entities present in both stores, walking a in dense order.
func Join[A, B any](a *Store[A], b *Store[B], fn func(EntityID, *A, *B)) {
	for i, id := range a.ids {
		if cb, ok := b.Get(id); ok {
			fn(id, a.items[i], cb)
		}
	}
}
