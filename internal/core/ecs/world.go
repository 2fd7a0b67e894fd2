package ecs

// World owns the entity pool, the component stores registered with it, and
// a deferred destruction queue flushed once per frame.
type World struct {
	pool         *EntityPool
	stores       []Removable
	destroyQueue []EntityID
	onDestroy    []func(EntityID)
}

func NewWorld() *World {
	return &World{pool: NewEntityPool()}
}

// Register adds a store that destroyed entities are removed from.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

// OnDestroy adds a hook that runs for each entity before its components are
// dropped.
func (w *World) OnDestroy(fn func(EntityID)) {
	w.onDestroy = append(w.onDestroy, fn)
}

func (w *World) CreateEntity() EntityID { return w.pool.Create() }
func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }
func (w *World) EntityCount() int       { return w.pool.Len() }
func (w *World) PendingDestroys() int   { return len(w.destroyQueue) }

// MarkForDestruction queues id for the next FlushDestroyQueue.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys every queued entity. Duplicates and stale ids
// in the queue are skipped.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		for _, fn := range w.onDestroy {
			fn(id)
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
