package world

import "github.com/l1jgo/leafsys/internal/leaf"

// Receivers tracks which owners each shadow source currently lands on. It is
// the leaf system's ShadowManager.
type Receivers struct {
	bySource map[int]map[leaf.Owner]leaf.ReceiverKind
	adds     int
	releases int
}

func NewReceivers() *Receivers {
	return &Receivers{bySource: make(map[int]map[leaf.Owner]leaf.ReceiverKind)}
}

func (r *Receivers) AddShadowToReceiver(sourceID int, owner leaf.Owner, kind leaf.ReceiverKind) {
	set := r.bySource[sourceID]
	if set == nil {
		set = make(map[leaf.Owner]leaf.ReceiverKind)
		r.bySource[sourceID] = set
	}
	set[owner] = kind
	r.adds++
}

func (r *Receivers) RemoveAllShadowsFromReceiver(owner leaf.Owner, _ leaf.ReceiverKind) {
	for src, set := range r.bySource {
		delete(set, owner)
		if len(set) == 0 {
			delete(r.bySource, src)
		}
	}
	r.releases++
}

// ClearSource forgets every receiver of sourceID. Called before the source
// is reprojected.
func (r *Receivers) ClearSource(sourceID int) {
	delete(r.bySource, sourceID)
}

// Count returns the number of receivers of sourceID.
func (r *Receivers) Count(sourceID int) int {
	return len(r.bySource[sourceID])
}

// Receives reports whether owner currently receives sourceID.
func (r *Receivers) Receives(sourceID int, owner leaf.Owner) bool {
	_, ok := r.bySource[sourceID][owner]
	return ok
}

// Stats returns the running add and release call counts.
func (r *Receivers) Stats() (adds, releases int) {
	return r.adds, r.releases
}
