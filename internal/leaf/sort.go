package leaf

// sortTranslucent orders entries back to front along the view direction
// with a stable insertion sort.
func (s *System) sortTranslucent(view *ViewInfo, entries []Entry) {
	s.sortDists = s.sortDists[:0]
	for _, e := range entries {
		s.sortDists = append(s.sortDists, s.sortDepth(view, e.Handle, e.Owner))
	}
	d := s.sortDists
	for i := 1; i < len(entries); i++ {
		e, di := entries[i], d[i]
		j := i - 1
		for ; j >= 0 && d[j] < di; j-- {
			entries[j+1], d[j+1] = entries[j], d[j]
		}
		entries[j+1], d[j+1] = e, di
	}
}

func (s *System) sortDepth(view *ViewInfo, h RenderHandle, owner Owner) float32 {
	p := worldBounds(owner).Center()
	if r := s.renderable(h); r != nil && r.flags&FlagAlternateSort != 0 {
		p = owner.RenderOrigin()
	}
	return p.Sub(view.Origin).Dot(view.Forward)
}
