package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	b := p.Create()
	assert.True(t, p.Alive(a))
	assert.False(t, p.Alive(0), "zero id is never alive")

	require.True(t, p.Destroy(a))
	assert.False(t, p.Destroy(a))
	assert.False(t, p.Alive(a))

	c := p.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.NotEqual(t, a, c)
	assert.True(t, p.Alive(b))
	assert.Equal(t, 2, p.Len())
}

type pos struct{ x int }
type tag struct{}

func TestStoreSwapRemove(t *testing.T) {
	s := NewStore[pos]()
	for i := 1; i <= 4; i++ {
		s.Set(EntityID(i), &pos{i})
	}
	s.Remove(EntityID(2))
	s.Remove(EntityID(9))

	var order []int
	s.Each(func(_ EntityID, p *pos) { order = append(order, p.x) })
	assert.Equal(t, []int{1, 4, 3}, order)

	p, ok := s.Get(EntityID(4))
	require.True(t, ok)
	assert.Equal(t, 4, p.x)
	assert.False(t, s.Has(EntityID(2)))

	s.Set(EntityID(4), &pos{40})
	assert.Equal(t, 3, s.Len())
}

func TestJoinAndDeferredDestroy(t *testing.T) {
	w := NewWorld()
	positions := NewStore[pos]()
	tags := NewStore[tag]()
	w.Register(positions)
	w.Register(tags)

	a, b := w.CreateEntity(), w.CreateEntity()
	positions.Set(a, &pos{1})
	positions.Set(b, &pos{2})
	tags.Set(b, &tag{})

	var joined []EntityID
	Join(positions, tags, func(id EntityID, _ *pos, _ *tag) { joined = append(joined, id) })
	assert.Equal(t, []EntityID{b}, joined)

	var hooked []EntityID
	w.OnDestroy(func(id EntityID) { hooked = append(hooked, id) })
	w.MarkForDestruction(b)
	w.MarkForDestruction(b)
	assert.True(t, w.Alive(b), "destruction is deferred")
	assert.Equal(t, 1, w.FlushDestroyQueue())

	assert.Equal(t, []EntityID{b}, hooked)
	assert.False(t, w.Alive(b))
	assert.False(t, positions.Has(b))
	assert.Equal(t, 0, tags.Len())
	assert.Equal(t, 1, w.EntityCount())
	assert.Equal(t, 0, w.PendingDestroys())
}
