package data

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/l1jgo/leafsys/internal/geom"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// LeafInfo describes one visibility cell of a level, loaded from the level
// YAML. Leaves are axis-aligned boxes that tile the playable space.
type LeafInfo struct {
	Mins        [3]float32 `yaml:"mins"`
	Maxs        [3]float32 `yaml:"maxs"`
	Area        int        `yaml:"area"`
	DetailProps int        `yaml:"detail_props"` // detail sprites baked into this leaf
}

// Bounds returns the leaf box.
func (l LeafInfo) Bounds() geom.AABB {
	return geom.AABB{Mins: vec(l.Mins), Maxs: vec(l.Maxs)}
}

// Level is a loaded level layout.
type Level struct {
	Name     string     `yaml:"name"`
	Leaves   []LeafInfo `yaml:"leaves"`
	Checksum string     `yaml:"-"` // blake2b-256 of the source file, hex
}

// LoadLevel loads a level layout from YAML and stamps its checksum.
func LoadLevel(path string) (*Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	return ParseLevel(raw)
}

// ParseLevel parses level YAML already in memory.
func ParseLevel(raw []byte) (*Level, error) {
	var lvl Level
	if err := yaml.Unmarshal(raw, &lvl); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	if len(lvl.Leaves) == 0 {
		return nil, fmt.Errorf("level %q has no leaves", lvl.Name)
	}
	if len(lvl.Leaves) >= 0xFFFF {
		return nil, fmt.Errorf("level %q has %d leaves, limit is %d", lvl.Name, len(lvl.Leaves), 0xFFFF-1)
	}
	for i, l := range lvl.Leaves {
		for axis := 0; axis < 3; axis++ {
			if l.Mins[axis] > l.Maxs[axis] {
				return nil, fmt.Errorf("level %q leaf %d: mins > maxs on axis %d", lvl.Name, i, axis)
			}
		}
	}
	sum := blake2b.Sum256(raw)
	lvl.Checksum = hex.EncodeToString(sum[:])
	return &lvl, nil
}

// Count returns the number of leaves.
func (l *Level) Count() int {
	return len(l.Leaves)
}

// WorldBounds returns the union of all leaf boxes.
func (l *Level) WorldBounds() geom.AABB {
	b := l.Leaves[0].Bounds()
	for _, leaf := range l.Leaves[1:] {
		b = b.Union(leaf.Bounds())
	}
	return b
}

func vec(a [3]float32) geom.Vector {
	return geom.Vector{X: a[0], Y: a[1], Z: a[2]}
}
