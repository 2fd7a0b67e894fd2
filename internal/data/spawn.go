package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnEntry defines one simulated object, loaded from spawn_list.yaml.
type SpawnEntry struct {
	Name          string     `yaml:"name"`
	Kind          string     `yaml:"kind"` // studio, brush, static_prop, sprite, view_model
	Origin        [3]float32 `yaml:"origin"`
	Angles        [3]float32 `yaml:"angles"` // pitch, yaw, roll
	Mins          [3]float32 `yaml:"mins"`
	Maxs          [3]float32 `yaml:"maxs"`
	Velocity      [3]float32 `yaml:"velocity"`
	AngularSpeed  float32    `yaml:"angular_speed"` // yaw degrees per second
	Translucent   bool       `yaml:"translucent"`
	TwoPass       bool       `yaml:"two_pass"`
	AlternateSort bool       `yaml:"alternate_sort"`
	Follow        string     `yaml:"follow"` // name of the parent object
	Script        string     `yaml:"script"` // scripted prop name
	Leaves        []int      `yaml:"leaves"` // explicit placement for baked static props
	NoShadows     bool       `yaml:"no_shadows"`
}

// Valid kinds for SpawnEntry.Kind.
const (
	KindStudio     = "studio"
	KindBrush      = "brush"
	KindStaticProp = "static_prop"
	KindSprite     = "sprite"
	KindViewModel  = "view_model"
)

type spawnListFile struct {
	Objects []SpawnEntry `yaml:"objects"`
}

// LoadSpawnList loads spawn_list.yaml.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list %s: %w", path, err)
	}
	return ParseSpawnList(raw)
}

// ParseSpawnList parses spawn list YAML already in memory. Unknown kinds and
// parents that are not declared earlier in the list are rejected.
func ParseSpawnList(raw []byte) ([]SpawnEntry, error) {
	var file spawnListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	seen := make(map[string]bool, len(file.Objects))
	for i := range file.Objects {
		e := &file.Objects[i]
		if e.Kind == "" {
			e.Kind = KindStudio
		}
		switch e.Kind {
		case KindStudio, KindBrush, KindStaticProp, KindSprite, KindViewModel:
		default:
			return nil, fmt.Errorf("spawn %q: unknown kind %q", e.Name, e.Kind)
		}
		if e.Follow != "" && !seen[e.Follow] {
			return nil, fmt.Errorf("spawn %q: parent %q must be declared first", e.Name, e.Follow)
		}
		if e.Name != "" {
			seen[e.Name] = true
		}
	}
	return file.Objects, nil
}
