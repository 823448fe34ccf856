// Package config resolves the server's configuration file and CLI flags
// into a typed Config, and decodes the map configuration file's JSON
// schema into world.Map values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/strayfetch/fetchserver/internal/geom"
	"github.com/strayfetch/fetchserver/internal/world"
)

// Flags is the resolved CLI surface (§6). The flags and the JSON config
// file set disjoint settings; viper is bound to the flags only.
type Flags struct {
	ConfigFile           string
	WWWRoot              string
	TickPeriod           time.Duration // 0 => external tick mode
	RandomizeSpawnPoints bool
	StateFile            string
	SaveStatePeriod      time.Duration
}

// ParseFlags binds and parses the CLI surface; --config-file and --www-root
// are required.
func ParseFlags(args []string) (*Flags, error) {
	fs := pflag.NewFlagSet("fetchserver", pflag.ContinueOnError)

	configFile := fs.String("config-file", "", "path to the JSON map configuration file (required)")
	wwwRoot := fs.String("www-root", "", "path to the static file document root (required)")
	tickPeriodMs := fs.Int64("tick-period", 0, "internal tick period in milliseconds; 0 enables external tick mode")
	randomizeSpawn := fs.Bool("randomize-spawn-points", false, "randomize avatar spawn points instead of using the first road's start")
	stateFile := fs.String("state-file", "", "path to the snapshot file")
	saveStatePeriodMs := fs.Int64("save-state-period", 0, "snapshot save period in milliseconds; 0 disables periodic snapshotting")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if *configFile == "" {
		return nil, fmt.Errorf("--config-file is required")
	}
	if *wwwRoot == "" {
		return nil, fmt.Errorf("--www-root is required")
	}

	return &Flags{
		ConfigFile:           v.GetString("config-file"),
		WWWRoot:              v.GetString("www-root"),
		TickPeriod:           time.Duration(*tickPeriodMs) * time.Millisecond,
		RandomizeSpawnPoints: *randomizeSpawn,
		StateFile:            v.GetString("state-file"),
		SaveStatePeriod:      time.Duration(*saveStatePeriodMs) * time.Millisecond,
	}, nil
}

// fileRoad mirrors the configuration file's road object: a horizontal road
// supplies x1, a vertical road supplies y1.
type fileRoad struct {
	X0 float64  `json:"x0"`
	Y0 float64  `json:"y0"`
	X1 *float64 `json:"x1,omitempty"`
	Y1 *float64 `json:"y1,omitempty"`
}

type fileBuilding struct {
	X, Y, W, H float64
}

type fileOffice struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type fileLootType struct {
	Value int             `json:"value"`
	Extra json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps every field the config author attached to a loot
// type, surfacing only `value` structurally and preserving the rest
// verbatim for frontend passthrough.
func (lt *fileLootType) UnmarshalJSON(data []byte) error {
	type shape struct {
		Value int `json:"value"`
	}
	var s shape
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	lt.Value = s.Value
	lt.Extra = append(json.RawMessage(nil), data...)
	return nil
}

type fileMap struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DogSpeed    *float64       `json:"dogSpeed,omitempty"`
	BagCapacity *int           `json:"bagCapacity,omitempty"`
	Roads       []fileRoad     `json:"roads"`
	Buildings   []fileBuilding `json:"buildings"`
	Offices     []fileOffice   `json:"offices"`
	LootTypes   []fileLootType `json:"lootTypes"`
}

// fileLootGeneratorConfig mirrors lootGeneratorConfig in the root object.
type fileLootGeneratorConfig struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type fileRoot struct {
	DefaultDogSpeed     float64                 `json:"defaultDogSpeed"`
	DefaultBagCapacity  int                     `json:"defaultBagCapacity"`
	DogRetirementTime   float64                 `json:"dogRetirementTime"`
	LootGeneratorConfig fileLootGeneratorConfig `json:"lootGeneratorConfig"`
	Maps                []fileMap               `json:"maps"`
}

// GameConfig is the fully resolved, typed configuration-file content.
type GameConfig struct {
	DefaultDogSpeed    float64
	DefaultBagCapacity int
	DogRetirementTime  time.Duration
	LootPeriodSeconds  float64
	LootProbability    float64
	Maps               []*world.Map
}

// LoadGameConfig reads and validates the JSON map configuration file at
// path, applying the root-level defaults (defaultDogSpeed 1.0,
// defaultBagCapacity 3, dogRetirementTime 60 seconds).
func LoadGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	root := fileRoot{DefaultDogSpeed: 1.0, DefaultBagCapacity: 3, DogRetirementTime: 60}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &GameConfig{
		DefaultDogSpeed:    root.DefaultDogSpeed,
		DefaultBagCapacity: root.DefaultBagCapacity,
		DogRetirementTime:  time.Duration(root.DogRetirementTime * float64(time.Second)),
		LootPeriodSeconds:  root.LootGeneratorConfig.Period,
		LootProbability:    root.LootGeneratorConfig.Probability,
	}

	for _, fm := range root.Maps {
		if len(fm.Roads) == 0 {
			return nil, fmt.Errorf("map %q has no roads", fm.ID)
		}
		m := &world.Map{
			ID:          fm.ID,
			Name:        fm.Name,
			DogSpeed:    cfg.DefaultDogSpeed,
			BagCapacity: cfg.DefaultBagCapacity,
		}
		if fm.DogSpeed != nil {
			m.DogSpeed = *fm.DogSpeed
		}
		if fm.BagCapacity != nil {
			m.BagCapacity = *fm.BagCapacity
		}
		for _, r := range fm.Roads {
			switch {
			case r.X1 != nil:
				m.Roads = append(m.Roads, world.NewHorizontalRoad(r.X0, r.Y0, *r.X1))
			case r.Y1 != nil:
				m.Roads = append(m.Roads, world.NewVerticalRoad(r.X0, r.Y0, *r.Y1))
			default:
				return nil, fmt.Errorf("map %q: road at (%v,%v) has neither x1 nor y1", fm.ID, r.X0, r.Y0)
			}
		}
		for _, b := range fm.Buildings {
			m.Buildings = append(m.Buildings, world.Building{X: b.X, Y: b.Y, W: b.W, H: b.H})
		}
		for _, o := range fm.Offices {
			m.Offices = append(m.Offices, world.Office{
				ID:       o.ID,
				Position: geom.Point{X: o.X, Y: o.Y},
				OffsetX:  o.OffsetX,
				OffsetY:  o.OffsetY,
			})
		}
		for _, lt := range fm.LootTypes {
			m.LootTypes = append(m.LootTypes, world.LootType{Value: lt.Value, Extra: lt.Extra})
		}
		cfg.Maps = append(cfg.Maps, m)
	}

	return cfg, nil
}
