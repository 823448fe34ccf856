// Package world holds the static, immutable-after-load description of the
// game's maps: roads, buildings, offices, and loot catalogs.
package world

import (
	"encoding/json"
	"fmt"

	"github.com/strayfetch/fetchserver/internal/geom"
)

// roadAlignment is the half-width inflation applied to a road's endpoint
// rectangle to get its navigable area.
const roadAlignment = 0.4

// AvatarWidth is the collision radius of a moving avatar.
const AvatarWidth = 0.6

// OfficeWidth is the collision radius of a deposit office.
const OfficeWidth = 0.5

// Road is an axis-aligned horizontal or vertical road segment.
type Road struct {
	Start geom.Point
	End   geom.Point
}

// NewHorizontalRoad builds a road from (x0,y) to (x1,y).
func NewHorizontalRoad(x0, y, x1 float64) Road {
	return Road{Start: geom.Point{X: x0, Y: y}, End: geom.Point{X: x1, Y: y}}
}

// NewVerticalRoad builds a road from (x,y0) to (x,y1).
func NewVerticalRoad(x, y0, y1 float64) Road {
	return Road{Start: geom.Point{X: x, Y: y0}, End: geom.Point{X: x, Y: y1}}
}

// IsHorizontal reports whether the road runs along the x axis.
func (r Road) IsHorizontal() bool { return r.Start.Y == r.End.Y }

// IsVertical reports whether the road runs along the y axis.
func (r Road) IsVertical() bool { return r.Start.X == r.End.X }

// Bounds returns the road's navigable rectangle, inflated by roadAlignment.
func (r Road) Bounds() geom.Rect {
	return geom.NewRect(r.Start.X, r.Start.Y, r.End.X, r.End.Y, roadAlignment)
}

// Contains reports whether p lies within the road's navigable area.
func (r Road) Contains(p geom.Point) bool {
	return r.Bounds().Contains(p)
}

// Building is an informational axis-aligned rectangle; it does not affect
// motion or collision in this implementation.
type Building struct {
	X, Y, W, H float64
}

// Office is a deposit zone where avatars unload their bag into score.
type Office struct {
	ID       string
	Position geom.Point
	OffsetX  float64
	OffsetY  float64
}

// LootType is one entry of a map's loot catalog.
type LootType struct {
	Value int
	// Extra carries opaque per-type display metadata passed through
	// verbatim from the configuration file to the map JSON response;
	// the core never interprets it.
	Extra json.RawMessage
}

// Map is the static, immutable-after-load description of one playable map.
type Map struct {
	ID   string
	Name string

	DogSpeed    float64
	BagCapacity int

	Roads     []Road
	Buildings []Building
	Offices   []Office
	LootTypes []LootType
}

// LootValue returns the catalog value for a loot type index, or 0 if the
// index is out of range.
func (m *Map) LootValue(lootType int) int {
	if lootType < 0 || lootType >= len(m.LootTypes) {
		return 0
	}
	return m.LootTypes[lootType].Value
}

// RoadsAt returns every road whose navigable area contains p.
func (m *Map) RoadsAt(p geom.Point) []*Road {
	var out []*Road
	for i := range m.Roads {
		if m.Roads[i].Contains(p) {
			out = append(out, &m.Roads[i])
		}
	}
	return out
}

// Game is the registry of all loaded maps plus the live session bound to
// each. It is append-only for maps: once loaded, a map is never removed.
type Game struct {
	maps  map[string]*Map
	order []string

	lootPeriodSeconds float64
	lootProbability   float64
	retirementTime    float64 // seconds

	sessions map[string]Session
}

// Session is the narrow interface world.Game needs from a per-map dynamic
// session, kept here to avoid an import cycle with package session.
type Session interface {
	MapID() string
}

// NewGame creates an empty map registry with the loot-generation and
// retirement parameters shared by every session it creates.
func NewGame(lootPeriodSeconds, lootProbability, retirementTimeSeconds float64) *Game {
	return &Game{
		maps:              make(map[string]*Map),
		lootPeriodSeconds: lootPeriodSeconds,
		lootProbability:   lootProbability,
		retirementTime:    retirementTimeSeconds,
		sessions:          make(map[string]Session),
	}
}

// AddMap registers a map. Duplicate ids are rejected.
func (g *Game) AddMap(m *Map) error {
	if _, exists := g.maps[m.ID]; exists {
		return fmt.Errorf("map %q already exists", m.ID)
	}
	g.maps[m.ID] = m
	g.order = append(g.order, m.ID)
	return nil
}

// FindMap returns the map with the given id, or nil if absent.
func (g *Game) FindMap(id string) *Map {
	return g.maps[id]
}

// Maps returns every registered map in load order.
func (g *Game) Maps() []*Map {
	out := make([]*Map, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.maps[id])
	}
	return out
}

// LootPeriodSeconds returns the configured base interval for loot generation.
func (g *Game) LootPeriodSeconds() float64 { return g.lootPeriodSeconds }

// LootProbability returns the configured spawn probability.
func (g *Game) LootProbability() float64 { return g.lootProbability }

// RetirementTimeSeconds returns the configured idle threshold.
func (g *Game) RetirementTimeSeconds() float64 { return g.retirementTime }

// FindSession returns the session already bound to mapId, if any.
func (g *Game) FindSession(mapID string) (Session, bool) {
	s, ok := g.sessions[mapID]
	return s, ok
}

// AddSession registers s as the session for its map, unless one already
// exists (idempotent: a second call returns the existing session).
func (g *Game) AddSession(s Session) Session {
	if existing, ok := g.sessions[s.MapID()]; ok {
		return existing
	}
	g.sessions[s.MapID()] = s
	return s
}

// Sessions returns every registered session, keyed by map id.
func (g *Game) Sessions() map[string]Session {
	return g.sessions
}
