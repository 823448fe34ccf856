package session

import (
	"math"
	"sort"

	"github.com/strayfetch/fetchserver/internal/geom"
	"github.com/strayfetch/fetchserver/internal/lootgen"
	"github.com/strayfetch/fetchserver/internal/world"
)

// officeSentinelID is the collision-kernel item id reserved for offices.
// Real loot ids start at 1, so 0 never collides with a live loot id.
const officeSentinelID = 0

// IDCounters holds the process-wide monotonic id generators shared by every
// session. They must be preserved exactly across a snapshot round-trip so
// that restored sessions keep allocating strictly increasing ids.
type IDCounters struct {
	NextAvatarID uint64
	NextLootID   uint64
}

// NextAvatar allocates and returns the next avatar id.
func (c *IDCounters) NextAvatar() uint64 {
	c.NextAvatarID++
	return c.NextAvatarID
}

// NextLoot allocates and returns the next loot id.
func (c *IDCounters) NextLoot() uint64 {
	c.NextLootID++
	return c.NextLootID
}

// Loot is a collectible entity bound to a session.
type Loot struct {
	ID       uint64
	Type     int
	Value    int
	Position geom.Point
}

// RandomSource returns a uniform draw in [0,1).
type RandomSource func() float64

// Session is the dynamic per-map game state: its avatars, its loot, and
// its private loot generator. Exactly one session exists per map, created
// lazily on the map's first join.
type Session struct {
	mapID    string
	m        *world.Map
	counters *IDCounters
	random   RandomSource

	avatars []*Avatar
	loots   []*Loot

	generator *lootgen.Generator
}

// New creates a session for m, sharing counters and the given random
// source for spawn placement and loot type selection.
func New(m *world.Map, counters *IDCounters, lootPeriodSeconds, lootProbability float64, random RandomSource) *Session {
	if random == nil {
		random = func() float64 { return 0 }
	}
	return &Session{
		mapID:     m.ID,
		m:         m,
		counters:  counters,
		random:    random,
		generator: lootgen.New(lootPeriodSeconds, lootProbability, lootgen.RandomSource(random)),
	}
}

// MapID satisfies world.Session.
func (s *Session) MapID() string { return s.mapID }

// Map returns the static map this session is bound to.
func (s *Session) Map() *world.Map { return s.m }

// Avatars returns the live avatar list. Callers must not retain it past the
// engine lock.
func (s *Session) Avatars() []*Avatar { return s.avatars }

// Loots returns the live loot list.
func (s *Session) Loots() []*Loot { return s.loots }

// FindAvatar returns the avatar with the given id, or nil.
func (s *Session) FindAvatar(id uint64) *Avatar {
	for _, a := range s.avatars {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// FindLoot returns the loot with the given id, or nil.
func (s *Session) FindLoot(id uint64) *Loot {
	for _, l := range s.loots {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// RemoveAvatar evicts the avatar with the given id.
func (s *Session) RemoveAvatar(id uint64) {
	for i, a := range s.avatars {
		if a.ID == id {
			s.avatars = append(s.avatars[:i], s.avatars[i+1:]...)
			return
		}
	}
}

func (s *Session) removeLoot(id uint64) {
	for i, l := range s.loots {
		if l.ID == id {
			s.loots = append(s.loots[:i], s.loots[i+1:]...)
			return
		}
	}
}

// spawnPoint picks an avatar's join position: the start of the first road
// when randomize is false, otherwise a uniform point along a uniform road.
func (s *Session) spawnPoint(randomize bool) geom.Point {
	if len(s.m.Roads) == 0 {
		return geom.Point{}
	}
	if !randomize {
		return s.m.Roads[0].Start
	}
	return s.randomRoadPoint()
}

// randomRoadPoint always randomizes, independent of the avatar spawn flag;
// loot placement uses this unconditionally per the session contract.
func (s *Session) randomRoadPoint() geom.Point {
	idx := int(s.random() * float64(len(s.m.Roads)))
	if idx >= len(s.m.Roads) {
		idx = len(s.m.Roads) - 1
	}
	r := s.m.Roads[idx]
	if r.IsHorizontal() {
		lo, hi := r.Start.X, r.End.X
		if lo > hi {
			lo, hi = hi, lo
		}
		x := lo + s.random()*(hi-lo)
		return geom.Point{X: x, Y: r.Start.Y}
	}
	lo, hi := r.Start.Y, r.End.Y
	if lo > hi {
		lo, hi = hi, lo
	}
	y := lo + s.random()*(hi-lo)
	return geom.Point{X: r.Start.X, Y: y}
}

// AddAvatar creates and registers a new avatar for a just-joined player.
func (s *Session) AddAvatar(name string, randomizeSpawn bool) *Avatar {
	spawn := s.spawnPoint(randomizeSpawn)
	a := newAvatar(s.counters.NextAvatar(), name, spawn, s.m.DogSpeed, s.m.BagCapacity)
	s.avatars = append(s.avatars, a)
	return a
}

// AddRestoredAvatar re-registers an avatar reconstructed from a snapshot,
// without allocating a new id or touching the id counter.
func (s *Session) AddRestoredAvatar(a *Avatar) {
	s.avatars = append(s.avatars, a)
}

// AddRestoredLoot re-registers loot reconstructed from a snapshot.
func (s *Session) AddRestoredLoot(l *Loot) {
	s.loots = append(s.loots, l)
}

// GenerateLoot invokes the session's loot generator and places any newly
// spawned items, each with a uniformly chosen catalog type and an always-
// randomized road position.
func (s *Session) GenerateLoot(dtSeconds float64) {
	if len(s.m.LootTypes) == 0 {
		return
	}
	n := s.generator.Generate(dtSeconds, len(s.loots), len(s.avatars))
	for i := 0; i < n; i++ {
		lootType := int(s.random() * float64(len(s.m.LootTypes)))
		if lootType >= len(s.m.LootTypes) {
			lootType = len(s.m.LootTypes) - 1
		}
		l := &Loot{
			ID:       s.counters.NextLoot(),
			Type:     lootType,
			Value:    s.m.LootValue(lootType),
			Position: s.randomRoadPoint(),
		}
		s.loots = append(s.loots, l)
	}
}

// MoveAvatars advances every avatar by dtSeconds in registration order and
// returns the swept gatherer segments for the collision kernel.
func (s *Session) MoveAvatars(dtSeconds float64) []geom.Gatherer {
	gatherers := make([]geom.Gatherer, 0, len(s.avatars))
	for _, a := range s.avatars {
		gatherers = append(gatherers, a.Move(s.m, dtSeconds))
	}
	return gatherers
}

// GatherLoots runs the collision kernel against the session's current loot
// plus the map's offices (appended with the reserved sentinel id), and
// settles pickup/deposit events in ascending event-time order: the fastest
// reacher wins contested loot, and a deposit at an office sweeps whatever
// is in the bag at that geometric instant.
func (s *Session) GatherLoots(gatherers []geom.Gatherer) {
	items := make([]geom.Item, 0, len(s.loots)+len(s.m.Offices))
	for _, l := range s.loots {
		items = append(items, geom.Item{ID: l.ID, Position: l.Position, Width: 0})
	}
	for _, o := range s.m.Offices {
		items = append(items, geom.Item{ID: officeSentinelID, Position: o.Position, Width: world.OfficeWidth})
	}

	events := geom.FindGatherEvents(items, gatherers)
	// FindGatherEvents already sorts by time; office entries share id 0,
	// so resolve ties by stable event order (already guaranteed).
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })

	for _, ev := range events {
		avatar := s.FindAvatar(ev.GathererID)
		if avatar == nil {
			continue
		}
		if ev.ItemID == officeSentinelID {
			avatar.unloadBag()
			continue
		}
		loot := s.FindLoot(ev.ItemID)
		if loot == nil {
			continue // already claimed by a faster avatar this sweep
		}
		if avatar.tryGatherLoot(loot) {
			s.removeLoot(loot.ID)
		}
	}
}

// unloadBag sums carried loot into score and empties the bag.
func (a *Avatar) unloadBag() {
	for _, item := range a.Bag {
		a.Score += item.Value
	}
	a.Bag = a.Bag[:0]
}

// tryGatherLoot adds l to the bag if there is room. A full bag makes the
// pickup a no-op and the loot remains on the ground.
func (a *Avatar) tryGatherLoot(l *Loot) bool {
	if len(a.Bag) >= a.BagCapacity {
		return false
	}
	a.Bag = append(a.Bag, LootItem{Type: l.Type, Value: l.Value})
	return true
}

// IdleTimeExceeds reports whether the avatar has been idle at least
// thresholdSeconds.
func (a *Avatar) IdleTimeExceeds(thresholdSeconds float64) bool {
	return a.IdleTimeSeconds >= thresholdSeconds || math.Abs(a.IdleTimeSeconds-thresholdSeconds) < 1e-10
}
