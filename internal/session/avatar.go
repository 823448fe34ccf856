// Package session implements the per-map dynamic game state: avatars,
// loot, motion along roads, and gather-event settlement.
package session

import (
	"github.com/strayfetch/fetchserver/internal/geom"
	"github.com/strayfetch/fetchserver/internal/world"
)

// Direction is an avatar's facing/velocity direction.
type Direction byte

const (
	DirUp    Direction = 'U'
	DirDown  Direction = 'D'
	DirLeft  Direction = 'L'
	DirRight Direction = 'R'
	DirStop  Direction = 0
)

// LootItem is one piece of loot carried in an avatar's bag.
type LootItem struct {
	Type  int `json:"type"`
	Value int `json:"value"`
}

// Avatar is a player-controlled mobile entity ("dog" in the original game).
type Avatar struct {
	ID       uint64
	Name     string
	Position geom.Point
	Speed    geom.Vec
	Dir      Direction

	Bag         []LootItem
	Score       int
	MaxSpeed    float64
	BagCapacity int

	PlayTimeSeconds float64
	IdleTimeSeconds float64
}

// newAvatar places a freshly joined avatar at spawn, facing up, at rest.
func newAvatar(id uint64, name string, spawn geom.Point, maxSpeed float64, bagCapacity int) *Avatar {
	return &Avatar{
		ID:          id,
		Name:        name,
		Position:    spawn,
		Dir:         DirUp,
		MaxSpeed:    maxSpeed,
		BagCapacity: bagCapacity,
	}
}

// RestoreAvatar reconstructs an avatar from full persisted state, e.g. when
// loading a snapshot. Unlike newAvatar, every field is caller-supplied.
func RestoreAvatar(id uint64, name string, pos geom.Point, speed geom.Vec, dir Direction,
	bag []LootItem, score int, maxSpeed float64, bagCapacity int, playTime, idleTime float64) *Avatar {
	return &Avatar{
		ID: id, Name: name, Position: pos, Speed: speed, Dir: dir,
		Bag: bag, Score: score, MaxSpeed: maxSpeed, BagCapacity: bagCapacity,
		PlayTimeSeconds: playTime, IdleTimeSeconds: idleTime,
	}
}

// ChangeDir sets the avatar's facing and velocity. Stop zeroes velocity but
// preserves the last facing direction. Any call, including Stop, resets
// idle time to zero if it was non-zero — this is deliberately preserved
// even though it looks redundant with the motion code below.
func (a *Avatar) ChangeDir(dir Direction) {
	if dir != DirStop {
		a.Dir = dir
	}
	if a.IdleTimeSeconds != 0 {
		a.IdleTimeSeconds = 0
	}
	switch dir {
	case DirLeft:
		a.Speed = geom.Vec{X: -a.MaxSpeed, Y: 0}
	case DirRight:
		a.Speed = geom.Vec{X: a.MaxSpeed, Y: 0}
	case DirUp:
		a.Speed = geom.Vec{X: 0, Y: -a.MaxSpeed}
	case DirDown:
		a.Speed = geom.Vec{X: 0, Y: a.MaxSpeed}
	default:
		a.Speed = geom.Vec{X: 0, Y: 0}
	}
}

// Move advances the avatar by dtSeconds along its current velocity,
// clamping to road boundaries, and returns the swept gatherer segment for
// the collision kernel.
func (a *Avatar) Move(m *world.Map, dtSeconds float64) geom.Gatherer {
	a.PlayTimeSeconds += dtSeconds

	if geom.IsZero(a.Speed) {
		a.IdleTimeSeconds += dtSeconds
		return geom.Gatherer{ID: a.ID, Start: a.Position, End: a.Position, Width: world.AvatarWidth}
	}

	road := findAvatarRoad(m, a.Position, a.Speed)
	if road == nil {
		a.Speed = geom.Vec{}
		return geom.Gatherer{ID: a.ID, Start: a.Position, End: a.Position, Width: world.AvatarWidth}
	}

	newPos := a.Position.Add(a.Speed, dtSeconds)
	bounds := road.Bounds()
	if bounds.Contains(newPos) {
		old := a.Position
		a.Position = newPos
		return geom.Gatherer{ID: a.ID, Start: old, End: a.Position, Width: world.AvatarWidth}
	}

	old := a.Position
	a.Position = clampToBoundary(bounds, a.Position, a.Dir)
	a.Speed = geom.Vec{}
	return geom.Gatherer{ID: a.ID, Start: old, End: a.Position, Width: world.AvatarWidth}
}

// findAvatarRoad returns the road the avatar is moving on, preferring the
// road whose orientation matches the velocity when two roads meet at an
// intersection.
func findAvatarRoad(m *world.Map, pos geom.Point, speed geom.Vec) *world.Road {
	candidates := m.RoadsAt(pos)
	if len(candidates) == 0 {
		return nil
	}
	movingHorizontally := speed.Y == 0
	for _, r := range candidates {
		if movingHorizontally && r.IsHorizontal() {
			return r
		}
		if !movingHorizontally && r.IsVertical() {
			return r
		}
	}
	return candidates[0]
}

// clampToBoundary moves pos to the edge of bounds along the facing
// direction, leaving the cross-axis coordinate untouched.
func clampToBoundary(bounds geom.Rect, pos geom.Point, dir Direction) geom.Point {
	out := pos
	switch dir {
	case DirLeft:
		out.X = bounds.MinX
	case DirRight:
		out.X = bounds.MaxX
	case DirUp:
		out.Y = bounds.MinY
	case DirDown:
		out.Y = bounds.MaxY
	}
	return out
}
