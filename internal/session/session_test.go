package session

import (
	"testing"

	"github.com/strayfetch/fetchserver/internal/geom"
	"github.com/strayfetch/fetchserver/internal/world"
)

func TestAvatarZeroVelocityAccumulatesIdleTime(t *testing.T) {
	counters := &IDCounters{}
	m := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 2)}}
	s := New(m, counters, 1, 1, nil)
	a := s.AddAvatar("alice", false)
	if a.Position.X != 0 || a.Position.Y != 0 {
		t.Fatalf("want spawn at origin, got %+v", a.Position)
	}
	s.MoveAvatars(1.0)
	if a.IdleTimeSeconds != 1.0 {
		t.Fatalf("want idle time 1.0, got %v", a.IdleTimeSeconds)
	}
	if a.PlayTimeSeconds != 1.0 {
		t.Fatalf("want play time 1.0, got %v", a.PlayTimeSeconds)
	}
}

func TestAvatarClampsAtRoadBoundary(t *testing.T) {
	counters := &IDCounters{}
	m := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	s := New(m, counters, 1, 1, nil)
	a := s.AddAvatar("alice", false)
	a.ChangeDir(DirRight)
	s.MoveAvatars(10.0) // would overshoot the road by far
	// The road ends at x=1; its navigable area extends 0.4 beyond that.
	if a.Position.X != 1.4 {
		t.Fatalf("want clamp to x=1.4, got %v", a.Position.X)
	}
	if a.Speed.X != 0 || a.Speed.Y != 0 {
		t.Fatalf("want zero speed after clamp, got %+v", a.Speed)
	}
}

func TestChangeDirResetsIdleTimeEvenOnStop(t *testing.T) {
	counters := &IDCounters{}
	m := &world.Map{ID: "m1", DogSpeed: 1, BagCapacity: 3, Roads: []world.Road{world.NewHorizontalRoad(0, 0, 1)}}
	s := New(m, counters, 1, 1, nil)
	a := s.AddAvatar("alice", false)
	a.IdleTimeSeconds = 5
	a.ChangeDir(DirStop)
	if a.IdleTimeSeconds != 0 {
		t.Fatalf("want idle time reset to 0 on Stop, got %v", a.IdleTimeSeconds)
	}
}

func TestGatherLootPickupAndDeposit(t *testing.T) {
	counters := &IDCounters{}
	m := &world.Map{
		ID: "m1", DogSpeed: 10, BagCapacity: 3,
		Roads:     []world.Road{world.NewHorizontalRoad(0, 0, 3)},
		Offices:   []world.Office{{ID: "o1", Position: geom.Point{X: 2, Y: 0}}},
		LootTypes: []world.LootType{{Value: 2}},
	}
	s := New(m, counters, 1, 1, nil)
	a := s.AddAvatar("alice", false)
	s.AddRestoredLoot(&Loot{ID: counters.NextLoot(), Type: 0, Value: 2, Position: geom.Point{X: 0.5, Y: 0}})
	a.ChangeDir(DirRight)

	gatherers := s.MoveAvatars(0.3) // covers 0..3 in one big step at speed 10
	s.GatherLoots(gatherers)

	if a.Score != 2 {
		t.Fatalf("want score 2 after pickup+deposit in one sweep, got %d", a.Score)
	}
	if len(a.Bag) != 0 {
		t.Fatalf("want empty bag after deposit, got %+v", a.Bag)
	}
}

func TestGatherLootFullBagIsNoOp(t *testing.T) {
	counters := &IDCounters{}
	m := &world.Map{
		ID: "m1", DogSpeed: 10, BagCapacity: 0,
		Roads:     []world.Road{world.NewHorizontalRoad(0, 0, 3)},
		LootTypes: []world.LootType{{Value: 2}},
	}
	s := New(m, counters, 1, 1, nil)
	a := s.AddAvatar("alice", false)
	s.AddRestoredLoot(&Loot{ID: counters.NextLoot(), Type: 0, Value: 2, Position: geom.Point{X: 0.5, Y: 0}})
	a.ChangeDir(DirRight)

	gatherers := s.MoveAvatars(1.0)
	s.GatherLoots(gatherers)

	if len(s.Loots()) != 1 {
		t.Fatalf("want loot to remain on the ground with a full bag, got %d loots", len(s.Loots()))
	}
}
