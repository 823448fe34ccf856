// Package snapshot implements the atomic, crash-safe persistence of engine
// state: every session's avatars and loot, the process-wide id counters,
// and the token-to-player table.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/strayfetch/fetchserver/internal/geom"
	"github.com/strayfetch/fetchserver/internal/players"
	"github.com/strayfetch/fetchserver/internal/session"
)

// AvatarState is the full persisted state of one avatar.
type AvatarState struct {
	ID              uint64             `json:"id"`
	Name            string             `json:"name"`
	X               float64            `json:"x"`
	Y               float64            `json:"y"`
	SpeedX          float64            `json:"speedX"`
	SpeedY          float64            `json:"speedY"`
	Dir             string             `json:"dir"`
	Bag             []session.LootItem `json:"bag"`
	Score           int                `json:"score"`
	MaxSpeed        float64            `json:"maxSpeed"`
	BagCapacity     int                `json:"bagCapacity"`
	PlayTimeSeconds float64            `json:"playTimeSeconds"`
	IdleTimeSeconds float64            `json:"idleTimeSeconds"`
}

// LootState is the full persisted state of one loot item.
type LootState struct {
	ID    uint64  `json:"id"`
	Type  int     `json:"type"`
	Value int     `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// SessionState is the full persisted state of one map's session.
type SessionState struct {
	MapID        string        `json:"mapId"`
	NextAvatarID uint64        `json:"nextAvatarId"`
	NextLootID   uint64        `json:"nextLootId"`
	Avatars      []AvatarState `json:"avatars"`
	Loots        []LootState   `json:"loots"`
}

// PlayerState is the full persisted state of one token->avatar binding.
type PlayerState struct {
	Token    string `json:"token"`
	MapID    string `json:"mapId"`
	AvatarID uint64 `json:"avatarId"`
}

// State is the top-level snapshot document.
type State struct {
	Sessions []SessionState `json:"sessions"`
	Players  []PlayerState  `json:"players"`
}

// FromAvatar captures an avatar's full persisted state.
func FromAvatar(a *session.Avatar) AvatarState {
	return AvatarState{
		ID: a.ID, Name: a.Name, X: a.Position.X, Y: a.Position.Y,
		SpeedX: a.Speed.X, SpeedY: a.Speed.Y, Dir: string(rune(a.Dir)),
		Bag: append([]session.LootItem(nil), a.Bag...), Score: a.Score,
		MaxSpeed: a.MaxSpeed, BagCapacity: a.BagCapacity,
		PlayTimeSeconds: a.PlayTimeSeconds, IdleTimeSeconds: a.IdleTimeSeconds,
	}
}

// Restore reconstructs a live Avatar from persisted state.
func (s AvatarState) Restore() *session.Avatar {
	dir := session.DirStop
	if len(s.Dir) == 1 {
		dir = session.Direction(s.Dir[0])
	}
	return session.RestoreAvatar(
		s.ID, s.Name,
		geom.Point{X: s.X, Y: s.Y}, geom.Vec{X: s.SpeedX, Y: s.SpeedY}, dir,
		append([]session.LootItem(nil), s.Bag...), s.Score,
		s.MaxSpeed, s.BagCapacity, s.PlayTimeSeconds, s.IdleTimeSeconds,
	)
}

// FromLoot captures a loot item's full persisted state.
func FromLoot(l *session.Loot) LootState {
	return LootState{ID: l.ID, Type: l.Type, Value: l.Value, X: l.Position.X, Y: l.Position.Y}
}

// Restore reconstructs a live Loot from persisted state.
func (s LootState) Restore() *session.Loot {
	return &session.Loot{ID: s.ID, Type: s.Type, Value: s.Value, Position: geom.Point{X: s.X, Y: s.Y}}
}

// FromPlayer captures a player's persisted binding.
func FromPlayer(p *players.Player) PlayerState {
	return PlayerState{Token: string(p.Token), MapID: p.SessID, AvatarID: p.AvatarID}
}

// Save serializes state to a sibling `<path>~` file, closes it, then
// atomically renames it over path, so a crash mid-write never corrupts an
// existing snapshot.
func Save(path string, state *State) error {
	tmp := path + "~"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(state); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads and parses a snapshot file. The caller must already have
// checked the path exists and is non-empty; a missing path is a cold
// start, not a Load error.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}

// Exists reports whether path names a non-empty file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
