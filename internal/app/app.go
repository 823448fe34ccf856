// Package app is the use-case façade: a thin command layer that serializes
// every read and write against the live game state behind a single lock.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/strayfetch/fetchserver/internal/apperr"
	"github.com/strayfetch/fetchserver/internal/leaderboard"
	"github.com/strayfetch/fetchserver/internal/players"
	"github.com/strayfetch/fetchserver/internal/session"
	"github.com/strayfetch/fetchserver/internal/snapshot"
	"github.com/strayfetch/fetchserver/internal/world"
)

// Listener is notified after every Tick completes, still under the engine
// lock. The core keeps this to a single enumerated hook (snapshot
// persistence) rather than an open-ended subscription list.
type Listener interface {
	OnTick(delta time.Duration)
}

// MapSummary is the REST-facing {id,name} projection of a map.
type MapSummary struct {
	ID   string
	Name string
}

// JoinResult is returned by JoinGame.
type JoinResult struct {
	Token    players.Token
	AvatarID uint64
}

// StateAvatar is the REST-facing per-avatar projection of GetState.
type StateAvatar struct {
	ID    uint64             `json:"id"`
	Pos   [2]float64         `json:"pos"`
	Speed [2]float64         `json:"speed"`
	Dir   string             `json:"dir"`
	Bag   []session.LootItem `json:"bag"`
	Score int                `json:"score"`
}

// StateLoot is the REST-facing per-loot projection of GetState.
type StateLoot struct {
	ID   uint64     `json:"id"`
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

// State is the full GetState response.
type State struct {
	Players []StateAvatar `json:"players"`
	Loots   []StateLoot   `json:"lostObjects"`
}

// App is the single-writer façade over the live game.
type App struct {
	mu sync.Mutex

	game     *world.Game
	players  *players.Registry
	counters *session.IDCounters
	board    leaderboard.Store

	randomizeSpawnPoints bool
	random               session.RandomSource

	listeners []Listener
}

// New wires a façade over an already-populated map registry.
func New(game *world.Game, board leaderboard.Store, randomizeSpawnPoints bool, random session.RandomSource) *App {
	if random == nil {
		random = func() float64 { return 0 }
	}
	return &App{
		game:                 game,
		players:              players.NewRegistry(),
		counters:             &session.IDCounters{},
		board:                board,
		randomizeSpawnPoints: randomizeSpawnPoints,
		random:               random,
	}
}

// AddListener registers l to be notified after every Tick.
func (a *App) AddListener(l Listener) {
	a.listeners = append(a.listeners, l)
}

// Counters exposes the shared id counters, e.g. for snapshot capture.
func (a *App) Counters() *session.IDCounters { return a.counters }

// PlayerRegistry exposes the player registry for snapshot capture.
func (a *App) PlayerRegistry() *players.Registry { return a.players }

// sessionFor returns the session bound to m, creating and registering one
// on first use.
func (a *App) sessionFor(m *world.Map) *session.Session {
	if existing, ok := a.game.FindSession(m.ID); ok {
		return existing.(*session.Session)
	}
	s := session.New(m, a.counters, a.game.LootPeriodSeconds(), a.game.LootProbability(), a.random)
	a.game.AddSession(s)
	a.players.BindSession(m.ID, s)
	return s
}

// RestoreSession installs a session reconstructed from a snapshot,
// preserving its persisted id counters.
func (a *App) RestoreSession(s *session.Session) {
	a.game.AddSession(s)
	a.players.BindSession(s.MapID(), s)
}

// GetMaps lists every registered map.
func (a *App) GetMaps() []MapSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	maps := a.game.Maps()
	out := make([]MapSummary, 0, len(maps))
	for _, m := range maps {
		out = append(out, MapSummary{ID: m.ID, Name: m.Name})
	}
	return out
}

// GetMap returns the full map description, or MapNotFound.
func (a *App) GetMap(id string) (*world.Map, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.game.FindMap(id)
	if m == nil {
		return nil, apperr.New(apperr.MapNotFound, "Map not found")
	}
	return m, nil
}

// JoinGame creates a new avatar on mapID for name and returns its token.
func (a *App) JoinGame(name, mapID string) (JoinResult, error) {
	if name == "" {
		return JoinResult{}, apperr.New(apperr.InvalidArgument, "Invalid name")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.game.FindMap(mapID)
	if m == nil {
		return JoinResult{}, apperr.New(apperr.MapNotFound, "Map not found")
	}
	s := a.sessionFor(m)
	avatar := s.AddAvatar(name, a.randomizeSpawnPoints)

	token, err := players.NewToken()
	if err != nil {
		return JoinResult{}, fmt.Errorf("join game: %w", err)
	}
	a.players.Add(token, mapID, avatar.ID)

	return JoinResult{Token: token, AvatarID: avatar.ID}, nil
}

// GetPlayers lists every active player in token's own session — never
// players on another map's session.
func (a *App) GetPlayers(token players.Token) (map[uint64]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.players.Find(token)
	if err != nil {
		return nil, apperr.New(apperr.UnknownToken, "Player token has not been found")
	}
	return a.players.ListInSession(p.SessID), nil
}

// GetState returns a by-value snapshot of the session belonging to token's
// avatar.
func (a *App) GetState(token players.Token) (State, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.players.Find(token)
	if err != nil {
		return State{}, apperr.New(apperr.UnknownToken, "Player token has not been found")
	}
	sessIface, ok := a.game.FindSession(p.SessID)
	if !ok {
		return State{}, apperr.New(apperr.UnknownToken, "Player token has not been found")
	}
	s := sessIface.(*session.Session)

	var out State
	for _, av := range s.Avatars() {
		out.Players = append(out.Players, StateAvatar{
			ID:    av.ID,
			Pos:   [2]float64{av.Position.X, av.Position.Y},
			Speed: [2]float64{av.Speed.X, av.Speed.Y},
			Dir:   string(rune(av.Dir)),
			Bag:   append([]session.LootItem(nil), av.Bag...),
			Score: av.Score,
		})
	}
	for _, l := range s.Loots() {
		out.Loots = append(out.Loots, StateLoot{ID: l.ID, Type: l.Type, Pos: [2]float64{l.Position.X, l.Position.Y}})
	}
	return out, nil
}

// ChangeDir rotates token's avatar.
func (a *App) ChangeDir(token players.Token, dir session.Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	avatar, err := a.players.Avatar(token)
	if err != nil {
		return apperr.New(apperr.UnknownToken, "Player token has not been found")
	}
	avatar.ChangeDir(dir)
	return nil
}

// Tick advances every session by delta, then runs gather settlement and
// the retirement sweep, then notifies listeners — all atomically relative
// to every other façade operation.
func (a *App) Tick(delta time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dtSeconds := delta.Seconds()
	for _, sessIface := range a.game.Sessions() {
		s := sessIface.(*session.Session)
		s.GenerateLoot(dtSeconds)
		gatherers := s.MoveAvatars(dtSeconds)
		s.GatherLoots(gatherers)
	}

	a.collectRetired(dtSeconds)

	for _, l := range a.listeners {
		l.OnTick(delta)
	}
}

// collectRetired evicts every avatar idle at least as long as the
// configured retirement threshold, recording a leaderboard entry. Store
// failures are logged, never propagated — the player is evicted either
// way.
func (a *App) collectRetired(_ float64) {
	threshold := a.game.RetirementTimeSeconds()
	for _, p := range a.players.Pairs() {
		sessIface, ok := a.game.FindSession(p.SessID)
		if !ok {
			continue
		}
		s := sessIface.(*session.Session)
		avatar := s.FindAvatar(p.AvatarID)
		if avatar == nil || !avatar.IdleTimeExceeds(threshold) {
			continue
		}

		stats, err := a.players.Remove(p.Token)
		if err != nil {
			slog.Error("retirement collector: remove player", "token", p.Token, "error", err)
			continue
		}

		slog.Info("avatar retired", "name", stats.Name, "score", stats.Score,
			"playTime", humanize.FormatFloat("", stats.PlayTimeSeconds))

		if a.board == nil {
			continue
		}
		rec := leaderboard.Record{
			Name:           stats.Name,
			Score:          stats.Score,
			PlayTimeMillis: int64(stats.PlayTimeSeconds * 1000),
		}
		if err := a.board.Save(context.Background(), rec); err != nil {
			slog.Error("retirement collector: save leaderboard record", "error", err)
		}
	}
}

// GetRecords returns up to limit leaderboard rows starting at offset.
// limit above leaderboard.MaxLimit is rejected before reaching the store.
func (a *App) GetRecords(ctx context.Context, offset, limit int) ([]leaderboard.Record, error) {
	if limit <= 0 {
		limit = leaderboard.DefaultLimit
	}
	if limit > leaderboard.MaxLimit {
		return nil, apperr.New(apperr.InvalidArgument, "maxItems exceeds the allowed limit")
	}
	if a.board == nil {
		return nil, errors.New("leaderboard store not configured")
	}
	return a.board.Query(ctx, offset, limit)
}

// Snapshot captures the full engine state for persistence.
func (a *App) Snapshot() *snapshot.State {
	a.mu.Lock()
	defer a.mu.Unlock()

	var st snapshot.State
	for _, sessIface := range a.game.Sessions() {
		s := sessIface.(*session.Session)
		ss := snapshot.SessionState{
			MapID:        s.MapID(),
			NextAvatarID: a.counters.NextAvatarID,
			NextLootID:   a.counters.NextLootID,
		}
		for _, av := range s.Avatars() {
			ss.Avatars = append(ss.Avatars, snapshot.FromAvatar(av))
		}
		for _, l := range s.Loots() {
			ss.Loots = append(ss.Loots, snapshot.FromLoot(l))
		}
		st.Sessions = append(st.Sessions, ss)
	}
	for _, p := range a.players.Pairs() {
		st.Players = append(st.Players, snapshot.FromPlayer(p))
	}
	return &st
}
