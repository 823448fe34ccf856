// Command fetchserver runs the lost-and-found game server: it loads a map
// configuration file, restores any saved snapshot, and serves both the
// JSON game API and the static frontend bundle over HTTP.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strayfetch/fetchserver/internal/app"
	"github.com/strayfetch/fetchserver/internal/apperr"
	"github.com/strayfetch/fetchserver/internal/config"
	"github.com/strayfetch/fetchserver/internal/leaderboard"
	"github.com/strayfetch/fetchserver/internal/players"
	"github.com/strayfetch/fetchserver/internal/restapi"
	"github.com/strayfetch/fetchserver/internal/session"
	"github.com/strayfetch/fetchserver/internal/snapshot"
	"github.com/strayfetch/fetchserver/internal/staticfiles"
	"github.com/strayfetch/fetchserver/internal/ticker"
	"github.com/strayfetch/fetchserver/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("parse flags", "error", err)
		os.Exit(1)
	}

	gameCfg, err := config.LoadGameConfig(flags.ConfigFile)
	if err != nil {
		slog.Error("load game configuration", "error", err)
		os.Exit(1)
	}

	dbURL := os.Getenv("GAME_DB_URL")
	if dbURL == "" {
		slog.Error("GAME_DB_URL environment variable is required")
		os.Exit(1)
	}
	ctx := context.Background()
	board, err := leaderboard.Open(ctx, dbURL)
	if err != nil {
		slog.Error("open leaderboard store", "error", err)
		os.Exit(1)
	}
	defer board.Close()

	game := world.NewGame(gameCfg.LootPeriodSeconds, gameCfg.LootProbability, gameCfg.DogRetirementTime.Seconds())
	for _, m := range gameCfg.Maps {
		if err := game.AddMap(m); err != nil {
			slog.Error("register map", "error", err)
			os.Exit(1)
		}
	}

	application := app.New(game, board, flags.RandomizeSpawnPoints, cryptoRandSource())

	if flags.StateFile != "" && snapshot.Exists(flags.StateFile) {
		state, err := snapshot.Load(flags.StateFile)
		if err != nil {
			slog.Error("load snapshot", "error", err)
			os.Exit(1)
		}
		restoreSnapshot(application, game, state)
		slog.Info("restored snapshot", "path", flags.StateFile, "sessions", len(state.Sessions))
	}

	tk := ticker.New(flags.TickPeriod, application.Tick)
	if flags.StateFile != "" && flags.SaveStatePeriod > 0 {
		application.AddListener(&periodicSnapshotter{
			app:    application,
			path:   flags.StateFile,
			period: flags.SaveStatePeriod,
		})
	}

	restServer := &restapi.Server{App: application, Ticker: tk}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/", restServer.Router())
	mux.Handle("/api/", http.HandlerFunc(unknownAPIPath))
	mux.Handle("/", staticfiles.New(flags.WWWRoot))

	httpServer := &http.Server{
		Addr:        ":8080",
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", httpServer.Addr, "tickMode", tickModeName(tk))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go tk.Run()

	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	tk.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", "error", err)
	}

	if flags.StateFile != "" {
		if err := snapshot.Save(flags.StateFile, application.Snapshot()); err != nil {
			slog.Error("final snapshot save", "error", err)
		} else {
			slog.Info("final snapshot saved", "path", flags.StateFile)
		}
	}
}

// unknownAPIPath answers any /api/* request outside the versioned
// /api/v1/ prefix with the documented badRequest body, rather than
// letting it fall through to the static file handler.
func unknownAPIPath(w http.ResponseWriter, r *http.Request) {
	err := apperr.New(apperr.BadRequest, "Invalid endpoint")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(map[string]string{
		"code":    err.Code(),
		"message": err.Message,
	})
}

func tickModeName(t *ticker.Ticker) string {
	if t.External() {
		return "external"
	}
	return "internal"
}

// restoreSnapshot rebuilds every session, avatar, and loot item from state,
// preserving the persisted id counters and player bindings exactly.
func restoreSnapshot(application *app.App, game *world.Game, state *snapshot.State) {
	counters := application.Counters()
	for _, ss := range state.Sessions {
		m := game.FindMap(ss.MapID)
		if m == nil {
			slog.Warn("snapshot references unknown map, skipping", "mapId", ss.MapID)
			continue
		}
		s := session.New(m, counters, game.LootPeriodSeconds(), game.LootProbability(), cryptoRandSource())
		for _, as := range ss.Avatars {
			s.AddRestoredAvatar(as.Restore())
		}
		for _, ls := range ss.Loots {
			s.AddRestoredLoot(ls.Restore())
		}
		if counters.NextAvatarID < ss.NextAvatarID {
			counters.NextAvatarID = ss.NextAvatarID
		}
		if counters.NextLootID < ss.NextLootID {
			counters.NextLootID = ss.NextLootID
		}
		application.RestoreSession(s)
	}
	for _, ps := range state.Players {
		application.PlayerRegistry().Add(players.Token(ps.Token), ps.MapID, ps.AvatarID)
	}
}

// cryptoRandSource adapts crypto/rand to the session.RandomSource contract
// (a uniform draw in [0,1)), matching the opaque-token generator's choice
// of a cryptographic source over a seeded PRNG.
func cryptoRandSource() session.RandomSource {
	return func() float64 {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return 0
		}
		return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
	}
}

type periodicSnapshotter struct {
	app         *app.App
	path        string
	period      time.Duration
	accumulated time.Duration
}

func (p *periodicSnapshotter) OnTick(delta time.Duration) {
	p.accumulated += delta
	if p.accumulated < p.period {
		return
	}
	p.accumulated = 0
	if err := snapshot.Save(p.path, p.app.Snapshot()); err != nil {
		slog.Error("periodic snapshot save", "error", err)
	}
}
