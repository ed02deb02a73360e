package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/wurban88/AI-Prompt-Game/internal/config"
	"github.com/wurban88/AI-Prompt-Game/internal/game"
	"github.com/wurban88/AI-Prompt-Game/internal/store"
	"github.com/wurban88/AI-Prompt-Game/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Prompt Wars - facilitated team prompt-engineering game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT        Port to listen on (default: 8080)
  DB_PATH     SQLite database file; empty keeps sessions in memory
  PRETTY_LOG  Human-friendly console logging (default: true)

Share links:
  Participants join with  ?game=<id>
  The facilitator joins with  ?game=<id>&role=facilitator
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("promptwars %s\n", version)
		return
	}

	cfg := config.Load()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.PrettyLog {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		zerologlog.Logger = zerologlog.Output(cw)
	}

	var st game.Store
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			zerologlog.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open store")
		}
		defer db.Close()
		st = db
		zerologlog.Info().Str("path", cfg.DBPath).Msg("using sqlite store")
	} else {
		st = store.NewMemory()
		zerologlog.Info().Msg("using in-memory store")
	}

	picker := game.NewPicker(game.DefaultChallenges, game.DefaultTwists, time.Now().UnixNano())
	engine := game.NewEngine(st, picker, clockwork.NewRealClock())
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	sock := ws.New(engine, st)
	io := sock.Mount(r)
	defer io.Close()

	// REST surface: create, full-aggregate state (what clients refetch on
	// every change event) and the round CSV export.
	r.POST("/api/games", func(c *gin.Context) {
		g, err := engine.CreateGame(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"gameId": g.ID})
	})

	r.GET("/api/games/:id/state", func(c *gin.Context) {
		snap, err := engine.Snapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, game.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "game_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	r.GET("/api/games/:id/export", func(c *gin.Context) {
		snap, err := engine.Snapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, game.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "game_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		filename := fmt.Sprintf("prompt-wars_round-%d.csv", snap.Game.CurrentRound)
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		if err := game.WriteRoundCSV(c.Writer, snap); err != nil {
			zerologlog.Error().Err(err).Str("gameId", snap.Game.ID).Msg("csv export failed")
		}
	})

	zerologlog.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
