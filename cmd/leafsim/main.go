package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/leafsys/internal/config"
	"github.com/l1jgo/leafsys/internal/core/event"
	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/data"
	"github.com/l1jgo/leafsys/internal/persist"
	"github.com/l1jgo/leafsys/internal/scripting"
	"github.com/l1jgo/leafsys/internal/system"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(level string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              leafsim  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      leaf system frame simulator          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mlevel:\033[0m %s\n\n", level)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/leafsim.toml"
	if p := os.Getenv("LEAFSYS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Level, spawn list and prop scripts
	lvl, err := data.LoadLevel(cfg.Sim.Level)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	printBanner(lvl.Name)

	printSection("data")
	spawns, err := data.LoadSpawnList(cfg.Sim.SpawnList)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	printStat("leaves", lvl.Count())
	printStat("spawn entries", len(spawns))

	scripts, err := scripting.NewEngine(cfg.Sim.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	printStat("scripted props", len(scripts.Props()))
	fmt.Println()

	// 4. Optional telemetry database
	var sink system.TelemetrySink
	var levelID int64
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		repo := persist.NewTelemetryRepo(db)
		levelID, err = repo.UpsertLevel(ctx, lvl.Name, lvl.Checksum, lvl.Count())
		if err != nil {
			return fmt.Errorf("register level: %w", err)
		}
		sink = repo
		fmt.Println()
	}

	// 5. Scene
	printSection("scene")
	bus := event.NewBus()
	ws := world.NewState(cfg.Leaf, lvl, scripts, bus, log)
	if err := ws.SpawnAll(spawns); err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	printStat("objects", ws.ObjectCount())
	printStat("renderables", ws.Leaf.RenderableCount())
	printStat("tree nodes", ws.Tree.NodeCount())
	fmt.Println()

	// 6. Systems
	stats := &persist.FrameStats{}
	center := ws.Tree.Bounds().Center()
	cam := &world.Camera{ID: 1, Origin: center, FOV: cfg.Sim.ViewFOV, Far: cfg.Sim.ViewFar}
	telemetry := system.NewTelemetrySystem(ws, sink, levelID, stats, cfg.Sim.TelemetryInterval, log)

	runner := coresys.NewRunner(cfg.Sim.TickRate, log)
	runner.Register(system.NewInputSystem(ws, log))
	runner.Register(system.NewMotionSystem(ws))
	runner.Register(system.NewReinsertSystem(ws, stats, log))
	runner.Register(system.NewShadowSystem(ws, cfg.Sim.ShadowDepth, stats, log))
	runner.Register(system.NewFlashlightSystem(ws, cam, cfg.Sim.FlashlightRadius, stats, log))
	runner.Register(system.NewViewSystem(ws, cam, cfg.Sim.Camera, cfg.Leaf.MaxGroupEntities, stats, log))
	runner.Register(telemetry)
	runner.Register(system.NewCleanupSystem(ws, log))

	// 7. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("frame loop started (tick: %s)", cfg.Sim.TickRate))
	if cfg.Sim.Frames > 0 {
		printReady(fmt.Sprintf("stopping after %d frames", cfg.Sim.Frames))
	}
	fmt.Println()

	stop := func(reason string) {
		telemetry.Flush()
		ws.Leaf.Shutdown()
		log.Info("simulation stopped",
			zap.String("reason", reason),
			zap.Int("frames", ws.Frame),
			zap.Int("telemetry_rows", telemetry.Flushed()),
		)
	}

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
			if cfg.Sim.Frames > 0 && ws.Frame >= cfg.Sim.Frames {
				stop("frame limit")
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			stop("signal")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	// invariant violations (DPanic) only panic when debugging
	zapCfg.Development = level == zapcore.DebugLevel
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
