package main

import (
	"context"
	"fmt"
	"os"

	"galaxy-generator/internal/commands"
	"galaxy-generator/internal/config"
	"galaxy-generator/internal/debug"
	"galaxy-generator/internal/env"
	"galaxy-generator/internal/galaxy"
	"galaxy-generator/internal/graphics"
	"galaxy-generator/internal/logger"
	"galaxy-generator/internal/scene"
	"galaxy-generator/internal/terminal"
	"galaxy-generator/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfgPath := env.String("GALAXY_CONFIG", config.DefaultPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	seed, err := env.Int64("GALAXY_SEED", cfg.Seed)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level: env.String("GALAXY_LOG_LEVEL", cfg.Logging.Level),
		JSON:  env.Bool("GALAXY_LOG_JSON", cfg.Logging.JSON),
	})
	defer log.Close()
	log.Info("Starting galaxy generator", "config", cfgPath, "seed", seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scn := scene.New(cfg.Camera)
	store := galaxy.NewStore(cfg.Galaxy)
	ctl := galaxy.NewController(store, galaxy.NewGenerator(scn, seed), log.Logger)
	defer ctl.Close()
	if err := ctl.Regenerate(ctx); err != nil {
		return err
	}

	dbg := debug.New()
	dbg.SetShowFPS(cfg.Debug.ShowFPS)
	dbg.SetShowMemAlloc(cfg.Debug.ShowMemAlloc)
	dbg.PointCount = ctl.PointCount

	reg := commands.NewRegistry()
	commands.RegisterGalaxy(reg, commands.GalaxyEnv{
		Context:         ctx,
		Controller:      ctl,
		Logger:          log.Logger,
		ConfigPath:      cfgPath,
		SetShowFPS:      dbg.SetShowFPS,
		SetShowMemAlloc: dbg.SetShowMemAlloc,
		SetAutoRotate:   scn.SetAutoRotate,
	})
	term := terminal.New(log, reg)

	// Saving the config file counts as finishing an edit.
	w, err := watch.NewFile(cfgPath, 0, func() {
		next, err := config.Load(cfgPath)
		if err != nil {
			log.Error("Config reload failed", "error", err)
			return
		}
		if err := store.Replace(next.Galaxy); err != nil {
			log.Error("Config reload rejected", "error", err)
			return
		}
		if err := ctl.Regenerate(ctx); err != nil {
			return
		}
		log.Info("Config reloaded", "count", next.Galaxy.Count)
	}, log.Logger)
	if err != nil {
		log.Warn("Config hot reload disabled", "error", err)
	} else {
		defer w.Close()
		go func() { _ = w.Run(ctx) }()
	}

	update := func() {
		term.Update()
		scn.Update()
	}
	draw := func() {
		scn.Draw()
		dbg.Draw()
		term.Draw()
	}
	graphics.Run(cfg.Window, update, draw, scn.Unload)
	return nil
}
