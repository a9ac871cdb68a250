package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"

	"galaxy-generator/internal/config"
	"galaxy-generator/internal/galaxy"
)

// GalaxyEnv is what the galaxy subcommands act on. The toggle callbacks are optional.
type GalaxyEnv struct {
	Context    context.Context
	Controller *galaxy.Controller
	Logger     *slog.Logger
	PresetDir  string
	ConfigPath string

	SetShowFPS      func(bool)
	SetShowMemAlloc func(bool)
	SetAutoRotate   func(bool)
}

// RegisterGalaxy adds set, params, regen, preset, config, fps, memalloc, rotate and help.
func RegisterGalaxy(r *Registry, env GalaxyEnv) {
	if env.Context == nil {
		env.Context = context.Background()
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.PresetDir == "" {
		env.PresetDir = config.PresetDir
	}
	if env.ConfigPath == "" {
		env.ConfigPath = config.DefaultPath
	}
	logger := env.Logger.With("component", "commands")

	r.Register("set", "set <field> <value>", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("set")
		return fs, func() error {
			if fs.NArg() != 2 {
				return fmt.Errorf("usage: set <field> <value>")
			}
			store := env.Controller.Store()
			if err := store.Set(fs.Arg(0), fs.Arg(1)); err != nil {
				return err
			}
			return env.Controller.Regenerate(env.Context)
		}
	})

	r.Register("params", "params", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("params")
		return fs, func() error {
			store := env.Controller.Store()
			for _, c := range galaxy.Controls() {
				v, err := store.Get(c.Name)
				if err != nil {
					return err
				}
				logger.Info("Parameter", "name", c.Name, "value", v)
			}
			return nil
		}
	})

	r.Register("regen", "regen [-seed N]", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("regen")
		seed := fs.Int64("seed", -1, "seed for this and later generations (0 = time based)")
		return fs, func() error {
			if *seed >= 0 {
				env.Controller.Reseed(*seed)
			}
			return env.Controller.Regenerate(env.Context)
		}
	})

	r.Register("preset", "preset -save NAME | -load NAME", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("preset")
		save := fs.String("save", "", "save current parameters as NAME")
		load := fs.String("load", "", "load parameters from NAME and regenerate")
		return fs, func() error {
			switch {
			case *save != "" && *load != "":
				return errors.New("preset: use either -save or -load")
			case *save != "":
				if err := config.SavePreset(env.PresetDir, *save, env.Controller.Store().Snapshot()); err != nil {
					return err
				}
				logger.Info("Preset saved", "name", *save)
				return nil
			case *load != "":
				p, err := config.LoadPreset(env.PresetDir, *load)
				if err != nil {
					return err
				}
				if err := env.Controller.Store().Replace(p); err != nil {
					return err
				}
				logger.Info("Preset loaded", "name", *load)
				return env.Controller.Regenerate(env.Context)
			default:
				return errors.New("preset: need -save NAME or -load NAME")
			}
		}
	})

	r.Register("config", "config -save", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("config")
		save := fs.Bool("save", false, "write the current parameters into the config file")
		return fs, func() error {
			if !*save {
				return errors.New("config: need -save")
			}
			cfg, err := config.Load(env.ConfigPath)
			if err != nil {
				return err
			}
			cfg.Galaxy = env.Controller.Store().Snapshot()
			if err := config.Save(env.ConfigPath, cfg); err != nil {
				return err
			}
			logger.Info("Config saved", "path", env.ConfigPath)
			return nil
		}
	})

	registerToggle(r, "fps", "show", "hide", env.SetShowFPS)
	registerToggle(r, "memalloc", "show", "hide", env.SetShowMemAlloc)
	registerToggle(r, "rotate", "on", "off", env.SetAutoRotate)

	r.Register("help", "help", func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet("help")
		return fs, func() error {
			for _, name := range r.Names() {
				usage, _ := r.Usage(name)
				logger.Info("cmd "+usage)
			}
			return nil
		}
	})
}

// registerToggle adds "name -on|-off" style commands. Nothing is registered when set is nil.
func registerToggle(r *Registry, name, on, off string, set func(bool)) {
	if set == nil {
		return
	}
	r.Register(name, fmt.Sprintf("%s -%s | -%s", name, on, off), func() (*flag.FlagSet, func() error) {
		fs := NewFlagSet(name)
		enable := fs.Bool(on, false, "enable")
		disable := fs.Bool(off, false, "disable")
		return fs, func() error {
			if *enable == *disable {
				return fmt.Errorf("%s: need exactly one of -%s or -%s", name, on, off)
			}
			set(*enable)
			return nil
		}
	})
}
