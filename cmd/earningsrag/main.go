// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/earningsrag"
	"github.com/poiesic/earningsrag/config"
	"github.com/poiesic/earningsrag/core"
)

// Exit codes by error class.
const (
	exitFailure       = 1
	exitInvalid       = 2
	exitNotFound      = 3
	exitConflict      = 4
	exitUpstream      = 5
	exitConfiguration = 6
)

func main() {
	a := &app{out: os.Stdout, errOut: os.Stderr}
	if err := a.cliApp().Run(os.Args); err != nil {
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
}

// app holds what commands share. Tests swap the writers and pass database
// options such as a mock model provider.
type app struct {
	out       io.Writer
	errOut    io.Writer
	dbOptions []earningsrag.Option
}

func (a *app) cliApp() *cli.App {
	return &cli.App{
		Name:      "earningsrag",
		Usage:     "Ask questions about earnings call transcripts",
		Writer:    a.out,
		ErrWriter: a.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (default: ./earningsrag.yaml, then ~/.config/earningsrag/config.yaml)",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Environment files to load before reading the config",
			},
		},
		Before:   a.setupLogger,
		Commands: a.commands(),
	}
}

func (a *app) setupLogger(c *cli.Context) error {
	var level slog.Level
	switch levelStr := strings.ToLower(c.String("log-level")); levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("%w: invalid log level %q: must be one of debug, info, warn, error", core.ErrInvalid, levelStr)
	}

	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads env files, then the config file named by --config or
// the default locations.
func (a *app) loadConfig(c *cli.Context) (*config.Config, error) {
	if files := c.StringSlice("env-file"); len(files) > 0 {
		if err := config.LoadEnvFiles(files...); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
	}
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded config", "path", path)
	return cfg, nil
}

// openDatabase loads the config, lets adjust override it and opens the
// database.
func (a *app) openDatabase(c *cli.Context, adjust func(*config.Config)) (*earningsrag.Database, error) {
	cfg, err := a.loadConfig(c)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	return earningsrag.Open(cfg, a.dbOptions...)
}

func exitCode(err error) int {
	switch core.Classify(err) {
	case core.ClassInvalid:
		return exitInvalid
	case core.ClassNotFound:
		return exitNotFound
	case core.ClassConflict:
		return exitConflict
	case core.ClassUpstream:
		return exitUpstream
	case core.ClassConfiguration:
		return exitConfiguration
	default:
		return exitFailure
	}
}
