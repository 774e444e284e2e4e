// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Command handlers.
//
// Every handler renders into a buffer first. The buffer goes to stdout,
// or atomically to --output, so a failed write never leaves half a report.

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jeranaias/bqprobe/internal/config"
	"github.com/jeranaias/bqprobe/internal/logger"
	"github.com/jeranaias/bqprobe/internal/probe"
	"github.com/jeranaias/bqprobe/internal/report"
	"github.com/jeranaias/bqprobe/internal/scenario"
	"github.com/jeranaias/bqprobe/internal/util"
	"github.com/jeranaias/bqprobe/internal/warehouse"
)

// Session is an authenticated warehouse the commands run against.
type Session interface {
	probe.Warehouse
	scenario.Store
	Identity() probe.Identity
	Close() error
}

// ConnectFunc opens a Session.
type ConnectFunc func(ctx context.Context, s warehouse.Settings) (Session, error)

// ConnectBigQuery opens a real BigQuery session.
func ConnectBigQuery(ctx context.Context, s warehouse.Settings) (Session, error) {
	c, err := warehouse.Connect(ctx, s)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// App holds the dependencies of every command.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// Fs receives --output files and credential reads.
	Fs      afero.Fs
	Loader  *config.Loader
	Connect ConnectFunc
	// Logger overrides the logger built from configuration.
	Logger *zap.Logger
	Now    func() time.Time
	// Width of text report separators. Zero means report.DefaultWidth.
	Width int
}

// NewApp returns an App wired to the process environment.
func NewApp() *App {
	return &App{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Fs:      afero.NewOsFs(),
		Loader:  config.NewLoader(),
		Connect: ConnectBigQuery,
		Now:     time.Now,
		Width:   ReportWidth(),
	}
}

// Run executes the parsed command.
func (a *App) Run(ctx context.Context, args Args) error {
	switch args.Command {
	case CmdHelp:
		PrintUsage(a.Stdout)
		return nil
	case CmdVersion:
		if args.JSON {
			return NewJSONResponse("version", NewVersionData()).Print(a.Stdout)
		}
		PrintVersion(a.Stdout)
		return nil
	}

	cfg, source, err := a.Loader.Load(args.ConfigPath)
	if err != nil {
		return NewCommandError("config", "load", "cannot read configuration", err)
	}
	args.Apply(cfg)

	if args.Command == CmdConfig {
		return a.showConfig(args, cfg, source)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log := a.Logger
	if log == nil {
		if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
			return NewValidationError("log settings", cfg.Log.Level+"/"+cfg.Log.Format, err.Error())
		}
		log = logger.L()
	}
	log = log.With(zap.String("command", args.Command.String()))
	if source != "" {
		log.Debug("config loaded", zap.String("path", source))
	}

	sess, err := a.Connect(ctx, warehouse.Settings{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		CredentialsFile: cfg.CredentialsFile,
		Fs:              a.Fs,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("close warehouse session", zap.Error(cerr))
		}
	}()

	switch args.Command {
	case CmdSummary:
		return a.summary(ctx, args, cfg, sess, log)
	case CmdUpload:
		res := scenario.Upload(ctx, sess, cfg.TableRef(), scenario.UploadOptions{Now: a.now})
		return a.scenario(args, res, log)
	case CmdRead:
		return a.scenario(args, scenario.Read(ctx, sess, cfg.TableRef(), args.TestWrite), log)
	case CmdPipeline:
		opts := scenario.PipelineOptions{
			SourceTable:    cfg.TableID,
			ProcessedTable: cfg.Pipeline.ProcessedTableID,
			LookbackDays:   cfg.Pipeline.LookbackDays,
			MonitorDays:    cfg.Pipeline.MonitorDays,
			Monitor:        args.Monitor,
			Now:            a.now,
		}
		if args.HasSeed {
			opts.Rand = rand.New(rand.NewSource(args.Seed))
		}
		return a.scenario(args, scenario.Pipeline(ctx, sess, cfg.DatasetRef(), opts), log)
	default:
		return NewValidationError("command", args.Command.String(), "not runnable")
	}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// summary runs the permission probes. NONE access returns ErrNoAccess after
// the report is written.
func (a *App) summary(ctx context.Context, args Args, cfg *config.Config, sess Session, log *zap.Logger) error {
	prober := probe.New(sess, probe.Options{
		ProbeTable:      cfg.TableID,
		TempTablePrefix: cfg.Probe.TempTablePrefix,
		ProbeTimeout:    cfg.Probe.Timeout,
		CleanupTimeout:  cfg.Probe.CleanupTimeout,
		Identity:        sess.Identity(),
		Logger:          log,
		Now:             a.Now,
	})
	rep := prober.Run(ctx, cfg.DatasetRef())

	var outcome error
	if !rep.Level().HasAccess() {
		outcome = fmt.Errorf("%w %s", ErrNoAccess, rep.Dataset())
	}

	var buf bytes.Buffer
	if args.JSON {
		data := report.NewAccessData(rep, cfg.TableID)
		resp := NewJSONResponse("summary", data)
		if outcome != nil {
			resp = NewJSONFailure("summary", data, outcome.Error())
		}
		if err := resp.Print(&buf); err != nil {
			return err
		}
	} else if err := report.WriteAccess(&buf, rep, report.AccessOptions{ProbeTable: cfg.TableID, Width: a.Width}); err != nil {
		return err
	}

	if err := a.emit(args, buf.Bytes()); err != nil {
		return err
	}
	return outcome
}

// scenario renders a scenario result. A failed result returns ErrTestFailed
// after the report is written.
func (a *App) scenario(args Args, res *scenario.Result, log *zap.Logger) error {
	log.Debug("scenario finished",
		zap.String("scenario", res.Name),
		zap.Bool("passed", res.Passed),
		zap.Int("steps", len(res.Steps)),
	)

	var outcome error
	if !res.Passed {
		outcome = fmt.Errorf("%w: %s", ErrTestFailed, res.Verdict)
	}

	var buf bytes.Buffer
	if args.JSON {
		data := report.NewScenarioData(res)
		resp := NewJSONResponse(args.Command.String(), data)
		if outcome != nil {
			resp = NewJSONFailure(args.Command.String(), data, outcome.Error())
		}
		if err := resp.Print(&buf); err != nil {
			return err
		}
	} else if err := report.WriteScenario(&buf, res, a.Width); err != nil {
		return err
	}

	if err := a.emit(args, buf.Bytes()); err != nil {
		return err
	}
	return outcome
}

// showConfig prints the effective configuration. Validation problems are
// listed but do not fail the command.
func (a *App) showConfig(args Args, cfg *config.Config, source string) error {
	var problems []string
	if err := cfg.Validate(); err != nil {
		var verrs config.ValidateErrors
		if errors.As(err, &verrs) {
			for _, v := range verrs {
				problems = append(problems, v.Error())
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	var buf bytes.Buffer
	if args.JSON {
		data := ConfigData{Source: source, Config: cfg, Problems: problems}
		if err := NewJSONResponse("config", data).Print(&buf); err != nil {
			return err
		}
	} else {
		if source == "" {
			source = "(defaults and environment only)"
		}
		fmt.Fprintf(&buf, "# source: %s\n", source)
		buf.WriteString(cfg.String())
		for _, p := range problems {
			fmt.Fprintf(&buf, "# problem: %s\n", p)
		}
	}
	return a.emit(args, buf.Bytes())
}

// emit writes a finished report to stdout or to --output.
func (a *App) emit(args Args, data []byte) error {
	if args.Output == "" {
		_, err := a.Stdout.Write(data)
		return err
	}
	if err := util.AtomicWriteFile(a.Fs, args.Output, data, 0o644); err != nil {
		return NewCommandError(args.Command.String(), "write report", args.Output, err)
	}
	fmt.Fprintf(a.Stderr, "Report written to %s\n", args.Output)
	return nil
}
