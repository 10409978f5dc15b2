// Package cli implements the reportctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

const usage = `usage: reportctl [--config path] <command> [options]
commands: warm, status, progress, reset`

// Factory opens a Reporter from cfg. The returned closer releases its backends.
type Factory func(ctx context.Context, cfg *config.Config, log logger.Logger) (report.Reporter, io.Closer, error)

// DefaultFactory opens the configured backends.
func DefaultFactory(ctx context.Context, cfg *config.Config, log logger.Logger) (report.Reporter, io.Closer, error) {
	svc, store, err := report.GetService(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return svc, store, nil
}

type CLI struct {
	Out        io.Writer
	Logger     logger.Logger
	NewService Factory
	// LoadConfig defaults to config.Load.
	LoadConfig func(path string) (*config.Config, error)
}

// Run executes the CLI with the given arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("reportctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "config.yaml", "path to the YAML configuration")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}

	var run func(context.Context, report.Reporter, []string) error
	switch rest[0] {
	case "warm":
		run = c.runWarm
	case "status":
		run = c.runStatus
	case "progress":
		run = c.runProgress
	case "reset":
		run = c.runReset
	default:
		return fmt.Errorf("unknown command: %s\n%s", rest[0], usage)
	}

	load := c.LoadConfig
	if load == nil {
		load = config.Load
	}
	cfg, err := load(*configPath)
	if err != nil {
		return err
	}

	svc, closer, err := c.NewService(ctx, cfg, c.Logger)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	return run(ctx, svc, rest[1:])
}

func (c *CLI) runWarm(ctx context.Context, svc report.Reporter, args []string) error {
	fs := flag.NewFlagSet("warm", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	untilDone := fs.Bool("until-done", false, "repeat until the report is published")
	maxSteps := fs.Int("max-steps", 0, "stop after this many steps (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *maxSteps < 0 {
		return errors.New("--max-steps must not be negative")
	}

	if *untilDone {
		res, err := svc.WarmUntilDone(ctx, *maxSteps)
		if err != nil {
			return err
		}
		return c.print(res)
	}
	res, err := svc.Warm(ctx)
	if err != nil {
		return err
	}
	return c.print(res)
}

func (c *CLI) runStatus(ctx context.Context, svc report.Reporter, _ []string) error {
	return c.print(svc.Status(ctx))
}

func (c *CLI) runProgress(ctx context.Context, svc report.Reporter, _ []string) error {
	p, err := svc.Progress(ctx)
	if err != nil {
		return err
	}
	return c.print(p)
}

func (c *CLI) runReset(ctx context.Context, svc report.Reporter, _ []string) error {
	if err := svc.Reset(ctx); err != nil {
		return err
	}
	return c.print(map[string]bool{"ok": true, "cleared": true})
}

func (c *CLI) print(v any) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
