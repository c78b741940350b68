// Package orbsim runs a strategy script over many seeded runs and reports
// the aggregate outcome.
package orbsim

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/scripting"
)

// Config holds simulation settings.
type Config struct {
	Script     string
	Runs       int
	Seed       string
	ClientSeed string
	Nonce      uint64
	MaxSteps   int
	Timeout    time.Duration
	Verbose    bool
	JSON       bool
}

// ParseConfig parses flags into a Config. The script path may be given with
// -script or as the first positional argument.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Runs: 100, ClientSeed: "orbsim", Nonce: 1, MaxSteps: scripting.DefaultMaxSteps, Timeout: 250 * time.Millisecond}
	fs.StringVar(&cfg.Script, "script", "", "path to the strategy script")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "number of runs")
	fs.StringVar(&cfg.Seed, "seed", "", "base server seed (random when empty)")
	fs.StringVar(&cfg.ClientSeed, "client-seed", cfg.ClientSeed, "client seed")
	fs.Uint64Var(&cfg.Nonce, "nonce", cfg.Nonce, "nonce of the first run")
	fs.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "action cap per run")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "limit per decide() call")
	fs.BoolVar(&cfg.Verbose, "v", false, "print every run")
	fs.BoolVar(&cfg.JSON, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Script == "" && fs.NArg() > 0 {
		cfg.Script = fs.Arg(0)
	}
	if cfg.Script == "" {
		return Config{}, errors.New("a strategy script is required")
	}
	return cfg, nil
}

type runPrinter struct {
	out io.Writer
}

func (p runPrinter) RecordRun(r scripting.RunResult) {
	if r.Stalled {
		fmt.Fprintf(p.out, "run %4d nonce %-6d stalled after %d steps at level %d\n", r.Run, r.Nonce, r.Steps, r.Level)
		return
	}
	fmt.Fprintf(p.out, "run %4d nonce %-6d %-8s level %-3d delta %+5d steps %d\n", r.Run, r.Nonce, r.Reason, r.Level, r.Delta, r.Steps)
}

// Run loads the script, simulates and writes the report to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	src, err := os.ReadFile(cfg.Script)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if cfg.Seed == "" {
		seed, err := engine.NewServerSeed()
		if err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
		cfg.Seed = seed
	}

	sim, err := scripting.NewSimulator(string(src), scripting.Options{
		Runs:        cfg.Runs,
		BaseSeed:    cfg.Seed,
		ClientSeed:  cfg.ClientSeed,
		FirstNonce:  cfg.Nonce,
		MaxSteps:    cfg.MaxSteps,
		CallTimeout: cfg.Timeout,
	})
	if err != nil {
		return err
	}
	if cfg.Verbose && !cfg.JSON {
		sim.SetRecorder(runPrinter{out: out})
	}

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Seed       string            `json:"seed"`
			ClientSeed string            `json:"clientSeed"`
			Nonce      uint64            `json:"firstNonce"`
			Report     *scripting.Report `json:"report"`
		}{cfg.Seed, cfg.ClientSeed, cfg.Nonce, report})
	}

	s := report.Stats
	fmt.Fprintf(out, "seed %s  client seed %s  nonces %d..%d\n", cfg.Seed, cfg.ClientSeed, cfg.Nonce, cfg.Nonce+uint64(s.Runs)-1)
	fmt.Fprintf(out, "runs %d  cash-outs %d  deaths %d  stalled %d  (%.1f%% cashed out)\n", s.Runs, s.CashOuts, s.Deaths, s.Stalled, s.CashOutRate())
	fmt.Fprintf(out, "delta mean %.2f  min %d  max %d  total %d  profitable %d\n", s.MeanDelta, s.MinDelta, s.MaxDelta, s.TotalDelta, s.Profitable)
	fmt.Fprintf(out, "deepest level %d  steps %d  rejected %d  bought %d  elapsed %s\n", s.DeepestLevel, s.Steps, s.Rejected, s.Bought, report.Elapsed.Round(time.Millisecond))
	if report.Stopped {
		fmt.Fprintln(out, "stopped by script")
	}
	if cfg.Verbose {
		for _, l := range sim.Logs() {
			fmt.Fprintf(out, "log %s %s\n", l.Time.Format(time.TimeOnly), l.Message)
		}
	}
	return nil
}
