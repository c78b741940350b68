package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
)

// DefaultMaxSteps caps actions per run so a strategy that never ends a run
// cannot spin forever.
const DefaultMaxSteps = 2000

// Options configures a Simulator.
type Options struct {
	Runs        int
	BaseSeed    string
	ClientSeed  string
	FirstNonce  uint64
	MaxSteps    int
	CallTimeout time.Duration
}

// RunRecorder receives every finished run. Optional.
type RunRecorder interface {
	RecordRun(RunResult)
}

// Report is the result of a simulation.
type Report struct {
	Stats   *Statistics   `json:"stats"`
	Results []RunResult   `json:"results"`
	Elapsed time.Duration `json:"elapsed"`
	// Stopped is set when the script called stop() before all runs finished.
	Stopped bool `json:"stopped"`
}

// Simulator plays a strategy script over many independently seeded runs.
type Simulator struct {
	mu       sync.Mutex
	opts     Options
	vm       *VM
	recorder RunRecorder
}

// NewSimulator executes script once and checks that it defines decide().
func NewSimulator(script string, opts Options) (*Simulator, error) {
	if opts.Runs <= 0 {
		return nil, fmt.Errorf("runs must be > 0, got %d", opts.Runs)
	}
	if opts.BaseSeed == "" {
		return nil, errors.New("base seed is required")
	}
	if opts.ClientSeed == "" {
		opts.ClientSeed = "orbsim"
	}
	if opts.FirstNonce == 0 {
		opts.FirstNonce = 1
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	vm := NewVM()
	vm.SetCallTimeout(opts.CallTimeout)
	if err := vm.Execute(script); err != nil {
		return nil, err
	}
	if !vm.HasDecide() {
		return nil, errors.New("script must define a decide() function")
	}
	return &Simulator{opts: opts, vm: vm}, nil
}

// SetRecorder attaches a per-run recorder. Must be called before Run.
func (s *Simulator) SetRecorder(rec RunRecorder) {
	s.recorder = rec
}

// Logs returns the script's log buffer.
func (s *Simulator) Logs() []LogEntry { return s.vm.GetLogs() }

// SeedsFor returns the seeds and nonce used for run i. Every run shares the
// base server seed and client seed; the nonce advances per run.
func (s *Simulator) SeedsFor(i int) (engine.Seeds, uint64) {
	return engine.Seeds{Server: s.opts.BaseSeed, Client: s.opts.ClientSeed}, s.opts.FirstNonce + uint64(i)
}

// Run plays every run in order. It returns early with the partial report
// when ctx is cancelled or a script call fails.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := &Report{Stats: NewStatistics(), Results: make([]RunResult, 0, s.opts.Runs)}
	defer func() {
		report.Stats.Finalize()
		report.Elapsed = time.Since(start)
	}()

	for i := 0; i < s.opts.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.playRun(ctx, i)
		if err != nil {
			return report, fmt.Errorf("run %d: %w", i, err)
		}
		report.Stats.RecordRun(res)
		report.Results = append(report.Results, res)
		if s.recorder != nil {
			s.recorder.RecordRun(res)
		}
		if s.vm.IsStopRequested() {
			report.Stopped = true
			break
		}
	}
	return report, nil
}

func (s *Simulator) playRun(ctx context.Context, i int) (RunResult, error) {
	seeds, nonce := s.SeedsFor(i)
	m := game.NewMachine(engine.NewStream(seeds, nonce))
	res := RunResult{Run: i, Nonce: nonce}

	for res.Steps < s.opts.MaxSteps {
		if c, ok := m.State().(game.Complete); ok {
			res.Reason = c.Reason
			res.Delta = c.MoonrockDelta
			res.Level = c.Level
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		vars := VariablesFor(i, m)
		s.vm.SetVariables(vars)
		name, err := s.vm.CallDecide()
		if err != nil {
			return res, err
		}
		s.vm.SyncVariables(vars)

		kind, err := game.ParseActionKind(name)
		if err != nil {
			return res, err
		}
		a := game.Action{Kind: kind}
		if kind == game.BuyOrb {
			a.Slot = vars.Slot
		}

		res.Steps++
		if err := m.Perform(a); err != nil {
			res.Rejected++
			continue
		}
		if kind == game.BuyOrb {
			res.Bought++
		}
		if snap := m.Snapshot(); snap.Run != nil && snap.Run.Level > res.Level {
			res.Level = snap.Run.Level
		}
	}

	if c, ok := m.State().(game.Complete); ok {
		res.Reason = c.Reason
		res.Delta = c.MoonrockDelta
		res.Level = c.Level
		return res, nil
	}
	res.Stalled = true
	return res, nil
}
