package scripting

import (
	"math"

	"github.com/MJE43/moonrock-orbs/internal/game"
)

// RunResult is the outcome of one simulated run.
type RunResult struct {
	Run      int            `json:"run"`
	Nonce    uint64         `json:"nonce"`
	Reason   game.EndReason `json:"reason,omitempty"`
	Delta    int64          `json:"delta"`
	Level    uint32         `json:"level"`
	Steps    int            `json:"steps"`
	Rejected int            `json:"rejected"`
	Bought   int            `json:"bought"`
	// Stalled is set when the run hit the step cap before completing.
	Stalled bool `json:"stalled"`
}

// Statistics aggregates RunResults. Stalled runs count toward Runs but not
// toward the delta figures.
type Statistics struct {
	Runs         int     `json:"runs"`
	CashOuts     int     `json:"cashOuts"`
	Deaths       int     `json:"deaths"`
	Stalled      int     `json:"stalled"`
	TotalDelta   int64   `json:"totalDelta"`
	MeanDelta    float64 `json:"meanDelta"`
	MinDelta     int64   `json:"minDelta"`
	MaxDelta     int64   `json:"maxDelta"`
	DeepestLevel uint32  `json:"deepestLevel"`
	Steps        int     `json:"steps"`
	Rejected     int     `json:"rejected"`
	Bought       int     `json:"bought"`
	// Profitable counts completed runs with a positive delta.
	Profitable int `json:"profitable"`
}

// NewStatistics returns empty statistics.
func NewStatistics() *Statistics {
	return &Statistics{MinDelta: math.MaxInt64, MaxDelta: math.MinInt64}
}

// RecordRun folds r into s.
func (s *Statistics) RecordRun(r RunResult) {
	s.Runs++
	s.Steps += r.Steps
	s.Rejected += r.Rejected
	s.Bought += r.Bought
	if r.Level > s.DeepestLevel {
		s.DeepestLevel = r.Level
	}
	if r.Stalled {
		s.Stalled++
		return
	}

	switch r.Reason {
	case game.EndCashOut:
		s.CashOuts++
	case game.EndDeath:
		s.Deaths++
	}
	if r.Delta > 0 {
		s.Profitable++
	}
	s.TotalDelta += r.Delta
	if r.Delta < s.MinDelta {
		s.MinDelta = r.Delta
	}
	if r.Delta > s.MaxDelta {
		s.MaxDelta = r.Delta
	}
	s.MeanDelta = float64(s.TotalDelta) / float64(s.completed())
}

func (s *Statistics) completed() int { return s.CashOuts + s.Deaths }

// Finalize zeroes the min/max sentinels when no run completed.
func (s *Statistics) Finalize() {
	if s.completed() == 0 {
		s.MinDelta, s.MaxDelta = 0, 0
	}
}

// CashOutRate returns the share of completed runs that ended by cashing out.
func (s *Statistics) CashOutRate() float64 {
	if s.completed() == 0 {
		return 0
	}
	return float64(s.CashOuts) / float64(s.completed()) * 100
}
