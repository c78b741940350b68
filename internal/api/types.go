package api

import (
	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/replay"
	"github.com/MJE43/moonrock-orbs/internal/session"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidSeed   = "invalid_seed"
	ErrTypeInvalidAction = "invalid_action"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"

	// Game-related errors
	ErrTypeRunNotFound    = "run_not_found"
	ErrTypeActionRejected = "action_rejected"
	ErrTypeReplayMismatch = "replay_mismatch"

	// System errors
	ErrTypeUnauthorized = "unauthorized"
	ErrTypeTimeout      = "timeout"
	ErrTypeInternal     = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategoryAuth       ErrorCategory = "auth"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidSeed, ErrTypeInvalidAction, ErrTypeInvalidParams, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeRunNotFound, ErrTypeActionRejected, ErrTypeReplayMismatch:
		return CategoryGame
	case ErrTypeUnauthorized:
		return CategoryAuth
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// CatalogResponse lists the default orb catalog and milestone table
type CatalogResponse struct {
	Orbs          []orbs.Orb `json:"orbs"`
	Milestones    []uint32   `json:"milestones"`
	PoolSize      int        `json:"pool_size"`
	ShopSize      int        `json:"shop_size"`
	EngineVersion string     `json:"engine_version"`
}

// CreateRunRequest starts a run. Omitted fields are generated server-side.
type CreateRunRequest struct {
	ClientSeed string `json:"client_seed,omitempty"`
	Nonce      uint64 `json:"nonce,omitempty"`
}

// RunResponse wraps a run view
type RunResponse struct {
	Run           *session.View `json:"run"`
	EngineVersion string        `json:"engine_version"`
}

// ActionRequest is one action posted to a run
type ActionRequest struct {
	Action string `json:"action"`
	Slot   int    `json:"slot,omitempty"`
}

// JournalResponse lists a run's journaled actions
type JournalResponse struct {
	RunID         string         `json:"run_id"`
	Actions       []replay.Entry `json:"actions"`
	EngineVersion string         `json:"engine_version"`
}

// VerifyRequest replays a revealed run
type VerifyRequest struct {
	ServerSeed string          `json:"server_seed"`
	ClientSeed string          `json:"client_seed"`
	Nonce      uint64          `json:"nonce"`
	Actions    []ActionRequest `json:"actions"`
}

// Seeds returns the request's seed pair.
func (v VerifyRequest) Seeds() engine.Seeds {
	return engine.Seeds{Server: v.ServerSeed, Client: v.ClientSeed}
}

// VerifyResponse carries the replayed final state and per-action outcomes
type VerifyResponse struct {
	ServerSeedHash string         `json:"server_seed_hash"`
	State          game.Snapshot  `json:"state"`
	Journal        []replay.Entry `json:"journal"`
	EngineVersion  string         `json:"engine_version"`
	Echo           VerifyRequest  `json:"echo"`
}
