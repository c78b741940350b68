package api

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/replay"
	"github.com/MJE43/moonrock-orbs/internal/session"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

const maxVerifyActions = 10000

// GET /api/v1/catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	all := orbs.All()
	s.writeJSON(w, http.StatusOK, CatalogResponse{
		Orbs:          all,
		Milestones:    game.Milestones(),
		PoolSize:      orbs.PoolSize(all),
		ShopSize:      game.ShopSize,
		EngineVersion: EngineVersion,
	})
}

// POST /api/v1/runs
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if len(req.ClientSeed) > 256 {
		s.errorHandler.HandleValidationError(w, r, "client_seed", "client_seed must be at most 256 bytes")
		return
	}
	if req.Nonce > math.MaxInt64 {
		s.errorHandler.HandleInputError(w, r, ErrTypeInvalidParams, "nonce", "nonce must not exceed 9223372036854775807")
		return
	}

	view, err := s.sessions.Create(session.CreateRequest{ClientSeed: req.ClientSeed, Nonce: req.Nonce})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "run_create", view.ID, "success", map[string]interface{}{
		"server_seed_hash": shortHash(view.ServerSeedHash),
		"nonce":            view.Nonce,
	})
	s.writeJSON(w, http.StatusCreated, RunResponse{Run: view, EngineVersion: EngineVersion})
}

// GET /api/v1/runs?page=&per_page=&phase=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := store.RunsQuery{
		Phase:   strings.TrimSpace(r.URL.Query().Get("phase")),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 50),
	}
	if q.Phase != "" {
		var p game.Phase
		if err := p.UnmarshalText([]byte(q.Phase)); err != nil {
			s.errorHandler.HandleInputError(w, r, ErrTypeInvalidParams, "phase", err.Error())
			return
		}
	}
	if q.PerPage > 500 {
		q.PerPage = 500
	}

	list, err := s.sessions.List(q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{Run: view, EngineVersion: EngineVersion})
}

// POST /api/v1/runs/{id}/actions
func (s *Server) handleApplyAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	action, err := toAction(req)
	if err != nil {
		s.errorHandler.HandleInputError(w, r, ErrTypeInvalidAction, "action", err.Error())
		return
	}

	view, err := s.sessions.Apply(chi.URLParam(r, "id"), action)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{Run: view, EngineVersion: EngineVersion})
}

// GET /api/v1/runs/{id}/actions
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(id); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	journal, err := s.sessions.Journal(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, JournalResponse{RunID: id, Actions: journal, EngineVersion: EngineVersion})
}

// POST /api/v1/verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}
	if req.ServerSeed == "" || req.ClientSeed == "" {
		s.errorHandler.HandleInputError(w, r, ErrTypeInvalidSeed, "seeds", "server and client seeds are required")
		return
	}
	if len(req.Actions) > maxVerifyActions {
		s.errorHandler.HandleValidationError(w, r, "actions", "too many actions")
		return
	}

	actions := make([]game.Action, len(req.Actions))
	for i, a := range req.Actions {
		action, err := toAction(a)
		if err != nil {
			s.errorHandler.HandleInputError(w, r, ErrTypeInvalidAction, "actions["+strconv.Itoa(i)+"]", err.Error())
			return
		}
		actions[i] = action
	}

	m, journal := replay.Run(req.Seeds(), req.Nonce, actions)

	s.securityLogger.LogAuditEvent(middleware.GetReqID(r.Context()), "verify", "replay", "success", map[string]interface{}{
		"server_seed_hash": HashForLog(req.ServerSeed),
		"nonce":            req.Nonce,
		"actions":          len(actions),
	})

	s.writeJSON(w, http.StatusOK, VerifyResponse{
		ServerSeedHash: engine.HashSeed(req.ServerSeed),
		State:          m.Snapshot(),
		Journal:        journal,
		EngineVersion:  EngineVersion,
		Echo:           req,
	})
}

func toAction(req ActionRequest) (game.Action, error) {
	kind, err := game.ParseActionKind(strings.TrimSpace(req.Action))
	if err != nil {
		return game.Action{}, err
	}
	if kind != game.BuyOrb && req.Slot != 0 {
		return game.Action{}, errors.New("slot is only valid for buy_orb")
	}
	return game.Action{Kind: kind, Slot: req.Slot}, nil
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
