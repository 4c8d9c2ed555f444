package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	electionregistry "electionledger/contexts/governance/election-registry"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	registryhttp "electionledger/contexts/governance/election-registry/transport/http"
	_ "electionledger/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	VoteRatePerSecond float64
	VoteRateBurst     int
}

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	registry    electionregistry.Module
	voteLimiter *principalLimiter
	httpServer  *http.Server
}

func New(
	registry electionregistry.Module,
	logger *slog.Logger,
	addr string,
	options Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		registry:    registry,
		voteLimiter: newPrincipalLimiter(options.VoteRatePerSecond, options.VoteRateBurst),
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/registry/initialize", s.handleInitializeRegistry)
	s.mux.HandleFunc("GET /v1/registry", s.handleGetRegistry)

	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /v1/elections", s.handleListElections)
	s.mux.HandleFunc("GET /v1/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/close", s.handleCloseElection)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/candidates", s.handleListCandidates)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/candidates", s.handleAddCandidate)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/voters", s.handleAuthorizeVoter)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/voters/{principal}", s.handleGetVoter)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/rewards", s.handleListRewards)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Initialize the registry
// @Tags registry
// @Param X-User-Id header string true "Caller principal"
// @Param body body registryhttp.InitializeRegistryRequest true "Token reward"
// @Success 201 {object} registryhttp.RegistryResponse
// @Failure 400 {object} registryhttp.ErrorResponse
// @Failure 409 {object} registryhttp.ErrorResponse
// @Router /v1/registry/initialize [post]
func (s *Server) handleInitializeRegistry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req registryhttp.InitializeRegistryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.registry.Handler.InitializeRegistryHandler(r.Context(), caller, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// @Summary Registry details
// @Tags registry
// @Success 200 {object} registryhttp.RegistryResponse
// @Failure 409 {object} registryhttp.ErrorResponse
// @Router /v1/registry [get]
func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.GetRegistryHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Create an election
// @Tags elections
// @Param X-User-Id header string true "Caller principal, becomes the election official"
// @Param Idempotency-Key header string false "Replay key"
// @Param body body registryhttp.CreateElectionRequest true "Election"
// @Success 201 {object} registryhttp.ElectionResponse
// @Failure 400 {object} registryhttp.ErrorResponse
// @Router /v1/elections [post]
func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req registryhttp.CreateElectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.registry.Handler.CreateElectionHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// @Summary List elections
// @Tags elections
// @Success 200 {object} registryhttp.ListElectionsResponse
// @Router /v1/elections [get]
func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.registry.Handler.ListElectionsHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Election details
// @Tags elections
// @Param election_id path int true "Election id"
// @Success 200 {object} registryhttp.ElectionResponse
// @Failure 404 {object} registryhttp.ErrorResponse
// @Router /v1/elections/{election_id} [get]
func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.GetElectionHandler(r.Context(), electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Close an election
// @Tags elections
// @Param X-User-Id header string true "Election official"
// @Param election_id path int true "Election id"
// @Success 200 {object} registryhttp.ElectionResponse
// @Failure 403 {object} registryhttp.ErrorResponse
// @Router /v1/elections/{election_id}/close [post]
func (s *Server) handleCloseElection(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.CloseElectionHandler(r.Context(), caller, electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary List candidates
// @Tags candidates
// @Param election_id path int true "Election id"
// @Success 200 {object} registryhttp.ListCandidatesResponse
// @Router /v1/elections/{election_id}/candidates [get]
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.ListCandidatesHandler(r.Context(), electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Add a candidate
// @Tags candidates
// @Param X-User-Id header string true "Election official"
// @Param Idempotency-Key header string false "Replay key"
// @Param election_id path int true "Election id"
// @Param body body registryhttp.AddCandidateRequest true "Candidate"
// @Success 201 {object} registryhttp.CandidateResponse
// @Failure 403 {object} registryhttp.ErrorResponse
// @Router /v1/elections/{election_id}/candidates [post]
func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	var req registryhttp.AddCandidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.registry.Handler.AddCandidateHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), electionID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// @Summary Authorize a voter
// @Tags voters
// @Param X-User-Id header string true "Election official"
// @Param election_id path int true "Election id"
// @Param body body registryhttp.AuthorizeVoterRequest true "Voter principal"
// @Success 200 {object} registryhttp.VoterResponse
// @Failure 403 {object} registryhttp.ErrorResponse
// @Router /v1/elections/{election_id}/voters [post]
func (s *Server) handleAuthorizeVoter(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	var req registryhttp.AuthorizeVoterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.registry.Handler.AuthorizeVoterHandler(r.Context(), caller, electionID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Voter details
// @Tags voters
// @Param election_id path int true "Election id"
// @Param principal path string true "Voter principal"
// @Success 200 {object} registryhttp.VoterResponse
// @Router /v1/elections/{election_id}/voters/{principal} [get]
func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.GetVoterHandler(r.Context(), electionID, r.PathValue("principal"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Cast a vote
// @Tags votes
// @Param X-User-Id header string true "Voter principal"
// @Param election_id path int true "Election id"
// @Param body body registryhttp.CastVoteRequest true "Candidate"
// @Success 200 {object} registryhttp.CastVoteResponse
// @Failure 403 {object} registryhttp.ErrorResponse
// @Failure 409 {object} registryhttp.ErrorResponse
// @Failure 422 {object} registryhttp.ErrorResponse
// @Failure 429 {object} registryhttp.ErrorResponse
// @Router /v1/elections/{election_id}/votes [post]
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if !s.voteLimiter.Allow(caller) {
		s.logger.Warn("vote rate limited",
			"event", "http_vote_rate_limited",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"caller", caller,
		)
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many vote attempts")
		return
	}
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	var req registryhttp.CastVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.registry.Handler.CastVoteHandler(r.Context(), caller, electionID, req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Ranked results
// @Tags elections
// @Param election_id path int true "Election id"
// @Success 200 {object} registryhttp.ResultsResponse
// @Router /v1/elections/{election_id}/results [get]
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.ResultsHandler(r.Context(), electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary Reward ledger for an election
// @Tags rewards
// @Param election_id path int true "Election id"
// @Success 200 {object} registryhttp.ListRewardsResponse
// @Router /v1/elections/{election_id}/rewards [get]
func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	electionID, ok := parseElectionID(w, r)
	if !ok {
		return
	}
	resp, err := s.registry.Handler.ListRewardsHandler(r.Context(), electionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrElectionNotFound):
		writeError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCandidateNotFound):
		writeError(w, http.StatusNotFound, "candidate_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrRewardNotFound):
		writeError(w, http.StatusNotFound, "reward_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrNotElectionOfficial):
		writeError(w, http.StatusForbidden, "not_election_official", err.Error())
	case errors.Is(err, domainerrors.ErrVoterNotAuthorized):
		writeError(w, http.StatusForbidden, "voter_not_authorized", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, "already_initialized", err.Error())
	case errors.Is(err, domainerrors.ErrRegistryNotInitialized):
		writeError(w, http.StatusConflict, "registry_not_initialized", err.Error())
	case errors.Is(err, domainerrors.ErrIdempotencyConflict),
		errors.Is(err, domainerrors.ErrIdempotencyKeyClaimed),
		errors.Is(err, domainerrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domainerrors.ErrElectionNotActive):
		writeError(w, http.StatusUnprocessableEntity, "election_not_active", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidElectionName),
		errors.Is(err, domainerrors.ErrInvalidDuration),
		errors.Is(err, domainerrors.ErrInvalidCandidateName),
		errors.Is(err, domainerrors.ErrInvalidRewardAmount),
		errors.Is(err, domainerrors.ErrInvalidPrincipal):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("unhandled election registry error",
			"event", "http_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func parseElectionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	electionID, err := strconv.ParseInt(r.PathValue("election_id"), 10, 64)
	if err != nil || electionID < 0 {
		writeError(w, http.StatusBadRequest, "invalid_election_id", "election_id must be a non-negative integer")
		return 0, false
	}
	return electionID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, registryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
