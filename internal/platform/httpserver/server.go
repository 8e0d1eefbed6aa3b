package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	ballotservice "choices/contexts/polling-core/ballot-service"
	balloterrors "choices/contexts/polling-core/ballot-service/domain/errors"
	ballothttp "choices/contexts/polling-core/ballot-service/transport/http"
	pollservice "choices/contexts/polling-core/poll-service"
	pollerrors "choices/contexts/polling-core/poll-service/domain/errors"
	pollhttp "choices/contexts/polling-core/poll-service/transport/http"
	tabulationengine "choices/contexts/polling-core/tabulation-engine"
	tallyerrors "choices/contexts/polling-core/tabulation-engine/domain/errors"
	tallyhttp "choices/contexts/polling-core/tabulation-engine/transport/http"
	privacyservice "choices/contexts/privacy-analytics/privacy-service"
	privacyerrors "choices/contexts/privacy-analytics/privacy-service/domain/errors"
	privacyhttp "choices/contexts/privacy-analytics/privacy-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "choices/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	polls      pollservice.Module
	ballots    ballotservice.Module
	tabulation tabulationengine.Module
	privacy    privacyservice.Module
}

func New(
	polls pollservice.Module,
	ballots ballotservice.Module,
	tabulation tabulationengine.Module,
	privacy privacyservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		polls:      polls,
		ballots:    ballots,
		tabulation: tabulation,
		privacy:    privacy,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /v1/polls", s.handleListPolls)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/activate", s.handleActivatePoll)
	s.mux.HandleFunc("POST /v1/polls/{poll_id}/close", s.handleClosePoll)

	s.mux.HandleFunc("POST /v1/ballots", s.handleCastBallot)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/commitment", s.handleCommitment)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/ballots/{ballot_id}/proof", s.handleProof)

	s.mux.HandleFunc("GET /v1/polls/{poll_id}/tally", s.handleGetTally)

	s.mux.HandleFunc("POST /v1/polls/{poll_id}/disclosures", s.handleDisclose)
	s.mux.HandleFunc("GET /v1/polls/{poll_id}/privacy-budget", s.handleBudget)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	creatorID := r.Header.Get("X-User-Id")
	if strings.TrimSpace(creatorID) == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req pollhttp.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.CreatePollHandler(
		r.Context(),
		creatorID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListPollsHandler(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivatePoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ActivatePollHandler(
		r.Context(),
		r.PathValue("poll_id"),
		r.Header.Get("X-User-Id"),
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ClosePollHandler(
		r.Context(),
		r.PathValue("poll_id"),
		r.Header.Get("X-User-Id"),
		r.Header.Get("Idempotency-Key"),
	)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	voterID := r.Header.Get("X-User-Id")
	if strings.TrimSpace(voterID) == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballots.Handler.CastBallotHandler(
		r.Context(),
		voterID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.CommitmentHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.ProofHandler(
		r.Context(),
		r.PathValue("poll_id"),
		r.PathValue("ballot_id"),
	)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tabulation.Handler.GetTallyHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeTallyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisclose(w http.ResponseWriter, r *http.Request) {
	queryKey := r.Header.Get("Query-Key")
	if strings.TrimSpace(queryKey) == "" {
		queryKey = r.Header.Get("Idempotency-Key")
	}

	var req privacyhttp.DiscloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePrivacyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.privacy.Handler.DiscloseHandler(
		r.Context(),
		r.PathValue("poll_id"),
		queryKey,
		req,
	)
	if err != nil {
		writePrivacyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	resp, err := s.privacy.Handler.BudgetHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePrivacyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pollerrors.ErrInvalidPollInput):
		writePollError(w, http.StatusBadRequest, "invalid_poll_input", err.Error())
	case errors.Is(err, pollerrors.ErrPollNotFound):
		writePollError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidTransition),
		errors.Is(err, pollerrors.ErrPollClosed),
		errors.Is(err, pollerrors.ErrIdempotencyConflict),
		errors.Is(err, pollerrors.ErrConflict):
		writePollError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, pollerrors.ErrIdempotencyKeyRequired):
		writePollError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	default:
		writePollError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, balloterrors.ErrMalformedBallot):
		writeBallotError(w, http.StatusBadRequest, "malformed_ballot", err.Error())
	case errors.Is(err, balloterrors.ErrOptionNotInPoll),
		errors.Is(err, balloterrors.ErrCreditBudgetExceeded),
		errors.Is(err, balloterrors.ErrScoreOutOfRange),
		errors.Is(err, balloterrors.ErrDuplicateRanking):
		writeBallotError(w, http.StatusUnprocessableEntity, "invalid_selection", err.Error())
	case errors.Is(err, balloterrors.ErrPollNotFound),
		errors.Is(err, balloterrors.ErrBallotNotFound):
		writeBallotError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, balloterrors.ErrPollNotActive):
		writeBallotError(w, http.StatusConflict, "poll_not_active", err.Error())
	case errors.Is(err, balloterrors.ErrDuplicateBallot):
		writeBallotError(w, http.StatusConflict, "duplicate_ballot", err.Error())
	case errors.Is(err, balloterrors.ErrIdempotencyConflict),
		errors.Is(err, balloterrors.ErrConflict):
		writeBallotError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, balloterrors.ErrIdempotencyKeyRequired):
		writeBallotError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeTallyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tallyerrors.ErrPollNotFound):
		writeTallyError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, tallyerrors.ErrUnsupportedMethod):
		writeTallyError(w, http.StatusUnprocessableEntity, "unsupported_method", err.Error())
	case errors.Is(err, tallyerrors.ErrShapeMismatch):
		writeTallyError(w, http.StatusInternalServerError, "shape_mismatch", err.Error())
	default:
		writeTallyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePrivacyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, privacyerrors.ErrBudgetExceeded):
		writePrivacyError(w, http.StatusTooManyRequests, "budget_exceeded", err.Error())
	case errors.Is(err, privacyerrors.ErrLedgerUnavailable):
		writePrivacyError(w, http.StatusServiceUnavailable, "ledger_unavailable", err.Error())
	case errors.Is(err, privacyerrors.ErrInvalidDisclosureRequest),
		errors.Is(err, privacyerrors.ErrQueryKeyRequired):
		writePrivacyError(w, http.StatusBadRequest, "invalid_disclosure_request", err.Error())
	case errors.Is(err, privacyerrors.ErrPollNotFound):
		writePrivacyError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, privacyerrors.ErrResultUnavailable):
		writePrivacyError(w, http.StatusConflict, "result_unavailable", err.Error())
	case errors.Is(err, privacyerrors.ErrConflict):
		writePrivacyError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writePrivacyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeTallyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, tallyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writePrivacyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, privacyhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
