package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/eigerco/tollbridge/internal/bridge"
	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/metrics"
	"github.com/eigerco/tollbridge/internal/store"
	"github.com/eigerco/tollbridge/pkg/log"
)

// CallerHeader carries the address an operation is performed as. The
// node is expected to sit behind a gateway that authenticates it.
const CallerHeader = "X-Bridge-Caller"

const maxBodySize = 1 << 20

var errBadRequest = errors.New("bad request")

// Server exposes the bridge operations and queries over HTTP.
type Server struct {
	bridge  *bridge.Bridge
	metrics *metrics.Metrics
	router  *mux.Router
	log     zerolog.Logger
}

func NewServer(b *bridge.Bridge, m *metrics.Metrics) *Server {
	s := &Server{
		bridge:  b,
		metrics: m,
		router:  mux.NewRouter(),
		log:     log.API,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/affirmations", s.affirm).Methods(http.MethodPost)
	v1.HandleFunc("/affirmations/{key}", s.affirmation).Methods(http.MethodGet)
	v1.HandleFunc("/signatures", s.submitSignature).Methods(http.MethodPost)
	v1.HandleFunc("/withdrawals", s.requestWithdrawal).Methods(http.MethodPost)
	v1.HandleFunc("/messages/{hash}", s.message).Methods(http.MethodGet)
	v1.HandleFunc("/messages/{hash}/signatures/{index:[0-9]+}", s.signature).Methods(http.MethodGet)
	v1.HandleFunc("/limits/{direction}", s.limits).Methods(http.MethodGet)
	v1.HandleFunc("/out-of-limit", s.outOfLimit).Methods(http.MethodGet)
	v1.HandleFunc("/deferrals/{txHash}", s.deferral).Methods(http.MethodGet)
	v1.HandleFunc("/toll", s.tollConfig).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.events).Methods(http.MethodGet)
	v1.HandleFunc("/events/verify", s.verifyEvents).Methods(http.MethodGet)
	v1.HandleFunc("/message-length", s.messageLength).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/remediations", s.remediate).Methods(http.MethodPost)
	admin.HandleFunc("/limits/{direction}", s.setLimits).Methods(http.MethodPut)
	admin.HandleFunc("/limits/{direction}/reset", s.resetSpent).Methods(http.MethodPost)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func caller(r *http.Request) (crypto.Address, error) {
	v := r.Header.Get(CallerHeader)
	if v == "" {
		return crypto.Address{}, fmt.Errorf("%w: missing %s header", errBadRequest, CallerHeader)
	}
	addr, err := crypto.AddressFromHex(v)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%w: %s: %v", errBadRequest, CallerHeader, err)
	}
	return addr, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.API.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	code := common.Code(err)
	switch {
	case errors.Is(err, errBadRequest):
		code = "bad_request"
	case errors.Is(err, store.ErrNotFound):
		code = "not_found"
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	writeJSON(w, status, errorView{Error: err.Error(), Code: code})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, common.ErrMalformedMessage):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, common.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, common.ErrValueOutOfBounds),
		errors.Is(err, common.ErrValueBelowToll),
		errors.Is(err, common.ErrConfigurationInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrNotDeferred), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrSettlementFailed), errors.Is(err, common.ErrInsufficientAuthority):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
