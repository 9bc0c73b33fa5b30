package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/eigerco/tollbridge/internal/affirming"
	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/limits"
	"github.com/eigerco/tollbridge/internal/state"
	"github.com/eigerco/tollbridge/internal/store"
)

func (s *Server) affirm(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req affirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.bridge.Affirm(r.Context(), affirming.Affirmation{
		Recipient: req.Recipient,
		Value:     *req.Value.Int(),
		TxHash:    req.TxHash,
	}, from)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := affirmResponse{Key: res.Key, Count: res.Outcome.Count, Completed: res.Outcome.JustCompleted}
	if res.Outcome.JustCompleted {
		resp.Decision = res.Decision.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitSignature(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req signatureRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.bridge.SubmitSignature(r.Context(), req.Signature, req.Message, from)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signatureResponse{
		MessageHash: res.MessageHash,
		Count:       res.Outcome.Count,
		Completed:   res.Outcome.JustCompleted,
	})
}

func (s *Server) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	sender, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req withdrawalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	net, err := s.bridge.RequestWithdrawal(r.Context(), sender, req.Value.Int())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalResponse{Released: amountOf(net)})
}

func (s *Server) remediate(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req remediationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.bridge.Remediate(r.Context(), from, req.TxHash, req.Forward)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeferralView(d))
}

func (s *Server) setLimits(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dir, err := direction(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req limitsRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	change := limits.Change{}
	if req.DailyLimit != nil {
		change.DailyLimit = req.DailyLimit.Int()
	}
	if req.MaxPerTx != nil {
		change.MaxPerTx = req.MaxPerTx.Int()
	}
	if req.MinPerTx != nil {
		change.MinPerTx = req.MinPerTx.Int()
	}
	if err := s.bridge.SetLimits(r.Context(), from, dir, change); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeLimits(w, dir)
}

func (s *Server) resetSpent(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dir, err := direction(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.bridge.ResetDailySpent(r.Context(), from, dir); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeLimits(w, dir)
}

func (s *Server) affirmation(w http.ResponseWriter, r *http.Request) {
	key, err := hashVar(r, "key")
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.bridge.AffirmationRecord(key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordView{Key: key, Count: rec.Count, Completed: rec.IsCompleted()})
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	hash, err := hashVar(r, "hash")
	if err != nil {
		s.writeError(w, err)
		return
	}
	msg, err := s.bridge.MessageFor(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.bridge.MessageRecord(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sigs, err := s.bridge.Signatures(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := messageView{
		Hash:       hash,
		Message:    msg,
		Count:      rec.Count,
		Completed:  rec.IsCompleted(),
		Signatures: make([]Bytes, 0, len(sigs)),
	}
	for _, sig := range sigs {
		view.Signatures = append(view.Signatures, sig)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) signature(w http.ResponseWriter, r *http.Request) {
	hash, err := hashVar(r, "hash")
	if err != nil {
		s.writeError(w, err)
		return
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: index: %v", errBadRequest, err))
		return
	}
	sig, err := s.bridge.SignatureAt(hash, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]Bytes{"signature": sig})
}

func (s *Server) limits(w http.ResponseWriter, r *http.Request) {
	dir, err := direction(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeLimits(w, dir)
}

func (s *Server) writeLimits(w http.ResponseWriter, dir state.Direction) {
	l, err := s.bridge.Limits(dir)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLimitsView(dir, l))
}

func (s *Server) outOfLimit(w http.ResponseWriter, _ *http.Request) {
	v, err := s.bridge.OutOfLimitAmount()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]Amount{"amount": amountOf(v)})
}

func (s *Server) deferral(w http.ResponseWriter, r *http.Request) {
	txHash, err := hashVar(r, "txHash")
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, found, err := s.bridge.Deferral(txHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		s.writeError(w, fmt.Errorf("deferral %s: %w", txHash, store.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, newDeferralView(d))
}

func (s *Server) tollConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.bridge.TollConfig()
	writeJSON(w, http.StatusOK, tollView{Fee: Amount(cfg.Fee), Destination: cfg.Destination})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := uintParam(q.Get("from"), 0)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: from: %v", errBadRequest, err))
		return
	}
	limit, err := uintParam(q.Get("limit"), 0)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: limit: %v", errBadRequest, err))
		return
	}
	evs, err := s.bridge.Events(from, int(min(limit, common.DefaultEventPageSize)))
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := eventsView{Events: make([]eventView, 0, len(evs)), Next: from}
	for _, e := range evs {
		view.Events = append(view.Events, newEventView(e))
		view.Next = e.Entry.Seq + 1
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) verifyEvents(w http.ResponseWriter, _ *http.Request) {
	n, err := s.bridge.VerifyEventLog()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": n})
}

func (s *Server) messageLength(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"length": s.bridge.RequiredMessageLength()})
}

func direction(r *http.Request) (state.Direction, error) {
	dir, err := state.ParseDirection(mux.Vars(r)["direction"])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return dir, nil
}

func hashVar(r *http.Request, name string) (crypto.Hash, error) {
	h, err := crypto.HashFromHex(mux.Vars(r)[name])
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return h, nil
}

func uintParam(v string, def uint64) (uint64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}
