package mocknode

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/usopp-send/rpc-race/internal/chain"
)

// Server exposes the ledger over the node's HTTP transaction API.
type Server struct {
	ledger *Ledger
}

func NewServer(l *Ledger) *Server { return &Server{ledger: l} }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/account/{pubkey}", s.handleAccount)
	r.Get("/blockhash/latest", s.handleBlockhash)
	r.Post("/tx", s.handleSubmit)
	r.Get("/tx/{sig}/status", s.handleStatus)
	r.Post("/tx/simulate", s.handleSimulate)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCoded(w http.ResponseWriter, cerr *CodedError) {
	status := http.StatusUnprocessableEntity
	if cerr.Code == chain.CodeUnknownAccount {
		status = http.StatusNotFound
	}
	writeJSON(w, status, cerr)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "slot": s.ledger.Slot()})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	pubkey := chi.URLParam(r, "pubkey")
	if _, err := chain.DecodePubkey(pubkey); err != nil {
		writeCoded(w, coded(chain.CodeUnknownAccount, "bad pubkey %s", pubkey))
		return
	}
	bal, ok, err := s.ledger.Balance(pubkey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		writeCoded(w, coded(chain.CodeUnknownAccount, "unknown account %s", pubkey))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pubkey": pubkey, "balance": bal})
}

func (s *Server) handleBlockhash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"blockhash": s.ledger.LatestBlockhash(),
		"slot":      s.ledger.Slot(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var tx chain.SignedTx
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "bad transaction body", http.StatusBadRequest)
		return
	}
	sig, cerr := s.ledger.Submit(tx)
	if cerr != nil {
		writeCoded(w, cerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signature": sig.String()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sig := chain.Signature(chi.URLParam(r, "sig"))
	st, err := s.ledger.Status(sig)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var tx chain.SignedTx
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "bad transaction body", http.StatusBadRequest)
		return
	}
	code, msg, logs := s.ledger.Simulate(tx)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      code == "",
		"code":    code,
		"message": msg,
		"logs":    logs,
	})
}
