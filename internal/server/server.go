// Package server exposes the intake and read surfaces over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/intake"
	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/store"
)

// Server holds the handler dependencies. Matching itself runs in the
// background dispatcher; the API only enqueues work and reads results.
type Server struct {
	store  store.Store
	intake *intake.Service
}

func New(st store.Store, svc *intake.Service) *Server {
	return &Server{store: st, intake: svc}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/files", s.handleCreateFile)
	r.Get("/files/{id}", s.handleGetFile)

	r.Post("/purchase-orders", s.handleCreatePO)
	r.Get("/purchase-orders", s.handleListPOs)
	r.Get("/purchase-orders/{id}", s.handleGetPO)

	r.Post("/bills-of-lading", s.handleCreateBOL)
	r.Get("/bills-of-lading", s.handleListBOLs)
	r.Get("/bills-of-lading/{id}", s.handleGetBOL)

	r.Post("/invoices", s.handleCreateInvoice)
	r.Get("/invoices", s.handleListInvoices)
	r.Get("/invoices/{id}", s.handleGetInvoice)
	r.Get("/invoices/{id}/match", s.handleGetMatch)
	r.Post("/invoices/{id}/match", s.handleRerunMatch)
	r.Post("/invoices/{id}/approve", s.decisionHandler(s.intake.Approve))
	r.Post("/invoices/{id}/dispute", s.decisionHandler(s.intake.Dispute))
	r.Post("/invoices/{id}/reject", s.decisionHandler(s.intake.Reject))

	r.Get("/matching", s.handleListMatches)
	r.Get("/dashboard/summary", s.handleDashboard)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

// writeError maps the service-layer sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, intake.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, intake.ErrNotReviewable):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, errors.Join(intake.ErrInvalid, err)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateFile registers metadata for a document stored upstream; the
// bytes themselves live wherever the OCR pipeline put them.
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.File](r)
	if err != nil {
		writeError(w, err)
		return
	}
	if in.Filename == "" {
		writeError(w, errors.Join(intake.ErrInvalid, errors.New("filename is required")))
		return
	}
	f, err := s.store.CreateFile(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleCreatePO(w http.ResponseWriter, r *http.Request) {
	in, err := decode[intake.POInput](r)
	if err != nil {
		writeError(w, err)
		return
	}
	po, err := s.intake.SubmitPO(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, po)
}

func (s *Server) handleListPOs(w http.ResponseWriter, r *http.Request) {
	var statuses []model.POStatus
	if v := r.URL.Query().Get("status"); v != "" {
		statuses = append(statuses, model.POStatus(v))
	}
	pos, err := s.store.ListPOsByStatus(r.Context(), statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase_orders": pos, "count": len(pos)})
}

func (s *Server) handleGetPO(w http.ResponseWriter, r *http.Request) {
	po, err := s.store.GetPO(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (s *Server) handleCreateBOL(w http.ResponseWriter, r *http.Request) {
	in, err := decode[intake.BOLInput](r)
	if err != nil {
		writeError(w, err)
		return
	}
	bol, err := s.intake.SubmitBOL(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bol)
}

func (s *Server) handleListBOLs(w http.ResponseWriter, r *http.Request) {
	var statuses []model.BOLStatus
	if v := r.URL.Query().Get("status"); v != "" {
		statuses = append(statuses, model.BOLStatus(v))
	}
	bols, err := s.store.ListBOLsByStatus(r.Context(), statuses...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills_of_lading": bols, "count": len(bols)})
}

func (s *Server) handleGetBOL(w http.ResponseWriter, r *http.Request) {
	bol, err := s.store.GetBOL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bol)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	in, err := decode[intake.InvoiceInput](r)
	if err != nil {
		writeError(w, err)
		return
	}
	inv, job, err := s.intake.SubmitInvoice(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"invoice": inv}
	if job != nil {
		resp["match_job"] = job
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.InvoiceFilter{
		Status:      model.InvoiceStatus(q.Get("status")),
		CarrierName: q.Get("carrier"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, errors.Join(intake.ErrInvalid, errors.New("limit must be a positive integer")))
			return
		}
		filter.Limit = limit
	}
	invs, err := s.store.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invs, "count": len(invs)})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.store.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleGetMatch returns the latest reconciliation result for an invoice.
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetInvoice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	mr, err := s.store.LatestMatchResultByInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mr)
}

// handleRerunMatch enqueues a fresh matching job for the invoice. The run
// itself happens in the background dispatcher; a new result row is
// appended when it completes.
func (s *Server) handleRerunMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetInvoice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.store.EnqueueMatchJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleListMatches returns every stored reconciliation result.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListMatchResults(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type decisionFunc func(ctx context.Context, invoiceID, decidedBy, notes string) (*model.Invoice, error)

func (s *Server) decisionHandler(decide decisionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DecidedBy string `json:"decided_by"`
			Notes     string `json:"notes"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, errors.Join(intake.ErrInvalid, err))
				return
			}
		}
		inv, err := decide(r.Context(), chi.URLParam(r, "id"), req.DecidedBy, req.Notes)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

// DashboardSummary is the aggregate view for the review dashboard.
type DashboardSummary struct {
	InvoicesByStatus map[model.InvoiceStatus]int `json:"invoices_by_status"`
	TotalInvoices    int                         `json:"total_invoices"`
	FlaggedCount     int                         `json:"flagged_count"`
	FlaggedTotal     decimal.Decimal             `json:"flagged_total"`
	MatchResults     int                         `json:"match_results"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	invs, err := s.store.ListInvoices(r.Context(), store.InvoiceFilter{Limit: 10000})
	if err != nil {
		writeError(w, err)
		return
	}

	summary := DashboardSummary{
		InvoicesByStatus: make(map[model.InvoiceStatus]int),
		FlaggedTotal:     decimal.Zero,
	}
	for _, inv := range invs {
		summary.InvoicesByStatus[inv.Status]++
		summary.TotalInvoices++
		if inv.Status == model.InvoiceStatusFlagged {
			summary.FlaggedCount++
			summary.FlaggedTotal = summary.FlaggedTotal.Add(inv.TotalAmount)
		}
	}

	results, err := s.store.ListMatchResults(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	summary.MatchResults = len(results)

	writeJSON(w, http.StatusOK, summary)
}
