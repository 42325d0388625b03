package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"insightmarket/payments-service/internal/order"
	"insightmarket/payments-service/pkg/paging"
)

const dateLayout = "2006-01-02"

type PreparationService interface {
	Prepare(ctx context.Context, buyer order.Buyer, projectID int64, reqs []order.ItemRequest) (order.OrderSummary, error)
	RemoveOrder(ctx context.Context, orderID int64) error
}

type VerificationService interface {
	VerifyAndComplete(ctx context.Context, correlationID string, orderID int64) error
}

type HistoryService interface {
	List(ctx context.Context, buyer order.Buyer, req paging.Request) (paging.Response[order.HistoryEntry], error)
	SolutionPurchased(ctx context.Context, buyer order.Buyer, solutionID int64) (bool, error)
}

type Server struct {
	preparation  PreparationService
	verification VerificationService
	history      HistoryService
	logger       *slog.Logger
	mux          *http.ServeMux
}

func NewServer(prep PreparationService, verif VerificationService, hist HistoryService, logger *slog.Logger) *Server {
	s := &Server{
		preparation:  prep,
		verification: verif,
		history:      hist,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/payment/prepare", s.prepareOrder)
	s.mux.HandleFunc("DELETE /api/payment/del/{orderID}", s.removeOrder)
	s.mux.HandleFunc("POST /api/payment/verify", s.verifyPayment)
	s.mux.HandleFunc("GET /api/payment/list/member", s.listOrders)
	s.mux.HandleFunc("GET /api/payment/purchased/{solutionID}", s.solutionPurchased)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// HandleFunc registers extra routes (websocket, metrics) on the server mux.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

func (s *Server) prepareOrder(w http.ResponseWriter, r *http.Request) {
	buyer, err := buyerFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		ProjectID int64               `json:"projectId"`
		Solutions []order.ItemRequest `json:"solutions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := s.preparation.Prepare(r.Context(), buyer, req.ProjectID, req.Solutions)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) removeOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.PathValue("orderID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := s.preparation.RemoveOrder(r.Context(), orderID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"paymentId"`
		OrderID   int64  `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PaymentID == "" {
		writeError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	if err := s.verification.VerifyAndComplete(r.Context(), req.PaymentID, req.OrderID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	buyer, err := buyerFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := pagingFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.history.List(r.Context(), buyer, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) solutionPurchased(w http.ResponseWriter, r *http.Request) {
	buyer, err := buyerFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	solutionID, err := strconv.ParseInt(r.PathValue("solutionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid solution id")
		return
	}

	purchased, err := s.history.SolutionPurchased(r.Context(), buyer, solutionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"purchased": purchased})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrSolutionNotFound),
		errors.Is(err, order.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrAmountMismatch),
		errors.Is(err, order.ErrOrderNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNotPaid):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, order.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func buyerFromRequest(r *http.Request) (order.Buyer, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return order.Buyer{}, errors.New("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return order.Buyer{}, errors.New("invalid X-User-ID header")
	}
	return order.Buyer{ID: id, Name: r.Header.Get("X-User-Name")}, nil
}

func pagingFromQuery(r *http.Request) (paging.Request, error) {
	q := r.URL.Query()
	req := paging.Request{Sort: q.Get("sort")}

	var err error
	if raw := q.Get("page"); raw != "" {
		if req.Page, err = strconv.Atoi(raw); err != nil {
			return paging.Request{}, errors.New("invalid page")
		}
	}
	if raw := q.Get("size"); raw != "" {
		if req.Size, err = strconv.Atoi(raw); err != nil {
			return paging.Request{}, errors.New("invalid size")
		}
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return paging.Request{}, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		req.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return paging.Request{}, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		req.To = &t
	}

	return req.Normalized(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
