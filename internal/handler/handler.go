package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/expense-ledger/internal/ledger"
	"github.com/Dan9191/expense-ledger/internal/models"
	"github.com/Dan9191/expense-ledger/internal/repository"
	"github.com/Dan9191/expense-ledger/internal/scheduler"
	"github.com/Dan9191/expense-ledger/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc   *service.Service
	sched *scheduler.Scheduler
	log   *logrus.Logger
}

func NewHandler(svc *service.Service, sched *scheduler.Scheduler, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, sched: sched, log: log}
}

// CreateExpense handles expense creation
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var draft models.ExpenseDraft
	if !h.decode(w, r, &draft) {
		return
	}
	exp, err := h.svc.CreateExpense(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, exp)
}

// ListExpenses handles expense listing with optional filters
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, expenses)
}

// GetExpense handles reading a single expense
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	exp, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exp)
}

// UpdateExpense handles partial expense updates
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var patch models.ExpensePatch
	if !h.decode(w, r, &patch) {
		return
	}
	exp, err := h.svc.UpdateExpense(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exp)
}

// DeleteExpense handles expense deletion
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var account models.BankAccount
	if !h.decode(w, r, &account) {
		return
	}
	created, err := h.svc.CreateAccount(r.Context(), &account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListAccounts handles account listing
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// GetAccount handles reading one account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	account, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// CreateCreditCard handles credit card creation
func (h *Handler) CreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var card models.CreditCard
	if !h.decode(w, r, &card) {
		return
	}
	created, err := h.svc.CreateCreditCard(r.Context(), &card)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListCreditCards handles credit card listing
func (h *Handler) ListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListCreditCards(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cards)
}

// GetCreditCard handles reading one credit card
func (h *Handler) GetCreditCard(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	card, err := h.svc.GetCreditCard(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, card)
}

// CreateLoan handles loan registration
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var loan models.Loan
	if !h.decode(w, r, &loan) {
		return
	}
	created, err := h.svc.CreateLoan(r.Context(), &loan)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// ListLoans handles loan listing
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loans)
}

// GetLoan handles reading one loan
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	loan, err := h.svc.GetLoan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

type runReport struct {
	Job          string   `json:"job"`
	Period       string   `json:"period"`
	Due          int      `json:"due"`
	Materialized []int64  `json:"materialized"`
	Skipped      int      `json:"skipped"`
	Failures     []string `json:"failures"`
}

// RunScheduler runs both daily jobs now
func (h *Handler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	reports := h.sched.RunDaily(r.Context(), time.Now())
	out := make([]runReport, len(reports))
	for i, rep := range reports {
		out[i] = runReport{
			Job:          rep.Job,
			Period:       rep.Period,
			Due:          rep.Due,
			Materialized: append([]int64{}, rep.Materialized...),
			Skipped:      rep.Skipped,
			Failures:     []string{},
		}
		for _, f := range rep.Failures {
			out[i].Failures = append(out[i].Failures, f.String())
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Healthz reports liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseFilter(r *http.Request) (models.ExpenseFilter, error) {
	q := r.URL.Query()
	filter := models.ExpenseFilter{
		Category:      q.Get("category"),
		PaymentMethod: models.PaymentMethod(q.Get("paymentMethod")),
	}
	var err error
	if v := q.Get("from"); v != "" {
		if filter.From, err = ledger.ParseDate(v); err != nil {
			return filter, &ledger.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD or RFC 3339"}
		}
	}
	if v := q.Get("to"); v != "" {
		if filter.To, err = ledger.ParseDate(v); err != nil {
			return filter, &ledger.ValidationError{Field: "to", Reason: "must be YYYY-MM-DD or RFC 3339"}
		}
	}
	return filter, nil
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to write response: %v", err)
	}
}

// statusOf maps service and ledger errors to HTTP status codes.
func statusOf(err error) int {
	var ve *ledger.ValidationError
	var pe *ledger.PersistenceError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInstrumentNotFound):
		return http.StatusUnprocessableEntity
	case errors.As(err, &pe) && pe.Retryable, repository.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("Request failed: %v", err)
		msg = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
