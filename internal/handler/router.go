package handler

import (
	"github.com/Dan9191/expense-ledger/internal/config"
	"github.com/Dan9191/expense-ledger/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter registers every route. Everything but /healthz needs a bearer token.
func NewRouter(h *Handler, cfg *config.Config, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg, log))

	api.HandleFunc("/expenses", h.CreateExpense).Methods("POST")
	api.HandleFunc("/expenses", h.ListExpenses).Methods("GET")
	api.HandleFunc("/expenses/{id:[0-9]+}", h.GetExpense).Methods("GET")
	api.HandleFunc("/expenses/{id:[0-9]+}", h.UpdateExpense).Methods("PATCH")
	api.HandleFunc("/expenses/{id:[0-9]+}", h.DeleteExpense).Methods("DELETE")

	api.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods("GET")

	api.HandleFunc("/credit-cards", h.CreateCreditCard).Methods("POST")
	api.HandleFunc("/credit-cards", h.ListCreditCards).Methods("GET")
	api.HandleFunc("/credit-cards/{id:[0-9]+}", h.GetCreditCard).Methods("GET")

	api.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	api.HandleFunc("/loans", h.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{id:[0-9]+}", h.GetLoan).Methods("GET")

	api.HandleFunc("/reports/summary", h.Summary).Methods("GET")
	api.HandleFunc("/scheduler/run", h.RunScheduler).Methods("POST")
	return r
}
