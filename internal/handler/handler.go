package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nilpay/payment-service/internal/infrastructure/auth"
	"github.com/nilpay/payment-service/internal/models"
	"github.com/nilpay/payment-service/internal/repository"
	service "github.com/nilpay/payment-service/internal/services"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"github.com/shopspring/decimal"
)

type Handler struct {
	authService    service.AuthService
	paymentService service.PaymentService
	notifications  repository.NotificationRepository
}

func NewHandler(authService service.AuthService, paymentService service.PaymentService, notifications repository.NotificationRepository) *Handler {
	return &Handler{
		authService:    authService,
		paymentService: paymentService,
		notifications:  notifications,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	ID        int32           `json:"id"`
	Email     string          `json:"email"`
	Role      models.RoleType `json:"role"`
	CreatedAt string          `json:"created_at"`
}

type transactionResponse struct {
	ID        int32             `json:"id"`
	Recipient string            `json:"recipient"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Status    models.StatusType `json:"status"`
	Timestamp string            `json:"timestamp"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/signup", h.Signup).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/transactions", h.GetTransactions).Methods("GET")
	r.HandleFunc("/send", h.SendPayment).Methods("POST")
	r.HandleFunc("/notifications", h.GetNotifications).Methods("GET")
	r.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods("POST")
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string          `json:"email"`
		Password string          `json:"password"`
		Role     models.RoleType `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrUserAlreadyExists):
			h.writeError(w, http.StatusConflict, err)
		case errors.Is(err, pkgerrors.ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	transactions, err := h.paymentService.ListTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	responses := make([]transactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, toTransactionResponse(&transactions[i]))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": responses})
}

func (h *Handler) SendPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		Recipient string          `json:"recipient"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	transaction, err := h.paymentService.SendPayment(r.Context(), userID, req.Recipient, req.Amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrInvalidInput), errors.Is(err, pkgerrors.ErrPaymentDeclined):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": toTransactionResponse(transaction),
	})
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	notifications, err := h.notifications.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotificationNotFound) {
			h.writeError(w, http.StatusNotFound, err)
		} else {
			h.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponse(tx *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:        tx.ID,
		Recipient: tx.Recipient,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    tx.Status,
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
	}
}
