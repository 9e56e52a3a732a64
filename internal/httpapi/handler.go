package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonq/internal/cache"
	"salonq/internal/metrics"
	"salonq/internal/models"
	"salonq/internal/queue"
	"salonq/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// mockOTP is the fixed development OTP; there is no real SMS provider.
const mockOTP = "1234"

type Handler struct {
	store      store.Store
	cache      *cache.QueueStatusCache
	sessionTTL time.Duration
}

type Options struct {
	Cache      *cache.QueueStatusCache
	SessionTTL time.Duration
}

func NewHandler(st store.Store, options Options) *Handler {
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Handler{
		store:      st,
		cache:      options.Cache,
		sessionTTL: ttl,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/salons", h.handleSalons)
	mux.HandleFunc("/api/salons/", h.handleSalonRoutes)
	mux.HandleFunc("/api/queue/join", h.handleQueueJoin)
	mux.HandleFunc("/api/queue/me", h.handleQueueMe)
	mux.HandleFunc("/api/queue/", h.handleQueueEntry)
	mux.HandleFunc("/api/subscriptions", h.handleSubscriptions)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.OTP = strings.TrimSpace(req.OTP)

	if req.Phone == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone and otp are required")
		return
	}
	if req.OTP != mockOTP {
		writeError(w, http.StatusUnauthorized, "invalid_otp", "invalid OTP")
		return
	}

	user, err := h.store.GetUserByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found", "no account for this phone")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	expiresAt := time.Now().UTC().Add(h.sessionTTL)
	session, err := h.store.CreateSession(r.Context(), user.ID, expiresAt)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Location string `json:"location"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Role = strings.TrimSpace(req.Role)
	req.Location = strings.TrimSpace(req.Location)

	if req.Name == "" || req.Phone == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name, phone, and role are required")
		return
	}
	if !isValidPhone(req.Phone) {
		writeError(w, http.StatusBadRequest, "invalid_request", "phone must be 8-16 digits")
		return
	}
	if req.Role != models.RoleCustomer && req.Role != models.RoleBarber {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be customer or barber")
		return
	}

	user, err := h.store.CreateUser(r.Context(), store.CreateUserInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
		Location: req.Location,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type createSalonRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

func (h *Handler) handleSalons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req createSalonRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	salon, err := h.store.CreateSalon(r.Context(), store.CreateSalonInput{
		OwnerID:  user.ID,
		Name:     req.Name,
		Location: req.Location,
		Phone:    req.Phone,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, salon)
}

func (h *Handler) handleSalonRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/salons/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "me":
		h.handleMySalon(w, r)
	case len(parts) == 1 && parts[0] == "search":
		h.handleSalonSearch(w, r)
	case len(parts) == 1:
		h.handleSalonDetail(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status":
		h.handleSalonStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "queue-status":
		h.handleQueueStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "services":
		h.handleSalonServices(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "queue":
		h.handleSalonQueue(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "queue" && parts[2] == "next":
		h.handleCallNext(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleMySalon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	salon, err := h.store.GetSalonByOwner(r.Context(), user.ID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, salon)
}

func (h *Handler) handleSalonSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salons, err := h.store.SearchSalons(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if salons == nil {
		salons = []models.Salon{}
	}

	writeJSON(w, http.StatusOK, salons)
}

func (h *Handler) handleSalonDetail(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}

	salon, err := h.store.GetSalon(r.Context(), salonID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	services, err := h.store.ListServices(r.Context(), salonID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if services == nil {
		services = []models.Service{}
	}

	writeJSON(w, http.StatusOK, models.SalonWithServices{Salon: salon, Services: services})
}

type salonStatusRequest struct {
	Action    string `json:"action"`
	IsOpen    *bool  `json:"isOpen"`
	IsOnBreak *bool  `json:"isOnBreak"`
}

func (h *Handler) handleSalonStatus(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}
	if !h.requireSalonOwner(w, r, salonID) {
		return
	}

	var req salonStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Action = strings.TrimSpace(req.Action)

	if req.Action == "" && req.IsOpen == nil && req.IsOnBreak == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "action or status fields are required")
		return
	}

	salon, err := h.store.UpdateSalonStatus(r.Context(), salonID, req.Action, store.StatusPatch{
		IsOpen:    req.IsOpen,
		IsOnBreak: req.IsOnBreak,
	}, time.Now().UTC())
	if err != nil {
		if errors.Is(err, queue.ErrUnknownAction) {
			writeError(w, http.StatusBadRequest, "invalid_request", "action must be open, close, break_start, or break_end")
			return
		}
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.invalidateQueueStatus(r, salonID)
	writeJSON(w, http.StatusOK, salon)
}

func (h *Handler) handleQueueStatus(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}

	if status, found, err := h.cache.Get(r.Context(), salonID); err == nil && found {
		metrics.IncCacheHit()
		writeJSON(w, http.StatusOK, status)
		return
	}
	metrics.IncCacheMiss()

	status, err := h.store.QueueStatus(r.Context(), salonID)
	if err != nil {
		httpStatus, code, msg := mapError(err)
		writeError(w, httpStatus, code, msg)
		return
	}
	_ = h.cache.Set(r.Context(), salonID, status)

	writeJSON(w, http.StatusOK, status)
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           int    `json:"price"`
}

func (h *Handler) handleSalonServices(w http.ResponseWriter, r *http.Request, rawID string) {
	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		services, err := h.store.ListServices(r.Context(), salonID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		if services == nil {
			services = []models.Service{}
		}
		writeJSON(w, http.StatusOK, services)
	case http.MethodPost:
		if !h.requireSalonOwner(w, r, salonID) {
			return
		}

		var req createServiceRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.DurationMinutes <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "name and a positive durationMinutes are required")
			return
		}
		if req.Price < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "price must not be negative")
			return
		}

		svc, err := h.store.CreateService(r.Context(), store.CreateServiceInput{
			SalonID:         salonID,
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
		})
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusCreated, svc)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSalonQueue(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}

	items, err := h.store.ListQueue(r.Context(), salonID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if items == nil {
		items = []models.QueueItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

type callNextResponse struct {
	Message   string             `json:"message"`
	Completed *models.QueueEntry `json:"completed,omitempty"`
	NextToken *int               `json:"nextToken"`
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	salonID, ok := parseID(w, rawID)
	if !ok {
		return
	}
	if !h.requireSalonOwner(w, r, salonID) {
		return
	}

	result, err := h.store.CallNext(r.Context(), salonID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	if !result.Advanced {
		writeJSON(w, http.StatusOK, callNextResponse{Message: "queue is empty", NextToken: nil})
		return
	}

	metrics.IncTokensServed()
	h.invalidateQueueStatus(r, salonID)
	finished := result.Finished
	writeJSON(w, http.StatusOK, callNextResponse{
		Message:   "next customer called",
		Completed: &finished,
		NextToken: result.NextToken,
	})
}

type joinQueueRequest struct {
	SalonID    int64 `json:"salonId"`
	ServiceID  int64 `json:"serviceId"`
	CustomerID int64 `json:"customerId"`
}

type joinQueueResponse struct {
	models.QueueEntry
	Position int `json:"position"`
}

func (h *Handler) handleQueueJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req joinQueueRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.SalonID <= 0 || req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "salonId and serviceId are required")
		return
	}
	// The session owns the entry; a customerId in the body may only
	// restate it.
	if req.CustomerID != 0 && req.CustomerID != user.ID {
		writeError(w, http.StatusForbidden, "access_denied", "cannot join the queue for another customer")
		return
	}

	result, err := h.store.JoinQueue(r.Context(), store.JoinQueueInput{
		SalonID:    req.SalonID,
		ServiceID:  req.ServiceID,
		CustomerID: user.ID,
	}, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	metrics.IncTokensIssued()
	h.invalidateQueueStatus(r, req.SalonID)
	writeJSON(w, http.StatusCreated, joinQueueResponse{QueueEntry: result.Entry, Position: result.Position})
}

func (h *Handler) handleQueueMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	items, err := h.store.ListCustomerQueue(r.Context(), user.ID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if items == nil {
		items = []models.CustomerQueueItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

type entryStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleQueueEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	entryID, ok := parseID(w, parts[0])
	if !ok {
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req entryStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	if req.Status != models.StatusCompleted && req.Status != models.StatusCancelled {
		writeError(w, http.StatusBadRequest, "invalid_request", "status must be completed or cancelled")
		return
	}

	if !h.mayChangeEntry(w, r, entryID, req.Status, user) {
		return
	}

	entry, err := h.store.UpdateEntryStatus(r.Context(), entryID, req.Status)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	h.invalidateQueueStatus(r, entry.SalonID)
	writeJSON(w, http.StatusOK, entry)
}

type subscriptionRequest struct {
	Type string `json:"type"`
}

func (h *Handler) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req subscriptionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if !models.ValidSubscriptionType(req.Type) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown subscription type")
		return
	}

	sub, err := h.store.CreateSubscription(r.Context(), user.ID, req.Type, time.Now().UTC())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// mayChangeEntry authorizes a queue entry status change. The entry's
// customer may cancel their own entry; the salon's owner may complete or
// cancel any entry in their queue.
func (h *Handler) mayChangeEntry(w http.ResponseWriter, r *http.Request, entryID int64, status string, user models.User) bool {
	entry, err := h.store.GetQueueEntry(r.Context(), entryID)
	if err != nil {
		httpStatus, code, msg := mapError(err)
		writeError(w, httpStatus, code, msg)
		return false
	}

	if entry.CustomerID == user.ID && status == models.StatusCancelled {
		return true
	}

	salon, err := h.store.GetSalon(r.Context(), entry.SalonID)
	if err != nil {
		httpStatus, code, msg := mapError(err)
		writeError(w, httpStatus, code, msg)
		return false
	}
	if salon.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, "access_denied", "entry access denied")
		return false
	}
	return true
}

func (h *Handler) requireSalonOwner(w http.ResponseWriter, r *http.Request, salonID int64) bool {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}

	salon, err := h.store.GetSalon(r.Context(), salonID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return false
	}
	if salon.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, "access_denied", "salon access denied")
		return false
	}
	return true
}

// invalidateQueueStatus drops the cached snapshot after a queue mutation.
// Cache failures never fail the request.
func (h *Handler) invalidateQueueStatus(r *http.Request, salonID int64) {
	_ = h.cache.Invalidate(r.Context(), salonID)
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func isValidPhone(value string) bool {
	if len(value) < 8 || len(value) > 16 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, store.ErrSalonNotFound):
		return http.StatusNotFound, "salon_not_found", "salon not found"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", "queue entry not found"
	case errors.Is(err, store.ErrPhoneTaken):
		return http.StatusConflict, "phone_taken", "phone already registered"
	case errors.Is(err, store.ErrSalonClosed):
		return http.StatusConflict, "salon_closed", "salon is not accepting queue entries"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "entry state does not allow this change"
	case errors.Is(err, store.ErrTokenConflict):
		return http.StatusConflict, "token_conflict", "token number is already waiting"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
