package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/store"
)

// Handler serves the web service endpoints.
type Handler struct {
	DB       *sql.DB
	Lifetime time.Duration
	Now      func() time.Time
}

// Rejection reasons sent in the message field.
const (
	msgCredentialsRequired = "username and password required"
	msgInvalidCredentials  = "invalid credentials"
	msgTokenRequired       = "authToken required"
	msgNotLoggedIn         = "not logged in"
	msgSessionExpired      = "session expired"
	msgItemRequired        = "itemName and quantity required"
	msgUnknownItem         = "unknown item"
	msgInternal            = "internal error"
)

// Login handles POST /android_webservice/Login.php.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ep := model.EndpointLogin
	p, err := decodePayload(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username, password := p.get(model.FieldUsername), p[model.FieldPassword]
	if username == "" || password == "" {
		reject(w, ep, msgCredentialsRequired)
		return
	}
	token := p.get(model.FieldAuthToken)
	if token == "" {
		reject(w, ep, msgTokenRequired)
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, username)
	if err != nil {
		slog.Error("login lookup failed", "user", username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if user == nil {
		slog.Warn("login failed", "user", username, "remote", r.RemoteAddr)
		reject(w, ep, msgInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "user", username, "remote", r.RemoteAddr)
		reject(w, ep, msgInvalidCredentials)
		return
	}

	now := h.Now()
	rec := model.SessionRecord{
		AuthToken: token,
		Username:  user.Username,
		StartedAt: h.startedAt(p.get(model.FieldTimestamp), now),
	}
	cutoff := now.Add(-h.Lifetime).Unix()
	if err := store.CreateSession(r.Context(), h.DB, rec, cutoff); err != nil {
		slog.Error("creating session failed", "user", username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]any{model.FieldLoginSuccessful: true})
}

// startedAt returns the client's login timestamp when it is a valid unix time
// not in the future, and now otherwise.
func (h *Handler) startedAt(timestamp string, now time.Time) int64 {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || ts <= 0 || ts > now.Unix() {
		return now.Unix()
	}
	return ts
}

// authenticate checks username and authToken against a live session. On
// failure it writes the rejection and returns nil.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, ep model.Endpoint, p payload) *model.SessionRecord {
	username, token := p.get(model.FieldUsername), p.get(model.FieldAuthToken)
	if username == "" || token == "" {
		reject(w, ep, msgNotLoggedIn)
		return nil
	}

	rec, err := store.GetSession(r.Context(), h.DB, token)
	if err != nil {
		slog.Error("session lookup failed", "user", username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return nil
	}
	if rec == nil || rec.Username != username {
		reject(w, ep, msgNotLoggedIn)
		return nil
	}

	if !h.Now().Before(rec.ExpiresAt(h.Lifetime)) {
		if err := store.DeleteSession(r.Context(), h.DB, token); err != nil {
			slog.Error("deleting expired session failed", "user", username, "error", err)
		}
		reject(w, ep, msgSessionExpired)
		return nil
	}
	return rec
}

// UserInfo handles POST /android_webservice/GetUserInfo.php.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	ep := model.EndpointUserInfo
	p, err := decodePayload(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := h.authenticate(w, r, ep, p)
	if sess == nil {
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, sess.Username)
	if err != nil || user == nil {
		slog.Error("loading profile failed", "user", sess.Username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	info := user.Profile
	jsonResponse(w, http.StatusOK, map[string]any{
		model.FieldSuccess: true,
		"firstName":        info.FirstName,
		"lastName":         info.LastName,
		"gender":           info.Gender,
		"DOB":              info.DOB,
		"rank":             info.Rank,
		"contact":          info.Contact,
		"address":          info.Address,
	})
}

// Inventory handles POST /android_webservice/GetInventory.php.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	ep := model.EndpointInventory
	p, err := decodePayload(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := h.authenticate(w, r, ep, p)
	if sess == nil {
		return
	}

	items, err := store.ListInventory(r.Context(), h.DB, sess.Username)
	if err != nil {
		slog.Error("loading inventory failed", "user", sess.Username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	names := make([]string, len(items))
	quantities := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
		quantities[i] = string(item.Quantity)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		model.FieldSuccess:  true,
		model.FieldItemName: names,
		model.FieldQuantity: quantities,
	})
}

// NewRequest handles POST /android_webservice/NewRequest.php.
func (h *Handler) NewRequest(w http.ResponseWriter, r *http.Request) {
	ep := model.EndpointNewRequest
	p, err := decodePayload(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := h.authenticate(w, r, ep, p)
	if sess == nil {
		return
	}

	itemName, quantity := p.get(model.FieldItemName), model.Quantity(p.get(model.FieldQuantity))
	if itemName == "" || quantity == "" {
		reject(w, ep, msgItemRequired)
		return
	}

	item, err := store.GetItemByName(r.Context(), h.DB, itemName)
	if err != nil {
		slog.Error("item lookup failed", "item", itemName, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if item == nil {
		reject(w, ep, msgUnknownItem)
		return
	}

	req, err := store.CreateRequest(r.Context(), h.DB, sess.Username, item.Name, quantity)
	if err != nil {
		slog.Error("creating request failed", "user", sess.Username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	slog.Info("item requested", "user", sess.Username, "item", req.ItemName, "quantity", req.Quantity, "id", req.ID)
	jsonResponse(w, http.StatusOK, map[string]any{model.FieldSuccess: true})
}

// SubmitLog handles POST /android_webservice/SubmitLog.php.
func (h *Handler) SubmitLog(w http.ResponseWriter, r *http.Request) {
	ep := model.EndpointSubmitLog
	p, err := decodePayload(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := h.authenticate(w, r, ep, p)
	if sess == nil {
		return
	}

	description := p.get(model.FieldActivityDescription)
	if description == "" {
		reject(w, ep, "activityDescription required")
		return
	}

	if err := store.AddActivityLog(r.Context(), h.DB, sess.Username, description); err != nil {
		slog.Error("storing activity log failed", "user", sess.Username, "error", err)
		jsonError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{model.FieldSuccess: true})
}
