package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/opsdash/bonus-engine/internal/bonus"
	"github.com/opsdash/bonus-engine/internal/service"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.BonusService
}

// NewHandler creates a new handler backed by the bonus service.
func NewHandler(svc *service.BonusService) *Handler {
	return &Handler{Service: svc}
}

// ErrorResponse is the JSON body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health reports liveness and which cache tiers are serving.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"remoteUp": h.Service.Cache().RemoteUp(),
	})
}

// GetUserBonuses computes or serves the cached bonus view for a user.
// GET /api/user/bonuses?userCode=X&year=2025&month=6
func (h *Handler) GetUserBonuses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userCode := q.Get("userCode")
	if userCode == "" {
		writeError(w, http.StatusBadRequest, "userCode is required", nil)
		return
	}

	year, err := intParam(q.Get("year"))
	if err != nil || year < 0 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := intParam(q.Get("month"))
	if err != nil || month < 0 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	if month != 0 && year == 0 {
		writeError(w, http.StatusBadRequest, "month requires year", nil)
		return
	}

	data, err := h.Service.GetUserBonuses(r.Context(), userCode, year, month)
	if err != nil {
		if errors.Is(err, bonus.ErrUpstream) {
			writeError(w, http.StatusBadGateway, "Deduction source unavailable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute bonuses", err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// RuleDTO is one deduction rule as the dashboard renders it.
type RuleDTO struct {
	Code               string          `json:"code"`
	Label              string          `json:"label"`
	Mode               string          `json:"mode"`
	Percent            decimal.Decimal `json:"percent"`
	PerDay             decimal.Decimal `json:"perDay"`
	AffectsPerformance bool            `json:"affectsPerformance"`
}

// ListRules returns the static deduction rule table.
// GET /api/bonuses/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := bonus.Rules()
	dtos := make([]RuleDTO, 0, len(rules))
	for _, rule := range rules {
		dtos = append(dtos, RuleDTO{
			Code:               rule.Code,
			Label:              rule.Label,
			Mode:               rule.Mode.String(),
			Percent:            rule.Percent,
			PerDay:             rule.PerDay,
			AffectsPerformance: rule.AffectsPerformance,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CacheStats reports per-tier hit/miss counters.
// GET /api/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.CacheStats(r.Context()))
}

type clearCacheRequest struct {
	Pattern  string `json:"pattern"`
	UserCode string `json:"userCode"`
}

// ClearCache invalidates cached entries: everything for a user, a
// substring pattern, or the whole cache when both fields are empty.
// POST /api/admin/clear-cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	var req clearCacheRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var removed int
	switch {
	case req.UserCode != "":
		removed = h.Service.InvalidateUser(r.Context(), req.UserCode)
	default:
		removed = h.Service.ClearCache(r.Context(), req.Pattern)
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// ReconnectCache asks the manager to re-probe the remote tier.
// POST /api/admin/reconnect-cache
func (h *Handler) ReconnectCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Cache().Reconnect(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "Remote cache still unreachable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"remoteUp": true})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
