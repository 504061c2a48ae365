package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"bidpilot/internal/config"
	"bidpilot/internal/marketplace"
	"bidpilot/internal/taxform"
)

// isOriginAllowed decides whether a websocket Origin header is acceptable.
// With no allowlist configured, local origins and the request's own host are
// allowed; an allowlist replaces that with exact matching.
func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}
	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == reqHost {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	provider AgentProvider
	cfg      config.Config
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandlers creates a new handlers instance
func NewHandlers(provider AgentProvider, cfg config.Config, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		cfg:      cfg,
		hub:      hub,
		logger:   logger.With("component", "api-handlers"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return isOriginAllowed(r.Header.Get("Origin"), cfg.Dashboard, r.Host)
			},
		},
	}
}

// HandleHealth returns a simple health check response
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the current dashboard state
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.provider, h.cfg)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
}

// HandlePlaceBid submits a bid on behalf of the dashboard user.
// The bid is validated locally first; a local rejection comes back as a 200
// with accepted=false so the UI can show the reason and the minimum next bid.
func (h *Handlers) HandlePlaceBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.ListingID == "" || req.Amount == "" {
		http.Error(w, "listing_id and amount are required", http.StatusBadRequest)
		return
	}

	resp, err := h.provider.PlaceBid(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if apiErr, ok := marketplace.AsAPIError(err); ok {
			// The marketplace understood and refused the bid
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(BidResponse{Accepted: false, Reason: apiErr.Code})
			return
		}
		h.logger.Error("place bid failed", "listing", req.ListingID, "error", err)
		http.Error(w, "bid submission failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleAutoBid manages auto-bid orders: POST activates one,
// DELETE /api/auto-bid/{listingID} cancels it.
func (h *Handlers) HandleAutoBid(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req AutoBidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if req.ListingID == "" || req.MaxBid == "" {
			http.Error(w, "listing_id and max_bid are required", http.StatusBadRequest)
			return
		}

		status, err := h.provider.SetAutoBid(r.Context(), req.ListingID, req.MaxBid)
		if err != nil {
			if errors.Is(err, ErrInvalidAmount) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.logger.Error("set auto-bid failed", "listing", req.ListingID, "error", err)
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)

	case http.MethodDelete:
		listingID := strings.TrimPrefix(r.URL.Path, "/api/auto-bid/")
		if listingID == "" || strings.Contains(listingID, "/") {
			http.Error(w, "listing id required", http.StatusBadRequest)
			return
		}
		if err := h.provider.CancelAutoBid(r.Context(), listingID); err != nil {
			h.logger.Error("cancel auto-bid failed", "listing", listingID, "error", err)
			http.Error(w, "cancel failed", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTaxInterview validates seller tax-onboarding answers. With a step
// name it checks that page only, so the UI can gate progression; without one
// it checks the whole interview. Validation is local and pure; nothing is
// stored or submitted here.
func (h *Handlers) HandleTaxInterview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TaxInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	iv := taxform.Interview{
		FullName:   req.FullName,
		Country:    req.Country,
		TaxIDType:  req.TaxIDType,
		TaxID:      req.TaxID,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Signature:  req.Signature,
		Certified:  req.Certified,
	}

	var fieldErrs []*taxform.FieldError
	if req.Step == "" {
		fieldErrs = taxform.ValidateAll(&iv)
	} else {
		step, ok := knownStep(req.Step)
		if !ok {
			http.Error(w, "unknown interview step", http.StatusBadRequest)
			return
		}
		fieldErrs = taxform.ValidateStep(step, &iv)
	}

	resp := TaxInterviewResponse{Valid: len(fieldErrs) == 0}
	for _, fe := range fieldErrs {
		resp.Errors = append(resp.Errors, TaxFieldError{
			Step:    string(fe.Step),
			Field:   fe.Field,
			Message: fe.Msg,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// knownStep guards the step parameter: ValidateStep treats an unknown step
// as a programmer error, but here it is client input.
func knownStep(name string) (taxform.Step, bool) {
	for _, s := range taxform.Steps() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// HandleWebSocket upgrades the connection and creates a new WebSocket client
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Create new client
	client := NewClient(h.hub, conn)

	// Send initial snapshot to the client
	snapshot := BuildSnapshot(h.provider, h.cfg)
	evt := DashboardEvent{
		Type: "snapshot",
		Data: snapshot,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}
