package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/DMPipe/internal/models"
)

// webhookHandler serves both halves of the Instagram webhook contract: the
// GET subscription handshake and POST event deliveries.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhook answers the hub.challenge handshake when the mode and token
// match, and 403 otherwise.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")
	slog.Debug("Server.verifyWebhook handshake attempt", "mode", mode, "token_match", token == s.verifyToken)

	if mode == "subscribe" && token == s.verifyToken {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge)); err != nil {
			slog.Error("Server.verifyWebhook failed to write challenge", "error", err)
		}
		slog.Info("Server.verifyWebhook subscription verified")
		return
	}
	slog.Warn("Server.verifyWebhook rejected handshake", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
}

// receiveWebhook decodes an event delivery and runs it through the engine.
// Processing happens before the 200 so a crash mid-batch leaves the delivery
// unacknowledged and the platform retries it; the dedup cache absorbs the
// replayed events that were already handled.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload models.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhook failed to decode payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if payload.Object != "instagram" {
		slog.Debug("Server.receiveWebhook ignoring non-instagram object", "object", payload.Object)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	slog.Debug("Server.receiveWebhook processing delivery", "entries", len(payload.Entry))
	s.engine.HandlePayload(r.Context(), payload)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("EVENT_RECEIVED")); err != nil {
		slog.Error("Server.receiveWebhook failed to write acknowledgement", "error", err)
	}
}

// healthHandler reports liveness plus a summary of the deployment state.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":        "ok",
		"page_id":       s.pageID,
		"ai_configured": s.aiConfigured,
	}
	if cfg, err := s.store.GetConfig(); err != nil {
		slog.Error("Server.healthHandler failed to load config", "error", err)
		health["status"] = "degraded"
	} else {
		health["installed"] = cfg.Installed
		health["mode"] = cfg.Mode
	}
	writeJSONResponse(w, http.StatusOK, health)
}

// leadsHandler lists every captured lead, oldest first.
func (s *Server) leadsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	leads, err := s.store.GetLeads()
	if err != nil {
		slog.Error("Server.leadsHandler failed to load leads", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load leads"))
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	slog.Debug("Server.leadsHandler returning leads", "count", len(leads))
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}
