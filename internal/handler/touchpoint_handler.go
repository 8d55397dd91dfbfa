// internal/handler/touchpoint_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
	"github.com/outboundhq/outreach-backend/internal/queue"
	"github.com/outboundhq/outreach-backend/internal/service"
)

// TouchpointHandler holds the dependencies for touchpoint, calendar and
// webhook HTTP handlers.
type TouchpointHandler struct {
	Touchpoints *service.TouchpointService
	Aggregator  *service.Aggregator
	Queue       queue.Queue
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validation *appErrors.ValidationError
		notFound   *appErrors.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ScheduleTouchpoint creates a single touchpoint outside any sequence.
func (h *TouchpointHandler) ScheduleTouchpoint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LeadID      *int          `json:"lead_id"`
		ContactID   *int          `json:"contact_id"`
		CampaignID  *int          `json:"campaign_id"`
		Channel     model.Channel `json:"channel"`
		ScheduledAt time.Time     `json:"scheduled_at"`
		CreatedBy   *int          `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tp, err := h.Touchpoints.Schedule(r.Context(), service.ScheduleTouchpointInput{
		LeadID:      body.LeadID,
		ContactID:   body.ContactID,
		CampaignID:  body.CampaignID,
		Channel:     body.Channel,
		ScheduledAt: body.ScheduledAt,
		CreatedBy:   body.CreatedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tp)
}

// CompleteTouchpoint marks a touchpoint done by hand.
func (h *TouchpointHandler) CompleteTouchpoint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid touchpoint id", http.StatusBadRequest)
		return
	}

	var body struct {
		OutcomeKind model.OutcomeKind `json:"outcome_kind"`
		Outcome     string            `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	tp, err := h.Touchpoints.Complete(r.Context(), id, body.OutcomeKind, body.Outcome, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tp)
}

// EntityTouchpoints lists an entity's touchpoints and counts. The entity
// kind comes from the route: /leads/{id}/touchpoints or
// /contacts/{id}/touchpoints.
func (h *TouchpointHandler) EntityTouchpoints(kind model.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid entity id", http.StatusBadRequest)
			return
		}

		ref := model.EntityRef{Kind: kind, ID: id}
		touchpoints, counts, err := h.Touchpoints.EntityTouchpoints(r.Context(), ref)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"touchpoints": touchpoints,
			"counts":      counts,
		})
	}
}

// Calendar serves the per-day histogram for the heatmap.
func (h *TouchpointHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var campaignID *int
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid campaign_id", http.StatusBadRequest)
			return
		}
		campaignID = &id
	}

	counts, err := h.Aggregator.Histogram(r.Context(), from, to, campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": counts})
}

// PlatformWebhook accepts a pushed event batch and hands it to the
// in-process queue. The platform gets a 202 immediately; reconciliation
// happens on the subscriber.
func (h *TouchpointHandler) PlatformWebhook(w http.ResponseWriter, r *http.Request) {
	var job queue.SyncJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if job.CampaignExternalID == "" {
		http.Error(w, "campaign_external_id required", http.StatusBadRequest)
		return
	}

	if err := h.Queue.Publish(queue.TopicPlatformEvents, job); err != nil {
		http.Error(w, "failed to enqueue events", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
