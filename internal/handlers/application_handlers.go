package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/identity"
	"github.com/sevasetu/sevasetu/internal/middleware"
	"github.com/sevasetu/sevasetu/internal/models"
	"github.com/sevasetu/sevasetu/internal/service"
)

type ApplicationHandlers struct {
	lifecycle     *service.LifecycleService
	fingerprinter *identity.Fingerprinter
	catalog       *config.StatusCatalog
	logger        *logrus.Logger
}

func NewApplicationHandlers(
	lifecycle *service.LifecycleService,
	fingerprinter *identity.Fingerprinter,
	catalog *config.StatusCatalog,
	logger *logrus.Logger,
) *ApplicationHandlers {
	return &ApplicationHandlers{
		lifecycle:     lifecycle,
		fingerprinter: fingerprinter,
		catalog:       catalog,
		logger:        logger,
	}
}

type SubmitRequest struct {
	Kind       models.Kind       `json:"kind"`
	Name       string            `json:"name"`
	NationalID string            `json:"national_id"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// Submit creates a new application for the verified citizen. The phone comes
// from the session token, never the request body, and the national id is
// reduced to a fingerprint before it reaches the engine.
func (h *ApplicationHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	nationalID := strings.TrimSpace(req.NationalID)
	if nationalID == "" {
		respondWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", "national_id is required")
		return
	}

	app, err := h.lifecycle.Submit(r.Context(), service.SubmitInput{
		Kind:                req.Kind,
		Name:                strings.TrimSpace(req.Name),
		Phone:               claims.Phone,
		Payload:             req.Payload,
		IdentityFingerprint: h.fingerprinter.Derive(nationalID, string(req.Kind)),
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, newApplicationResponse(app, h.catalog))
}

// Query returns the citizen-facing projection of one application.
func (h *ApplicationHandlers) Query(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	app, err := h.lifecycle.Query(r.Context(), reference)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, newApplicationResponse(app, h.catalog))
}

type TransitionRequest struct {
	Status models.Status `json:"status"`
	Note   string        `json:"note,omitempty"`
}

// Transition advances an application on behalf of an authenticated officer.
func (h *ApplicationHandlers) Transition(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing officer identity")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	reference := mux.Vars(r)["reference"]

	app, err := h.lifecycle.Transition(r.Context(), reference, req.Status, models.ActorOfficer, req.Note)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"reference": reference,
		"status":    req.Status,
		"officer":   claims.Actor,
	}).Info("Officer transition applied")

	respondWithJSON(w, http.StatusOK, newApplicationResponse(app, h.catalog))
}
