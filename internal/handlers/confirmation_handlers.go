package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/service"
)

// ConfirmationHandlers receives asynchronous callbacks from delivery and
// payment collaborators. The endpoint is authenticated with a shared secret
// rather than a session: callers are systems, not citizens.
type ConfirmationHandlers struct {
	confirmations *service.ConfirmationService
	catalog       *config.StatusCatalog
	sharedSecret  string
	logger        *logrus.Logger
}

func NewConfirmationHandlers(
	confirmations *service.ConfirmationService,
	catalog *config.StatusCatalog,
	sharedSecret string,
	logger *logrus.Logger,
) *ConfirmationHandlers {
	return &ConfirmationHandlers{
		confirmations: confirmations,
		catalog:       catalog,
		sharedSecret:  sharedSecret,
		logger:        logger,
	}
}

type ConfirmationRequest struct {
	ConfirmationID string `json:"confirmation_id"`
	Reference      string `json:"reference"`
	Outcome        string `json:"outcome"`
}

func (h *ConfirmationHandlers) Apply(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Confirmation-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.sharedSecret)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid confirmation secret")
		return
	}

	var req ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	app, err := h.confirmations.Apply(r.Context(), req.ConfirmationID, req.Reference, req.Outcome)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"confirmation_id": req.ConfirmationID,
		"reference":       req.Reference,
	}).Info("Confirmation accepted")

	respondWithJSON(w, http.StatusOK, newApplicationResponse(app, h.catalog))
}
