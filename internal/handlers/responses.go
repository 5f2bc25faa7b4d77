package handlers

import (
	"time"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/identity"
	"github.com/sevasetu/sevasetu/internal/models"
)

// ApplicationResponse is the citizen-facing projection of an application.
// The phone is masked and the identity fingerprint is never exposed.
type ApplicationResponse struct {
	Reference   string             `json:"reference"`
	Kind        models.Kind        `json:"kind"`
	Phone       string             `json:"phone"`
	Status      models.Status      `json:"status"`
	StatusLabel string             `json:"status_label"`
	Category    string             `json:"category"`
	SubmittedAt time.Time          `json:"submitted_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Timeline    []TimelineResponse `json:"timeline"`
	Note        string             `json:"note,omitempty"`
}

type TimelineResponse struct {
	Status    models.Status `json:"status"`
	Label     string        `json:"label"`
	Timestamp time.Time     `json:"timestamp"`
	Actor     models.Actor  `json:"actor"`
}

func newApplicationResponse(app *models.Application, catalog *config.StatusCatalog) ApplicationResponse {
	timeline := make([]TimelineResponse, 0, len(app.Timeline))
	for _, entry := range app.Timeline {
		timeline = append(timeline, TimelineResponse{
			Status:    entry.Status,
			Label:     entry.Label,
			Timestamp: entry.Timestamp,
			Actor:     entry.Actor,
		})
	}

	return ApplicationResponse{
		Reference:   app.Reference,
		Kind:        app.Kind,
		Phone:       identity.MaskPhone(app.Phone),
		Status:      app.Status,
		StatusLabel: catalog.Label(string(app.Status)),
		Category:    catalog.Category(string(app.Status)),
		SubmittedAt: app.SubmittedAt,
		UpdatedAt:   app.UpdatedAt,
		Timeline:    timeline,
		Note:        app.Note,
	}
}
