package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhnb/postsai/internal/http/middleware"
	"github.com/nhnb/postsai/internal/services"
	"github.com/nhnb/postsai/internal/webhook"
)

// ImportService ingests webhook payloads. Implementations must be safe for
// concurrent use and honor the context for cancellation.
type ImportService interface {
	Import(ctx context.Context, remoteAddr, remoteUser string, payload webhook.Document) (int64, error)
}

// ImportResponse reports the outcome of a webhook delivery.
type ImportResponse struct {
	// Inserted is the number of new checkin rows; redelivered duplicates are
	// not counted.
	Inserted int64 `json:"inserted"`
}

// WebhookHandler accepts commit notifications from hosting platforms.
type WebhookHandler struct {
	svc ImportService
}

// NewWebhookHandler binds the handler to an import service.
func NewWebhookHandler(svc ImportService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Post godoc
// @ID          importWebhook
// @Summary     Import a commit notification
// @Description Accepts a GitHub/GitLab/SourceForge push payload and imports its commits. Redeliveries are idempotent.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       body  body  object  true  "Push event payload"
//
// @Success     200  {object}  handlers.ImportResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed payload"
// @Failure     403  {object}  handlers.ErrorResponse  "No write permission"
// @Failure     500  {object}  handlers.ErrorResponse  "Import failed"
// @Router      /webhook [post]
func (h *WebhookHandler) Post(c *gin.Context) {
	var payload webhook.Document
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	remoteUser, _, _ := c.Request.BasicAuth()
	inserted, err := h.svc.Import(c.Request.Context(), c.ClientIP(), remoteUser, payload)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWritePermission):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, webhook.ErrNoRepository), errors.Is(err, webhook.ErrNoCommits):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
		}
		return
	}

	middleware.LoggerFrom(c).Info().Int64("inserted", inserted).Msg("webhook accepted")
	ok(c, http.StatusOK, ImportResponse{Inserted: inserted})
}
