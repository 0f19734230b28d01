package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhnb/postsai/internal/repo"
	"github.com/nhnb/postsai/internal/services"
)

// CommitService reads single commits and produces their diffs.
type CommitService interface {
	Read(ctx context.Context, repository, commit string) ([]repo.CommitFileRow, error)
	WriteDiff(ctx context.Context, w io.Writer, rows []repo.CommitFileRow) error
}

// CommitHandler exposes the commit-detail view.
type CommitHandler struct {
	svc CommitService
}

// NewCommitHandler binds the handler to a commit service.
func NewCommitHandler(svc CommitService) *CommitHandler {
	return &CommitHandler{svc: svc}
}

// Get godoc
// @ID          viewCommit
// @Summary     View a single commit
// @Description Streams the commit meta information as a JSON line followed by a unified diff of every changed file.
// @Tags        Commit
// @Produce     plain
//
// @Param       repository  query  string  true  "Repository name"
// @Param       commit      query  string  true  "Commit identifier"
//
// @Success     200  {string}  string  "Header line and diff"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing parameter"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown commit"
// @Failure     500  {object}  handlers.ErrorResponse  "Read failed"
// @Router      /commit [get]
func (h *CommitHandler) Get(c *gin.Context) {
	repository := c.Query("repository")
	commit := c.Query("commit")
	if repository == "" || commit == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "repository and commit are required")
		return
	}

	rows, err := h.svc.Read(c.Request.Context(), repository, commit)
	if err != nil {
		if errors.Is(err, services.ErrCommitNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}

	header, err := json.Marshal(services.FormatHeader(rows))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	c.Writer.Write(header)
	c.Writer.Write([]byte("\n"))

	// Diff output is streamed; client failures from here on cannot change the
	// status code anymore.
	_ = h.svc.WriteDiff(c.Request.Context(), c.Writer, rows)
}
