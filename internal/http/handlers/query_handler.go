package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhnb/postsai/internal/repo"
	"github.com/nhnb/postsai/internal/services"
)

// QueryService serves filtered commit history.
type QueryService interface {
	History(ctx context.Context, f repo.Filters) (*services.QueryResult, error)
}

// QueryHandler exposes the commit-history search endpoint.
type QueryHandler struct {
	svc QueryService
}

// NewQueryHandler binds the handler to a query service.
func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// filtersFromQuery maps the request parameters onto the filter set. Every
// column filter has a companion <name>type parameter selecting the match
// mode.
func filtersFromQuery(c *gin.Context) repo.Filters {
	return repo.Filters{
		Branch:          c.Query("branch"),
		BranchType:      c.Query("branchtype"),
		Dir:             c.Query("dir"),
		DirType:         c.Query("dirtype"),
		Description:     c.Query("description"),
		DescriptionType: c.Query("descriptiontype"),
		File:            c.Query("file"),
		FileType:        c.Query("filetype"),
		Who:             c.Query("who"),
		WhoType:         c.Query("whotype"),
		CVSRoot:         c.Query("cvsroot"),
		CVSRootType:     c.Query("cvsroottype"),
		Repository:      c.Query("repository"),
		RepositoryType:  c.Query("repositorytype"),
		Commit:          c.Query("commit"),
		CommitType:      c.Query("committype"),
		Date:            c.Query("date"),
		Hours:           c.Query("hours"),
		MinDate:         c.Query("mindate"),
		MaxDate:         c.Query("maxdate"),
		Limit:           c.Query("limit"),
	}
}

// isInputError reports whether a query failure was caused by the caller.
func isInputError(err error) bool {
	return errors.Is(err, repo.ErrBadMatchType) ||
		errors.Is(err, repo.ErrBadLimit) ||
		errors.Is(err, repo.ErrBadDate) ||
		errors.Is(err, repo.ErrBadHours) ||
		errors.Is(err, repo.ErrBadDateBound)
}

// Get godoc
// @ID          queryHistory
// @Summary     Search commit history
// @Description Returns coalesced commits matching the column and date filters, newest first.
// @Tags        Query
// @Produce     json
//
// @Param       repository  query  string  false  "Repository name filter"
// @Param       branch      query  string  false  "Branch filter (HEAD selects the default branch)"
// @Param       who         query  string  false  "Author filter"
// @Param       date        query  string  false  "Time window: none, day, week, month, hours, explicit"  default(day)
// @Param       limit       query  int     false  "Maximum number of rows"
//
// @Success     200  {object}  services.QueryResult
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filter"
// @Failure     403  {object}  handlers.ErrorResponse  "Filter value rejected"
// @Failure     500  {object}  handlers.ErrorResponse  "Query failed"
// @Router      /query [get]
func (h *QueryHandler) Get(c *gin.Context) {
	result, err := h.svc.History(c.Request.Context(), filtersFromQuery(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFilterRejected):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case isInputError(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		}
		return
	}

	// History responses are expensive to compute but change slowly.
	c.Header("Cache-Control", "max-age=60")
	ok(c, http.StatusOK, result)
}
