// This file implements the read path: request-filter validation against
// configured privacy patterns, query construction and execution, and the
// coalescing of flat per-file rows into per-commit groups for display.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nhnb/postsai/internal/domain"
	"github.com/nhnb/postsai/internal/repo"
)

// CommitGroup is one coalesced commit: consecutive per-file rows sharing a
// commit identifier merged into a single record with directory and file
// lists. It marshals as the legacy positional array the UI consumes:
//
//	[repository, ci_when, who, dirs, files, revision, branch,
//	 added/removed, description, repository, commit]
type CommitGroup struct {
	Repository  string
	CiWhen      time.Time
	Who         string
	Dirs        []string
	Files       []string
	Revision    string
	Branch      string
	LinesChange string
	Description string
	Commit      string
}

// MarshalJSON renders the group as the positional row array expected by the
// UI. The repository name appears twice to preserve the historical shape.
func (g CommitGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		g.Repository,
		g.CiWhen.Format("2006-01-02T15:04:05"),
		g.Who,
		g.Dirs,
		g.Files,
		g.Revision,
		g.Branch,
		g.LinesChange,
		g.Description,
		g.Repository,
		g.Commit,
	})
}

// QueryResult is the response payload of a history query.
type QueryResult struct {
	// Config is the UI configuration passed through verbatim.
	Config map[string]any `json:"config"`
	// Data holds the coalesced commit groups in query order.
	Data []CommitGroup `json:"data"`
	// Repositories maps readable repository names to their URL records.
	Repositories map[string]domain.Repository `json:"repositories"`
}

// QueryService serves filtered commit history.
type QueryService struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
	// Dialect selects regex operators for the query builder.
	Dialect repo.Dialect
	// ReadPattern restricts readable repository names; nil allows all.
	ReadPattern PermissionPattern
	// InputFilters maps parameter names to validation patterns a supplied
	// value must match (privacy filtering); requests failing one are
	// rejected before any query runs.
	InputFilters map[string]string
	// FullText enables relevance matching for description searches.
	FullText bool
	// ViewVC rewrites the fact table name for ViewVC databases.
	ViewVC bool
	// UIConfig is passed through to the client unmodified.
	UIConfig map[string]any
}

// History validates the filters, runs the history query, and coalesces the
// result. Query-side failures never mutate state.
func (s *QueryService) History(ctx context.Context, f repo.Filters) (*QueryResult, error) {
	if err := s.validateInput(f); err != nil {
		return nil, err
	}

	pattern := ""
	if s.ReadPattern != nil {
		pattern = s.ReadPattern()
	}

	sql, args, err := repo.BuildQuery(f, repo.QueryOptions{
		Dialect:     s.Dialect,
		ReadPattern: pattern,
		FullText:    s.FullText && s.Dialect == repo.DialectMySQL,
	})
	if err != nil {
		return nil, err
	}
	if s.ViewVC {
		sql = repo.RewriteForViewVC(sql)
	}

	rows, err := repo.QueryCheckins(ctx, s.DB, sql, args)
	if err != nil {
		return nil, err
	}

	repositories, err := repo.RepositoryMap(ctx, s.DB, pattern, s.Dialect)
	if err != nil {
		return nil, err
	}

	config := s.UIConfig
	if config == nil {
		config = map[string]any{}
	}

	return &QueryResult{
		Config:       config,
		Data:         Coalesce(rows),
		Repositories: repositories,
	}, nil
}

// validateInput applies the configured privacy patterns to the supplied
// filter values. Anchoring characters the UI adds (^...$) are stripped
// before matching, mirroring the original behavior.
func (s *QueryService) validateInput(f repo.Filters) error {
	for name, pattern := range s.InputFilters {
		value := f.Value(name)
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "^") && strings.HasSuffix(value, "$") {
			value = value[1 : len(value)-1]
		}
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if !re.MatchString(value) {
			return fmt.Errorf("%w: column %q", ErrFilterRejected, name)
		}
	}
	return nil
}

// Coalesce merges the ordered per-file rows into per-commit groups. Rows are
// merged into the current group while their commit identifier equals the
// previous row's and is present; rows without an identifier (legacy data)
// always form their own single-file group. The input ordering is the query
// builder's, so adjacency implies same commit.
func Coalesce(rows []repo.CheckinRow) []CommitGroup {
	result := []CommitGroup{}
	for _, row := range rows {
		if n := len(result); n > 0 && sameCommit(&result[n-1], &row) {
			last := &result[n-1]
			last.Dirs = append(last.Dirs, row.Dir)
			last.Files = append(last.Files, row.File)
			continue
		}
		group := CommitGroup{
			Repository:  row.Repository,
			CiWhen:      row.CiWhen,
			Who:         row.Who,
			Dirs:        []string{row.Dir},
			Files:       []string{row.File},
			Revision:    row.Revision,
			Branch:      row.Branch,
			LinesChange: row.AddedLines + "/" + row.RemovedLines,
			Description: row.Description,
		}
		if row.Hash != nil {
			group.Commit = *row.Hash
		}
		result = append(result, group)
	}
	return result
}

// sameCommit reports whether a row belongs to the previous group: both must
// carry the same non-empty commit identifier.
func sameCommit(group *CommitGroup, row *repo.CheckinRow) bool {
	return row.Hash != nil && *row.Hash != "" && group.Commit == *row.Hash
}
