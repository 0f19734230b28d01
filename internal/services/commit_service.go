// This file implements the commit-detail view: it reads back every file of
// one commit, extracts the commit meta information, and streams a unified
// diff per changed file by invoking an external version-control client.
package services

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/nhnb/postsai/internal/repo"
)

// CommitHeader is the meta information of one commit, emitted as a JSON
// object ahead of the plain-text diff stream.
type CommitHeader struct {
	Repository  string `json:"repository"`
	Published   string `json:"published"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Commit      string `json:"commit"`
	Timestamp   string `json:"timestamp"`
}

// CommitService reads single commits and produces their diffs.
type CommitService struct {
	// DB is the GORM handle used for reads.
	DB *gorm.DB
	// DiffClient is the external version-control binary invoked per file
	// (default "cvs").
	DiffClient string
}

// Read returns the per-file rows of one commit in one repository.
func (s *CommitService) Read(ctx context.Context, repository, commit string) ([]repo.CommitFileRow, error) {
	rows, err := repo.CommitFiles(ctx, s.DB, repository, commit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrCommitNotFound, commit, repository)
	}
	return rows, nil
}

// FormatHeader extracts the commit meta information from the first row.
func FormatHeader(rows []repo.CommitFileRow) CommitHeader {
	const layout = "2006-01-02T15:04:05"
	first := rows[0]
	return CommitHeader{
		Repository:  first.Repository,
		Published:   first.CiWhen.Format(layout),
		Author:      first.Who,
		Description: first.Description,
		Commit:      first.Hash,
		Timestamp:   first.CoWhen.Format(layout),
	}
}

// PreviousRevision computes the preceding CVS revision of a dotted revision
// string: x.y.z.1 steps up to the parent branch, otherwise the last number
// is decremented.
func PreviousRevision(revision string) string {
	split := strings.Split(revision, ".")
	last := split[len(split)-1]
	if last == "1" && len(split) > 2 {
		split = split[:len(split)-2]
	} else {
		n, err := strconv.Atoi(last)
		if err != nil {
			return revision
		}
		split[len(split)-1] = strconv.Itoa(n - 1)
	}
	return strings.Join(split, ".")
}

// WriteDiff streams a unified diff for every file of the commit to w. Files
// whose revision is empty or not dotted (no predecessor can be computed) get
// a deletion marker line instead of a client invocation.
func (s *CommitService) WriteDiff(ctx context.Context, w io.Writer, rows []repo.CommitFileRow) error {
	client := s.DiffClient
	if client == "" {
		client = "cvs"
	}

	for _, row := range rows {
		path := strings.TrimPrefix(row.Dir+"/"+row.File, "/")
		if row.Revision == "" || !strings.Contains(row.Revision, ".") {
			if _, err := fmt.Fprintf(w, "Index: %s deleted\r\n", path); err != nil {
				return err
			}
			continue
		}

		cmd := exec.CommandContext(ctx, client,
			"-d", row.RepositoryURL,
			"rdiff", "-u",
			"-r", PreviousRevision(row.Revision),
			"-r", row.Revision,
			path,
		)
		cmd.Stdout = w
		cmd.Stderr = w
		if err := cmd.Run(); err != nil {
			// A failing client for one file must not truncate the stream for
			// the remaining files.
			fmt.Fprintf(w, "Index: %s (diff unavailable: %v)\r\n", path, err)
		}
	}
	return nil
}
