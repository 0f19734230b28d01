package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhnb/postsai/internal/repo"
	"github.com/nhnb/postsai/internal/services"
)

type fakeCommitService struct {
	rows []repo.CommitFileRow
	err  error
}

func (f *fakeCommitService) Read(_ context.Context, _, _ string) ([]repo.CommitFileRow, error) {
	return f.rows, f.err
}

func (f *fakeCommitService) WriteDiff(_ context.Context, w io.Writer, rows []repo.CommitFileRow) error {
	for _, row := range rows {
		fmt.Fprintf(w, "diff for %s\n", row.File)
	}
	return nil
}

func newCommitRouter(svc CommitService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/commit", NewCommitHandler(svc).Get)
	return r
}

func TestCommitHandler_MissingParams(t *testing.T) {
	w := getPath(newCommitRouter(&fakeCommitService{}), "/api/commit?repository=acme/widgets")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestCommitHandler_NotFound(t *testing.T) {
	svc := &fakeCommitService{err: services.ErrCommitNotFound}
	w := getPath(newCommitRouter(svc), "/api/commit?repository=acme/widgets&commit=missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
}

func TestCommitHandler_StreamsHeaderAndDiff(t *testing.T) {
	svc := &fakeCommitService{rows: []repo.CommitFileRow{
		{
			Repository:  "acme/widgets",
			CiWhen:      time.Date(2016, 4, 23, 8, 0, 0, 0, time.UTC),
			Who:         "jane@example.org",
			Dir:         "src",
			File:        "a.go",
			Revision:    "1.5",
			Description: "change things",
			Hash:        "c1",
			CoWhen:      time.Date(2016, 4, 22, 20, 37, 56, 0, time.UTC),
		},
	}}

	w := getPath(newCommitRouter(svc), "/api/commit?repository=acme/widgets&commit=c1")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type: %q", ct)
	}

	lines := strings.SplitN(w.Body.String(), "\n", 2)
	if len(lines) != 2 {
		t.Fatalf("expected header line plus diff, got %q", w.Body.String())
	}
	var header services.CommitHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header line: %v", err)
	}
	if header.Commit != "c1" || header.Author != "jane@example.org" {
		t.Fatalf("header: %+v", header)
	}
	if !strings.Contains(lines[1], "diff for a.go") {
		t.Fatalf("diff body: %q", lines[1])
	}
}
