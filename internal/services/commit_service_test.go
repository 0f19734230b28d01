package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nhnb/postsai/internal/repo"
)

func TestPreviousRevision(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.5", "1.4"},
		{"1.10", "1.9"},
		{"1.2.3.4", "1.2.3.3"},
		// x.y.z.1 steps up to the parent branch.
		{"1.2.3.1", "1.2"},
		// The very first revision has no parent to strip.
		{"1.1", "1.0"},
		// Not numeric: returned unchanged.
		{"1.x", "1.x"},
	}
	for _, tc := range cases {
		if got := PreviousRevision(tc.in); got != tc.want {
			t.Fatalf("PreviousRevision(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatHeader(t *testing.T) {
	rows := []repo.CommitFileRow{
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
	}

	h := FormatHeader(rows)
	if h.Repository != "acme/widgets" || h.Author != "jane@example.org" || h.Commit != "c1" {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.Published != "2016-04-23T08:00:00" || h.Timestamp != "2016-04-22T20:37:56" {
		t.Fatalf("unexpected timestamps: %+v", h)
	}
}

func TestCommitService_ReadNotFound(t *testing.T) {
	svc := &CommitService{DB: newServiceDB(t)}

	_, err := svc.Read(context.Background(), "acme/widgets", "missing")
	if !errors.Is(err, ErrCommitNotFound) {
		t.Fatalf("expected ErrCommitNotFound, got %v", err)
	}
}

func TestWriteDiff_DeletionMarkerForUndottedRevisions(t *testing.T) {
	svc := &CommitService{DiffClient: "cvs"}
	rows := []repo.CommitFileRow{
		{Dir: "src", File: "gone.c", Revision: ""},
		{Dir: "", File: "hash-only.c", Revision: "d6cd1e2b"},
	}

	var sb strings.Builder
	if err := svc.WriteDiff(context.Background(), &sb, rows); err != nil {
		t.Fatalf("WriteDiff: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "Index: src/gone.c deleted\r\n") {
		t.Fatalf("missing deletion marker: %q", out)
	}
	if !strings.Contains(out, "Index: hash-only.c deleted\r\n") {
		t.Fatalf("undotted revision must not invoke the client: %q", out)
	}
}

func TestWriteDiff_ClientFailureDoesNotAbort(t *testing.T) {
	svc := &CommitService{DiffClient: "/nonexistent/vcs-client"}
	rows := []repo.CommitFileRow{
		{Dir: "src", File: "a.c", Revision: "1.5", RepositoryURL: ":pserver:host/cvsroot"},
		{Dir: "src", File: "b.c", Revision: ""},
	}

	var sb strings.Builder
	if err := svc.WriteDiff(context.Background(), &sb, rows); err != nil {
		t.Fatalf("WriteDiff: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "diff unavailable") {
		t.Fatalf("missing unavailable marker: %q", out)
	}
	if !strings.Contains(out, "Index: src/b.c deleted\r\n") {
		t.Fatalf("later files must still be processed: %q", out)
	}
}
