package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nhnb/postsai/internal/domain"
	"github.com/nhnb/postsai/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("service_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func row(file, dir, hash string) repo.CheckinRow {
	r := repo.CheckinRow{
		Repository:   "acme/widgets",
		CiWhen:       time.Date(2016, 4, 22, 20, 37, 56, 0, time.UTC),
		Who:          "jane@example.org",
		Dir:          dir,
		File:         file,
		Revision:     "abc",
		Branch:       "",
		AddedLines:   "0",
		RemovedLines: "0",
		Description:  "change things",
	}
	if hash != "" {
		r.Hash = strPtr(hash)
	}
	return r
}

func TestCoalesce_MergesAdjacentSameCommit(t *testing.T) {
	rows := []repo.CheckinRow{
		row("a.go", "src", "c1"),
		row("b.go", "src", "c1"),
		row("c.go", "web", "c2"),
	}

	groups := Coalesce(rows)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Files) != 2 || groups[0].Files[1] != "b.go" {
		t.Fatalf("first group files: %v", groups[0].Files)
	}
	if len(groups[0].Dirs) != 2 {
		t.Fatalf("first group dirs: %v", groups[0].Dirs)
	}
	if groups[0].Commit != "c1" || groups[1].Commit != "c2" {
		t.Fatalf("commit ids: %q %q", groups[0].Commit, groups[1].Commit)
	}
}

func TestCoalesce_EmptyHashNeverMerges(t *testing.T) {
	rows := []repo.CheckinRow{
		row("a.go", "src", ""),
		row("b.go", "src", ""),
	}
	rows[0].Hash = strPtr("")
	rows[1].Hash = strPtr("")

	groups := Coalesce(rows)
	if len(groups) != 2 {
		t.Fatalf("legacy rows without a commit id must not merge, got %d groups", len(groups))
	}
}

func TestCoalesce_NilHashNeverMerges(t *testing.T) {
	rows := []repo.CheckinRow{
		row("a.go", "src", ""),
		row("b.go", "src", ""),
	}

	groups := Coalesce(rows)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestCoalesce_NonAdjacentSameCommitStaysSeparate(t *testing.T) {
	rows := []repo.CheckinRow{
		row("a.go", "src", "c1"),
		row("b.go", "src", "c2"),
		row("c.go", "src", "c1"),
	}

	groups := Coalesce(rows)
	if len(groups) != 3 {
		t.Fatalf("only adjacent rows merge, got %d groups", len(groups))
	}
}

func TestCommitGroup_MarshalsAsPositionalArray(t *testing.T) {
	g := CommitGroup{
		Repository:  "acme/widgets",
		CiWhen:      time.Date(2016, 4, 22, 20, 37, 56, 0, time.UTC),
		Who:         "jane@example.org",
		Dirs:        []string{"src"},
		Files:       []string{"a.go"},
		Revision:    "abc",
		Branch:      "",
		LinesChange: "0/0",
		Description: "change things",
		Commit:      "c1",
	}

	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(arr) != 11 {
		t.Fatalf("expected 11 positional elements, got %d", len(arr))
	}
	if arr[0] != "acme/widgets" || arr[9] != "acme/widgets" {
		t.Fatalf("repository must appear at positions 0 and 9: %v", arr)
	}
	if arr[1] != "2016-04-22T20:37:56" {
		t.Fatalf("timestamp: %v", arr[1])
	}
	if arr[10] != "c1" {
		t.Fatalf("commit id: %v", arr[10])
	}
}

func TestQueryService_RejectsFilteredValue(t *testing.T) {
	svc := &QueryService{
		DB:           newServiceDB(t),
		InputFilters: map[string]string{"who": ".*@example[.]org"},
	}

	_, err := svc.History(context.Background(), repo.Filters{Who: "eve@evil.net", Date: "none"})
	if !errors.Is(err, ErrFilterRejected) {
		t.Fatalf("expected ErrFilterRejected, got %v", err)
	}
}

func TestQueryService_AllowsMatchingValueAndStripsAnchors(t *testing.T) {
	svc := &QueryService{
		DB:           newServiceDB(t),
		InputFilters: map[string]string{"who": ".*@example[.]org"},
	}

	// The UI wraps exact matches in ^...$; those anchors must be ignored.
	result, err := svc.History(context.Background(), repo.Filters{Who: "^jane@example.org$", Date: "none"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(result.Data) != 0 {
		t.Fatalf("empty database must yield no groups, got %d", len(result.Data))
	}
	if result.Config == nil || result.Repositories == nil {
		t.Fatal("config and repositories must always be present")
	}
}

func TestQueryService_EndToEnd(t *testing.T) {
	db := newServiceDB(t)
	im := &repo.Importer{DB: db}

	head := domain.ImportHeader{}
	records := []domain.ChangeRecord{
		{
			Type: domain.ChangeModify, CiWhen: "2016-04-22T20:37:56", CoWhen: "2016-04-22T20:37:56",
			Who: "jane@example.org", Repository: "acme/widgets", URL: "https://github.com/acme/widgets",
			Dir: "src", File: "a.go", Revision: "c1", AddedLines: "0", RemovedLines: "0",
			Description: "change things", CommitID: "c1", Author: "jane@example.org", Committer: "jane@example.org",
		},
		{
			Type: domain.ChangeModify, CiWhen: "2016-04-22T20:37:56", CoWhen: "2016-04-22T20:37:56",
			Who: "jane@example.org", Repository: "acme/widgets", URL: "https://github.com/acme/widgets",
			Dir: "src", File: "b.go", Revision: "c1", AddedLines: "0", RemovedLines: "0",
			Description: "change things", CommitID: "c1", Author: "jane@example.org", Committer: "jane@example.org",
		},
	}
	if _, err := im.Import(context.Background(), head, records); err != nil {
		t.Fatalf("import: %v", err)
	}

	svc := &QueryService{DB: db, Dialect: repo.DialectSQLite}
	result, err := svc.History(context.Background(), repo.Filters{
		Repository: "acme/widgets",
		Date:       "explicit",
		MinDate:    "2000-01-01",
	})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("expected 1 coalesced group, got %d", len(result.Data))
	}
	if len(result.Data[0].Files) != 2 {
		t.Fatalf("expected 2 files in group, got %v", result.Data[0].Files)
	}
	if _, ok := result.Repositories["acme/widgets"]; !ok {
		t.Fatalf("missing repository record: %v", result.Repositories)
	}
}
