package repo

import (
	"context"
	"testing"
	"time"

	"github.com/nhnb/postsai/internal/domain"
)

func pinImportNow(t *testing.T, fixed time.Time) {
	t.Helper()
	old := nowFn
	nowFn = func() time.Time { return fixed }
	t.Cleanup(func() { nowFn = old })
}

func importBatch() (domain.ImportHeader, []domain.ChangeRecord) {
	head := domain.ImportHeader{
		RemoteAddr: "203.0.113.7",
		SenderUser: "octocat",
	}
	first := *testRecord()
	second := *testRecord()
	second.File = "login.html"
	second.Type = domain.ChangeAdd
	return head, []domain.ChangeRecord{first, second}
}

func TestImporter_InsertsBatch(t *testing.T) {
	db := newTestDB(t)
	pinImportNow(t, time.Date(2016, 4, 23, 8, 0, 0, 0, time.Local))
	im := &Importer{DB: db}

	head, records := importBatch()
	inserted, err := im.Import(context.Background(), head, records)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", inserted)
	}

	var checkins, actions, people int64
	db.Model(&domain.Checkin{}).Count(&checkins)
	db.Model(&domain.ImportAction{}).Count(&actions)
	db.Model(&domain.Person{}).Count(&people)
	if checkins != 2 || actions != 1 {
		t.Fatalf("expected 2 checkins and 1 import action, got %d and %d", checkins, actions)
	}
	// jane (author) and bob (committer), deduplicated across both records.
	if people != 2 {
		t.Fatalf("expected 2 person rows, got %d", people)
	}

	var action domain.ImportAction
	if err := db.First(&action).Error; err != nil {
		t.Fatalf("read import action: %v", err)
	}
	if action.RemoteAddr != "203.0.113.7" || action.SenderUser != "octocat" {
		t.Fatalf("unexpected import action: %+v", action)
	}
}

func TestImporter_RedeliveryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	pinImportNow(t, time.Date(2016, 4, 23, 8, 0, 0, 0, time.Local))
	im := &Importer{DB: db}

	head, records := importBatch()
	if _, err := im.Import(context.Background(), head, records); err != nil {
		t.Fatalf("first import: %v", err)
	}

	inserted, err := im.Import(context.Background(), head, records)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected 0 inserted rows on redelivery, got %d", inserted)
	}

	var checkins int64
	db.Model(&domain.Checkin{}).Count(&checkins)
	if checkins != 2 {
		t.Fatalf("expected 2 checkin rows after redelivery, got %d", checkins)
	}
}

func TestImporter_BadTimestampRollsBackBatch(t *testing.T) {
	db := newTestDB(t)
	im := &Importer{DB: db}

	head, records := importBatch()
	records[1].CiWhen = "garbage"

	if _, err := im.Import(context.Background(), head, records); err == nil {
		t.Fatal("expected import to fail")
	}

	// The whole batch rolls back, including the rows before the bad record.
	var checkins, actions int64
	db.Model(&domain.Checkin{}).Count(&checkins)
	db.Model(&domain.ImportAction{}).Count(&actions)
	if checkins != 0 || actions != 0 {
		t.Fatalf("expected empty tables after rollback, got %d checkins and %d actions", checkins, actions)
	}
}
