// This file implements the webhook import flow: write-permission check,
// payload normalization, and the transactional batch import. The permission
// pattern is an injected strategy so deployments can plug in their own
// authorization source; its absence means "allow all".
package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nhnb/postsai/internal/repo"
	"github.com/nhnb/postsai/internal/webhook"
)

var (
	// importedCheckins counts fact rows actually inserted by imports.
	importedCheckins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postsai_checkins_inserted_total",
		Help: "Total number of checkin rows inserted by webhook imports.",
	})

	// duplicateCheckins counts redelivered rows absorbed by the natural key.
	duplicateCheckins = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postsai_checkins_duplicate_total",
		Help: "Total number of checkin rows skipped as duplicates.",
	})

	// failedImports counts import batches that were rolled back.
	failedImports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "postsai_imports_failed_total",
		Help: "Total number of import batches that failed and were rolled back.",
	})
)

func init() {
	prometheus.MustRegister(importedCheckins, duplicateCheckins, failedImports)
}

// PermissionPattern supplies an authorization regex on demand. A nil
// function or an empty pattern allows everything.
type PermissionPattern func() string

// ImportService imports webhook payloads into the commit database.
type ImportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// WritePattern restricts which repository names may be imported into.
	WritePattern PermissionPattern
	// Override optionally replaces guessed repository URLs.
	Override repo.URLOverride
}

// Import validates write permission for the payload's repository, normalizes
// the payload, and runs the all-or-nothing batch import. It returns the
// number of checkin rows inserted; redelivered duplicates are skipped
// silently and do not fail the request.
func (s *ImportService) Import(ctx context.Context, remoteAddr, remoteUser string, payload webhook.Document) (int64, error) {
	repoName := webhook.RepoName(payload)

	allowed, err := matchesPattern(s.WritePattern, repoName)
	if err != nil {
		return 0, err
	}
	if !allowed {
		return 0, fmt.Errorf("%w: %s", ErrWritePermission, repoName)
	}

	head, records, err := webhook.Normalize(payload)
	if err != nil {
		return 0, err
	}
	head.RemoteAddr = remoteAddr
	head.RemoteUser = remoteUser

	importer := &repo.Importer{DB: s.DB, Override: s.Override}
	inserted, err := importer.Import(ctx, head, records)
	if err != nil {
		failedImports.Inc()
		return 0, err
	}

	importedCheckins.Add(float64(inserted))
	duplicateCheckins.Add(float64(int64(len(records)) - inserted))

	log.Info().
		Str("repository", repoName).
		Int("records", len(records)).
		Int64("inserted", inserted).
		Msg("webhook import completed")
	return inserted, nil
}

// matchesPattern evaluates an optional permission pattern against a value.
// Patterns are anchored at the start, matching the original semantics.
func matchesPattern(pattern PermissionPattern, value string) (bool, error) {
	if pattern == nil {
		return true, nil
	}
	p := pattern()
	if p == "" {
		return true, nil
	}
	re, err := regexp.Compile("^(?:" + p + ")")
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrBadPattern, p)
	}
	return re.MatchString(value), nil
}
