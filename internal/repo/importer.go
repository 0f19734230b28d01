package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nhnb/postsai/internal/domain"
)

// nowFn is a seam so tests can pin the import-action timestamp.
var nowFn = time.Now

// Importer executes transactional batch imports of normalized change
// records. One Import call is one all-or-nothing transaction: any resolution
// or insert failure rolls back the whole batch.
type Importer struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Override optionally replaces guessed repository URLs (see URLOverride).
	Override URLOverride
}

// Import persists one webhook invocation: an ImportAction row, the dimension
// rows the records require, and one Checkin fact row per record. Redelivered
// records whose natural key already exists are silently skipped. It returns
// the number of fact rows actually inserted.
func (im *Importer) Import(ctx context.Context, head domain.ImportHeader, records []domain.ChangeRecord) (int64, error) {
	var inserted int64

	err := im.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		action := domain.ImportAction{
			RemoteAddr: head.RemoteAddr,
			RemoteUser: head.RemoteUser,
			SenderAddr: head.SenderAddr,
			SenderUser: head.SenderUser,
			IaWhen:     nowFn(),
		}
		if err := tx.Create(&action).Error; err != nil {
			return fmt.Errorf("create import action: %w", err)
		}

		// Fresh per-session cache; never shared across imports.
		resolver := NewResolver(tx, im.Override)

		for i := range records {
			rec := &records[i]

			ciWhen, err := time.ParseInLocation(timestampLayout, rec.CiWhen, time.Local)
			if err != nil {
				return fmt.Errorf("change record for %s/%s has no usable checkin time: %w", rec.Dir, rec.File, err)
			}

			// Independent dimensions first; CommitID last because it pulls in
			// the author and committer Person rows.
			whoID, err := resolver.Person(rec.Who)
			if err != nil {
				return err
			}
			repositoryID, err := resolver.Repository(rec)
			if err != nil {
				return err
			}
			dirID, err := resolver.Directory(rec.Dir)
			if err != nil {
				return err
			}
			fileID, err := resolver.File(rec.File)
			if err != nil {
				return err
			}
			branchID, err := resolver.Branch(rec.Branch)
			if err != nil {
				return err
			}
			descID, err := resolver.Description(rec.Description)
			if err != nil {
				return err
			}
			commitID, err := resolver.CommitID(rec)
			if err != nil {
				return err
			}

			checkin := domain.Checkin{
				Type:           rec.Type,
				CiWhen:         ciWhen,
				WhoID:          whoID,
				RepositoryID:   repositoryID,
				DirID:          dirID,
				FileID:         fileID,
				Revision:       rec.Revision,
				BranchID:       branchID,
				AddedLines:     rec.AddedLines,
				RemovedLines:   rec.RemovedLines,
				DescID:         descID,
				StickyTag:      "",
				CommitIDRef:    commitID,
				ImportActionID: action.ID,
			}
			// Duplicate delivery protection: the natural-key unique index plus
			// DO NOTHING turns redelivered rows into no-ops.
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&checkin)
			if res.Error != nil {
				return fmt.Errorf("insert checkin %s %s/%s: %w", rec.Type, rec.Dir, rec.File, res.Error)
			}
			inserted += res.RowsAffected
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
