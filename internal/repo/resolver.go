package repo

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nhnb/postsai/internal/domain"
)

// timestampLayout is the timezone-less ISO-8601 layout used by change
// records and the legacy schema.
const timestampLayout = "2006-01-02T15:04:05"

// Dimension kinds used as cache namespaces.
const (
	kindRepository  = "repository"
	kindWho         = "who"
	kindDir         = "dir"
	kindFile        = "file"
	kindBranch      = "branch"
	kindDescription = "description"
	kindHash        = "hash"
)

// idCache maps (dimension kind, surface value) to a previously resolved key.
// It is scoped to exactly one import session and must never be shared across
// concurrent imports.
type idCache map[string]map[string]uint

func (c idCache) get(kind, value string) (uint, bool) {
	id, ok := c[kind][value]
	return id, ok
}

func (c idCache) put(kind, value string, id uint) {
	if c[kind] == nil {
		c[kind] = map[string]uint{}
	}
	c[kind][value] = id
}

// Resolver turns dimension surface values into surrogate keys using
// get-or-create lookups against the dimension tables, memoized per import
// session. Dimension rows are append-only: a value that already exists is
// never updated.
//
// A Resolver is bound to one transaction and is not safe for concurrent use.
type Resolver struct {
	tx       *gorm.DB
	override URLOverride
	cache    idCache
}

// NewResolver creates a resolver bound to the given transaction. The
// override, when non-nil, may replace guessed repository URLs at creation
// time.
func NewResolver(tx *gorm.DB, override URLOverride) *Resolver {
	return &Resolver{tx: tx, override: override, cache: idCache{}}
}

// lookup implements the shared get-or-create flow: consult the session
// cache, then the dimension table, and only then insert a fresh row built by
// create.
func (r *Resolver) lookup(kind, column, table, value string, create func() (uint, error)) (uint, error) {
	if id, ok := r.cache.get(kind, value); ok {
		return id, nil
	}

	var row struct{ ID uint }
	err := r.tx.Table(table).Select("id").Where(column+" = ?", value).Take(&row).Error
	switch {
	case err == nil:
		r.cache.put(kind, value, row.ID)
		return row.ID, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return 0, fmt.Errorf("lookup %s %q: %w", kind, value, err)
	}

	id, err := create()
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", kind, value, err)
	}
	r.cache.put(kind, value, id)
	return id, nil
}

// Person resolves an author/committer identity string.
func (r *Resolver) Person(value string) (uint, error) {
	return r.lookup(kindWho, "who", "people", value, func() (uint, error) {
		row := domain.Person{Who: value}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// Directory resolves a directory path.
func (r *Resolver) Directory(value string) (uint, error) {
	return r.lookup(kindDir, "dir", "dirs", value, func() (uint, error) {
		row := domain.Directory{Dir: value}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// File resolves a file name.
func (r *Resolver) File(value string) (uint, error) {
	return r.lookup(kindFile, "file", "files", value, func() (uint, error) {
		row := domain.File{File: value}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// Branch resolves a branch name ("" for the default branch).
func (r *Resolver) Branch(value string) (uint, error) {
	return r.lookup(kindBranch, "branch", "branches", value, func() (uint, error) {
		row := domain.Branch{Branch: value}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// Description resolves a commit message, storing its length alongside the
// text on first creation.
func (r *Resolver) Description(value string) (uint, error) {
	return r.lookup(kindDescription, "description", "descs", value, func() (uint, error) {
		row := domain.Description{Description: value, Hash: len(value)}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// Repository resolves a repository name. On first sight the URL columns are
// guessed from the change record and may be replaced by the configured
// override; they are never recomputed later.
func (r *Resolver) Repository(rec *domain.ChangeRecord) (uint, error) {
	return r.lookup(kindRepository, "repository", "repositories", rec.Repository, func() (uint, error) {
		guess := GuessRepositoryURLs(rec)
		if r.override != nil {
			guess = r.override(rec, guess)
		}
		row := domain.Repository{
			Repository:    rec.Repository,
			BaseURL:       guess.BaseURL,
			RepositoryURL: guess.RepositoryURL,
			FileURL:       guess.FileURL,
			CommitURL:     guess.CommitURL,
			TrackerURL:    guess.TrackerURL,
			IconURL:       guess.IconURL,
		}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}

// CommitID resolves a commit identifier. The author and committer Person
// rows are resolved first (their keys are stored on the commitids row), so
// resolution order within an import must put Person handling before
// CommitID handling. A malformed commit timestamp aborts the whole batch.
func (r *Resolver) CommitID(rec *domain.ChangeRecord) (uint, error) {
	return r.lookup(kindHash, "hash", "commitids", rec.CommitID, func() (uint, error) {
		authorID, err := r.Person(rec.Author)
		if err != nil {
			return 0, err
		}
		committerID, err := r.Person(rec.Committer)
		if err != nil {
			return 0, err
		}
		coWhen, err := time.ParseInLocation(timestampLayout, rec.CoWhen, time.Local)
		if err != nil {
			return 0, fmt.Errorf("commit %s has no usable timestamp: %w", rec.CommitID, err)
		}
		row := domain.CommitID{
			Hash:        rec.CommitID,
			AuthorID:    authorID,
			CommitterID: committerID,
			CoWhen:      coWhen,
		}
		if err := r.tx.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.ID, nil
	})
}
