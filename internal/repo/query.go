package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nhnb/postsai/internal/domain"
)

// Input validation errors surfaced to the caller as bad requests. They never
// reach the store; query-side errors mutate nothing.
var (
	ErrBadMatchType = errors.New("unsupported match type")
	ErrBadLimit     = errors.New("limit must be an integer")
	ErrBadDate      = errors.New("unsupported date mode")
	ErrBadHours     = errors.New("hours must be an integer")
	ErrBadDateBound = errors.New("unparsable mindate/maxdate value")
)

// Filters holds the caller-supplied history filters. Empty values mean
// "no restriction". Each column filter has a companion match-type token:
// "match" (equality, the default), "regexp"/"search" (regex match) or
// "notregexp" (negated regex match).
type Filters struct {
	Branch, BranchType           string
	Dir, DirType                 string
	Description, DescriptionType string
	File, FileType               string
	Who, WhoType                 string
	CVSRoot, CVSRootType         string
	Repository, RepositoryType   string
	Commit, CommitType           string

	// Date selects the time window: none, day (default), week, month,
	// hours (N from Hours), or explicit (MinDate/MaxDate, both optional).
	Date    string
	Hours   string
	MinDate string
	MaxDate string

	// Limit caps the number of returned rows when non-empty.
	Limit string
}

// Value returns the filter value stored under its request-parameter name.
// Unknown names yield the empty string.
func (f Filters) Value(name string) string {
	switch name {
	case "branch":
		return f.Branch
	case "dir":
		return f.Dir
	case "description":
		return f.Description
	case "file":
		return f.File
	case "who":
		return f.Who
	case "cvsroot":
		return f.CVSRoot
	case "repository":
		return f.Repository
	case "commit":
		return f.Commit
	}
	return ""
}

// QueryOptions carries the environment the builder needs but the caller does
// not choose per request.
type QueryOptions struct {
	// Dialect selects regex operators and full-text support.
	Dialect Dialect
	// ReadPattern is the authorization regex restricting readable repository
	// names. Empty (or the match-everything ".*") means no restriction.
	ReadPattern string
	// FullText enables relevance matching for description searches on stores
	// with a full-text index (MySQL unless configured as legacy).
	FullText bool
	// Now anchors the relative date windows; the zero value means time.Now().
	Now time.Time
}

const checkinSelect = `SELECT repositories.repository AS repository, checkins.ci_when AS ci_when, people.who AS who,
 dirs.dir AS dir, files.file AS file, checkins.revision AS revision, branches.branch AS branch,
 checkins.addedlines AS addedlines, checkins.removedlines AS removedlines,
 descs.description AS description, commitids.hash AS hash
 FROM checkins
 JOIN branches ON checkins.branchid = branches.id
 JOIN descs ON checkins.descid = descs.id
 JOIN dirs ON checkins.dirid = dirs.id
 JOIN files ON checkins.fileid = files.id
 JOIN people ON checkins.whoid = people.id
 JOIN repositories ON checkins.repositoryid = repositories.id
 LEFT JOIN commitids ON checkins.commitid = commitids.id
 WHERE 1 = 1`

// columnFilter binds one request parameter to the SQL column it filters.
type columnFilter struct {
	name   string // logical parameter name ("branch", "cvsroot", ...)
	column string // qualified SQL column
	value  string
	match  string
}

// BuildQuery constructs the parameterized history query. It is pure: all
// I/O-relevant choices come in through f and opts, and the result is a SQL
// string plus its parameter list.
//
// Result ordering is descending by checkin time with deterministic
// tie-breaking on branch key, description key and checkin id.
func BuildQuery(f Filters, opts QueryOptions) (string, []any, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString(checkinSelect)

	if restricted(opts.ReadPattern) {
		fmt.Fprintf(&sb, " AND repositories.repository %s ?", opts.Dialect.RegexpOp())
		args = append(args, opts.ReadPattern)
	}

	// Branch filtering must agree with the normalizer's encoding of the
	// default branch as the empty string.
	branch := f.Branch
	if branch == "HEAD" {
		branch = ""
	}

	filters := []columnFilter{
		{"branch", "branches.branch", branch, f.BranchType},
		{"dir", "dirs.dir", f.Dir, f.DirType},
		{"description", "descs.description", f.Description, f.DescriptionType},
		{"file", "files.file", f.File, f.FileType},
		{"who", "people.who", f.Who, f.WhoType},
		{"cvsroot", "repositories.repository", f.CVSRoot, f.CVSRootType},
		{"repository", "repositories.repository", f.Repository, f.RepositoryType},
		{"commit", "commitids.hash", f.Commit, f.CommitType},
	}
	for _, cf := range filters {
		if cf.value == "" {
			continue
		}
		match := cf.match
		if match == "" {
			match = "match"
		}
		if cf.name == "description" && match == "search" && opts.FullText {
			sb.WriteString(" AND MATCH (descs.description) AGAINST (?)")
			args = append(args, cf.value)
			continue
		}
		op, err := matchOperator(match, opts.Dialect)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", cf.name, err)
		}
		fmt.Fprintf(&sb, " AND %s %s ?", cf.column, op)
		args = append(args, cf.value)
	}

	dateArgs, dateSQL, err := dateWindow(f, opts.Now)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(dateSQL)
	args = append(args, dateArgs...)

	sb.WriteString(" ORDER BY checkins.ci_when DESC, checkins.branchid DESC, checkins.descid DESC, checkins.id DESC")

	if f.Limit != "" {
		limit, err := strconv.Atoi(f.Limit)
		if err != nil {
			return "", nil, ErrBadLimit
		}
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	return sb.String(), args, nil
}

// restricted reports whether a read pattern actually restricts anything.
func restricted(pattern string) bool {
	return pattern != "" && pattern != ".*"
}

// matchOperator translates a match-type token into the dialect's SQL
// operator.
func matchOperator(match string, dialect Dialect) (string, error) {
	switch match {
	case "match":
		return "=", nil
	case "regexp", "search":
		return dialect.RegexpOp(), nil
	case "notregexp":
		return dialect.NotRegexpOp(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadMatchType, match)
}

// dateWindow renders the time-window predicate for the selected date mode.
func dateWindow(f Filters, now time.Time) ([]any, string, error) {
	if now.IsZero() {
		now = time.Now()
	}

	mode := f.Date
	if mode == "" {
		mode = "day"
	}
	switch mode {
	case "none":
		return nil, " AND 1 = 0", nil
	case "day":
		return []any{now.AddDate(0, 0, -1)}, " AND checkins.ci_when >= ?", nil
	case "week":
		return []any{now.AddDate(0, 0, -7)}, " AND checkins.ci_when >= ?", nil
	case "month":
		return []any{now.AddDate(0, -1, 0)}, " AND checkins.ci_when >= ?", nil
	case "hours":
		hours, err := strconv.Atoi(f.Hours)
		if err != nil {
			return nil, "", ErrBadHours
		}
		return []any{now.Add(-time.Duration(hours) * time.Hour)}, " AND checkins.ci_when >= ?", nil
	case "explicit":
		var (
			sql  string
			args []any
		)
		if f.MinDate != "" {
			min, err := parseDateBound(f.MinDate)
			if err != nil {
				return nil, "", err
			}
			sql += " AND checkins.ci_when >= ?"
			args = append(args, min)
		}
		if f.MaxDate != "" {
			max, err := parseDateBound(f.MaxDate)
			if err != nil {
				return nil, "", err
			}
			sql += " AND checkins.ci_when <= ?"
			args = append(args, max)
		}
		return args, sql, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrBadDate, mode)
}

// dateBoundLayouts are the accepted explicit min/max timestamp shapes.
var dateBoundLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDateBound(value string) (time.Time, error) {
	for _, layout := range dateBoundLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateBound, value)
}

// RewriteForViewVC adapts a built history query to a ViewVC database, which
// names the fact table "commits" instead of "checkins".
func RewriteForViewVC(sql string) string {
	return strings.ReplaceAll(sql, "checkins", "commits")
}

// CheckinRow is one flat per-file result row of the history query, in the
// shape the coalescer consumes. Hash is a pointer because legacy rows may
// have no resolved commit identifier (LEFT JOIN).
type CheckinRow struct {
	Repository   string    `gorm:"column:repository"`
	CiWhen       time.Time `gorm:"column:ci_when"`
	Who          string    `gorm:"column:who"`
	Dir          string    `gorm:"column:dir"`
	File         string    `gorm:"column:file"`
	Revision     string    `gorm:"column:revision"`
	Branch       string    `gorm:"column:branch"`
	AddedLines   string    `gorm:"column:addedlines"`
	RemovedLines string    `gorm:"column:removedlines"`
	Description  string    `gorm:"column:description"`
	Hash         *string   `gorm:"column:hash"`
}

// QueryCheckins runs a built history query and scans the flat rows.
func QueryCheckins(ctx context.Context, db *gorm.DB, sql string, args []any) ([]CheckinRow, error) {
	var rows []CheckinRow
	err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error
	return rows, err
}

// RepositoryMap returns the URL-template records of all readable
// repositories keyed by repository name.
func RepositoryMap(ctx context.Context, db *gorm.DB, readPattern string, dialect Dialect) (map[string]domain.Repository, error) {
	q := db.WithContext(ctx).Model(&domain.Repository{})
	if restricted(readPattern) {
		q = q.Where(fmt.Sprintf("repository %s ?", dialect.RegexpOp()), readPattern)
	}
	var repos []domain.Repository
	if err := q.Find(&repos).Error; err != nil {
		return nil, err
	}
	result := make(map[string]domain.Repository, len(repos))
	for _, r := range repos {
		result[r.Repository] = r
	}
	return result, nil
}

// CommitFileRow is one changed file of a single commit, as read back for the
// commit-detail view.
type CommitFileRow struct {
	Repository    string    `gorm:"column:repository"`
	CiWhen        time.Time `gorm:"column:ci_when"`
	Who           string    `gorm:"column:who"`
	Dir           string    `gorm:"column:dir"`
	File          string    `gorm:"column:file"`
	Revision      string    `gorm:"column:revision"`
	Description   string    `gorm:"column:description"`
	Hash          string    `gorm:"column:hash"`
	CoWhen        time.Time `gorm:"column:co_when"`
	RepositoryURL string    `gorm:"column:repository_url"`
}

// CommitFiles reads every checkin row of one commit in one repository.
func CommitFiles(ctx context.Context, db *gorm.DB, repository, commit string) ([]CommitFileRow, error) {
	const sql = `SELECT repositories.repository AS repository, checkins.ci_when AS ci_when, people.who AS who,
 dirs.dir AS dir, files.file AS file, checkins.revision AS revision,
 descs.description AS description, commitids.hash AS hash, commitids.co_when AS co_when,
 repositories.repository_url AS repository_url
 FROM checkins
 JOIN descs ON checkins.descid = descs.id
 JOIN dirs ON checkins.dirid = dirs.id
 JOIN files ON checkins.fileid = files.id
 JOIN people ON checkins.whoid = people.id
 JOIN repositories ON checkins.repositoryid = repositories.id
 JOIN commitids ON checkins.commitid = commitids.id
 WHERE repositories.repository = ? AND commitids.hash = ?`

	var rows []CommitFileRow
	err := db.WithContext(ctx).Raw(sql, repository, commit).Scan(&rows).Error
	return rows, err
}
