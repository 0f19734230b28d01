package webhook

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhnb/postsai/internal/domain"
)

// Payload validation errors. A payload missing its repository or commit list
// cannot be imported at all, so normalization fails up front instead of
// producing a partial batch.
var (
	ErrNoRepository = errors.New("payload has no repository information")
	ErrNoCommits    = errors.New("payload has no commit list")
)

// nowFn is a seam so tests can pin the import timestamp.
var nowFn = time.Now

// changeCategories lists the payload file-list keys in the fixed order they
// are scanned. When a path shows up in more than one category the last one
// wins; well-formed payloads never do that, so the collision is logged.
var changeCategories = []struct {
	key  string
	kind string
}{
	{"added", domain.ChangeAdd},
	{"copied", domain.ChangeAdd},
	{"removed", domain.ChangeRemove},
	{"modified", domain.ChangeModify},
}

// Field extraction strategies, tried in priority order.
var (
	repoNameStrategies = []extractor{
		// GitHub, SourceForge
		func(d Document) (string, bool) { return d.Map("repository").String("full_name") },
		// GitLab
		func(d Document) (string, bool) { return d.Map("project").String("path_with_namespace") },
		// notify-webhook
		func(d Document) (string, bool) { return d.Map("repository").String("name") },
	}

	repoURLStrategies = []extractor{
		// GitHub
		func(d Document) (string, bool) { return d.Map("repository").String("clone_url") },
		// GitLab
		func(d Document) (string, bool) { return d.Map("repository").String("git_ssh_url") },
		// SourceForge, notify-cvs-webhook
		func(d Document) (string, bool) { return d.Map("repository").String("url") },
	}

	displayURLStrategies = []extractor{
		// GitLab
		func(d Document) (string, bool) { return d.Map("project").String("web_url") },
		func(d Document) (string, bool) { return d.Map("repository").String("home_url") },
		func(d Document) (string, bool) { return d.Map("repository").String("url") },
	}

	senderUserStrategies = []extractor{
		func(d Document) (string, bool) { return d.Map("sender").String("login") },
		func(d Document) (string, bool) { return d.String("user_email") },
		func(d Document) (string, bool) { return d.String("user_id") },
		func(d Document) (string, bool) { return d.String("user_name") },
	}
)

// Normalize converts a decoded webhook payload into an import header and one
// canonical ChangeRecord per (commit, surviving file) pair. All records of a
// non-replay import share a single "now" timestamp captured once at the
// start; replay imports stamp each record with its commit's own time.
func Normalize(payload Document) (domain.ImportHeader, []domain.ChangeRecord, error) {
	head := domain.ImportHeader{
		SenderAddr: extractSenderAddr(payload),
		SenderUser: extract(payload, senderUserStrategies),
	}

	if payload.Map("repository") == nil && payload.Map("project") == nil {
		return head, nil, ErrNoRepository
	}
	if !payload.Has("commits") {
		return head, nil, ErrNoCommits
	}

	repoName := RepoName(payload)
	repoURL := extract(payload, repoURLStrategies)
	displayURL := extract(payload, displayURLStrategies)
	branch := BranchName(payload)
	replay := payload.Bool("replay")

	timestamp := nowFn().Format(timestampLayout)

	var records []domain.ChangeRecord
	for _, commit := range payload.Docs("commits") {
		commitTime, _ := commit.String("timestamp")
		coWhen := NormalizeTimestamp(commitTime)
		if replay {
			timestamp = coWhen
		}

		commitID, _ := commit.String("id")
		message, _ := commit.String("message")
		author := extractIdentity(commit.Map("author"))
		committer := extractIdentity(extractCommitter(commit))

		for fullPath, changeType := range FilterOutFolders(ExtractFiles(commit)) {
			dir, file := SplitFullPath(fullPath)
			records = append(records, domain.ChangeRecord{
				Type:          changeType,
				CiWhen:        timestamp,
				CoWhen:        coWhen,
				Who:           author,
				URL:           displayURL,
				Repository:    repoName,
				RepositoryURL: repoURL,
				Dir:           dir,
				File:          file,
				Revision:      fileRevision(commit, fullPath, commitID),
				Branch:        branch,
				AddedLines:    "0",
				RemovedLines:  "0",
				Description:   message,
				CommitID:      commitID,
				Author:        author,
				Committer:     committer,
			})
		}
	}

	return head, records, nil
}

// RepoName extracts the repository name, trying the provider shapes in
// priority order and stripping leading/trailing slashes (SourceForge).
func RepoName(payload Document) string {
	return strings.Trim(extract(payload, repoNameStrategies), "/")
}

// BranchName derives the branch from a ref-like string by taking the part
// after the last path separator. The default branch names "master" and
// "HEAD" are normalized to the empty string.
func BranchName(payload Document) string {
	ref, ok := payload.String("ref")
	if !ok {
		return ""
	}
	branch := ref[strings.LastIndex(ref, "/")+1:]
	if branch == "master" || branch == "HEAD" {
		return ""
	}
	return branch
}

// ExtractFiles builds the per-file change map of one commit by scanning the
// four change categories in fixed order.
func ExtractFiles(commit Document) map[string]string {
	result := map[string]string{}
	for _, cat := range changeCategories {
		for _, fullPath := range commit.Strings(cat.key) {
			if prev, ok := result[fullPath]; ok && prev != cat.kind {
				log.Warn().
					Str("path", fullPath).
					Str("kept", cat.kind).
					Str("dropped", prev).
					Msg("path listed in multiple change categories")
			}
			result[fullPath] = cat.kind
		}
	}
	return result
}

// FilterOutFolders drops every path that is a strict parent-directory prefix
// of another path in the same map. Some providers (SourceForge) leak folder
// entries into their file lists.
func FilterOutFolders(files map[string]string) map[string]string {
	result := make(map[string]string, len(files))
	for candidate, value := range files {
		isParent := false
		for other := range files {
			if strings.HasPrefix(other, candidate+"/") {
				isParent = true
				break
			}
		}
		if !isParent {
			result[candidate] = value
		}
	}
	return result
}

// SplitFullPath splits a full path into directory and file name at the last
// path separator. Paths without a separator have an empty directory.
func SplitFullPath(fullPath string) (dir, file string) {
	sep := strings.LastIndex(fullPath, "/")
	if sep > -1 {
		dir = fullPath[:sep]
	}
	file = fullPath[sep+1:]
	return dir, file
}

// fileRevision resolves the revision of one file: a per-file revisions map
// takes precedence, otherwise the commit identifier is used with a leading
// Subversion-style "r" stripped.
func fileRevision(commit Document, fullPath, commitID string) string {
	if revisions := commit.Map("revisions"); revisions != nil {
		if rev, ok := revisions.String(fullPath); ok {
			return rev
		}
	}
	rev := commitID
	if strings.HasPrefix(rev, "r") {
		rev = rev[1:]
	}
	return rev
}

// extractCommitter prefers an explicit committer object and falls back to
// the author.
func extractCommitter(commit Document) Document {
	if c := commit.Map("committer"); c != nil {
		return c
	}
	return commit.Map("author")
}

// extractIdentity resolves an author/committer object to a lower-cased
// email, falling back to a lower-cased display name (SourceForge Subversion
// omits emails), and finally to the empty string.
func extractIdentity(identity Document) string {
	if identity == nil {
		return ""
	}
	if email, ok := identity.String("email"); ok && email != "" {
		return strings.ToLower(email)
	}
	if name, ok := identity.String("name"); ok {
		return strings.ToLower(name)
	}
	return ""
}

// extractSenderAddr reads the sender network address, when present.
func extractSenderAddr(payload Document) string {
	if addr, ok := payload.Map("sender").String("addr"); ok {
		return addr
	}
	return ""
}
