package repo

import (
	"strings"

	"github.com/nhnb/postsai/internal/domain"
)

// RepositoryURLs is the set of URL columns stored on a repository dimension
// row. The template fields use the [repository], [commit], [revision] and
// [file] placeholders expanded by the UI.
type RepositoryURLs struct {
	BaseURL       string
	RepositoryURL string
	FileURL       string
	CommitURL     string
	TrackerURL    string
	IconURL       string
}

// URLOverride lets deployment configuration replace any subset of the
// guessed repository URLs. It receives the change record that first
// introduced the repository plus the heuristic guess, and returns the values
// to store. A nil override keeps the guess as-is.
type URLOverride func(rec *domain.ChangeRecord, guess RepositoryURLs) RepositoryURLs

// GuessRepositoryURLs classifies the hosting style of a repository from its
// display URL and revision shape and derives the URL templates for it. It is
// a pure heuristic with no validation; wrong guesses are correctable only
// through a configured URLOverride.
//
// Priority order: GitHub/GitLab, SourceForge (Subversion vs. CVS/Git by
// revision shape), legacy CVS (dotted revisions), generic git web interface.
func GuessRepositoryURLs(rec *domain.ChangeRecord) RepositoryURLs {
	base := rec.URL
	baseURL := base
	if !strings.Contains(baseURL, rec.Repository) {
		baseURL = baseURL + "/" + rec.Repository
	}

	urls := RepositoryURLs{
		BaseURL:       baseURL,
		RepositoryURL: rec.RepositoryURL,
	}

	switch {
	case strings.Contains(baseURL, "https://github.com/") || strings.Contains(baseURL, "gitlab"):
		urls.CommitURL = baseURL + "/commit/[commit]"
		urls.FileURL = baseURL + "/blob/[commit]/[file]"
		urls.TrackerURL = baseURL + "/issues/$1"

	case strings.Contains(baseURL, "://sourceforge.net"):
		if !strings.Contains(rec.Revision, ".") && len(rec.Revision) < 30 {
			// Subversion
			urls.CommitURL = "https://sourceforge.net/[repository]/[commit]/"
			urls.FileURL = "https://sourceforge.net/[repository]/[commit]/tree/[file]"
		} else {
			// CVS, Git
			urls.CommitURL = "https://sourceforge.net/[repository]/ci/[commit]/"
			urls.FileURL = "https://sourceforge.net/[repository]/ci/[revision]/tree/[file]"
		}
		urls.IconURL = "https://a.fsdn.com/allura/[repository]/../icon"

	case strings.Contains(rec.Revision, "."):
		// CVS
		urls.CommitURL = "commit.html?repository=[repository]&commit=[commit]"
		urls.FileURL = base + "/[repository]/[file]?revision=[revision]&view=markup"

	default:
		// git instaweb
		urls.CommitURL = base + "/?p=[repository];a=commitdiff;h=[commit]"
		urls.FileURL = base + "/?p=[repository];a=blob;f=[file];hb=[commit]"
	}

	return urls
}
