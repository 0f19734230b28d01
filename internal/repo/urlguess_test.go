package repo

import (
	"testing"

	"github.com/nhnb/postsai/internal/domain"
)

func TestGuessRepositoryURLs_GitHub(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "https://github.com/acme/widgets",
		Repository: "acme/widgets",
		Revision:   "d6cd1e2b",
	}
	urls := GuessRepositoryURLs(rec)

	if urls.BaseURL != "https://github.com/acme/widgets" {
		t.Fatalf("base url: %q", urls.BaseURL)
	}
	if urls.CommitURL != "https://github.com/acme/widgets/commit/[commit]" {
		t.Fatalf("commit url: %q", urls.CommitURL)
	}
	if urls.FileURL != "https://github.com/acme/widgets/blob/[commit]/[file]" {
		t.Fatalf("file url: %q", urls.FileURL)
	}
	if urls.TrackerURL != "https://github.com/acme/widgets/issues/$1" {
		t.Fatalf("tracker url: %q", urls.TrackerURL)
	}
}

func TestGuessRepositoryURLs_AppendsNameWhenMissing(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "https://gitlab.example.org",
		Repository: "group/tool",
		Revision:   "abc",
	}
	urls := GuessRepositoryURLs(rec)
	if urls.BaseURL != "https://gitlab.example.org/group/tool" {
		t.Fatalf("base url: %q", urls.BaseURL)
	}
}

func TestGuessRepositoryURLs_SourceForgeSubversion(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "https://sourceforge.net/p/arianne",
		Repository: "p/arianne",
		Revision:   "42",
	}
	urls := GuessRepositoryURLs(rec)
	if urls.CommitURL != "https://sourceforge.net/[repository]/[commit]/" {
		t.Fatalf("commit url: %q", urls.CommitURL)
	}
	if urls.IconURL == "" {
		t.Fatal("expected icon url for sourceforge")
	}
}

func TestGuessRepositoryURLs_SourceForgeGit(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "https://sourceforge.net/p/arianne",
		Repository: "p/arianne",
		Revision:   "d6cd1e2bd19e03a81132a23b2025920577f84e37",
	}
	urls := GuessRepositoryURLs(rec)
	if urls.CommitURL != "https://sourceforge.net/[repository]/ci/[commit]/" {
		t.Fatalf("commit url: %q", urls.CommitURL)
	}
}

func TestGuessRepositoryURLs_CVSDottedRevision(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "https://cvs.example.org/viewvc",
		Repository: "legacy",
		Revision:   "1.42",
	}
	urls := GuessRepositoryURLs(rec)
	if urls.CommitURL != "commit.html?repository=[repository]&commit=[commit]" {
		t.Fatalf("commit url: %q", urls.CommitURL)
	}
	if urls.FileURL != "https://cvs.example.org/viewvc/[repository]/[file]?revision=[revision]&view=markup" {
		t.Fatalf("file url: %q", urls.FileURL)
	}
}

func TestGuessRepositoryURLs_GitInstaweb(t *testing.T) {
	rec := &domain.ChangeRecord{
		URL:        "http://git.example.org:1234",
		Repository: "tool",
		Revision:   "d6cd1e2b",
	}
	urls := GuessRepositoryURLs(rec)
	if urls.CommitURL != "http://git.example.org:1234/?p=[repository];a=commitdiff;h=[commit]" {
		t.Fatalf("commit url: %q", urls.CommitURL)
	}
}
