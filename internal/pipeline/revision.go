package pipeline

import (
	"log/slog"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/clickit/internal/logfields"
)

// SourceRevision returns the HEAD commit hash of the git repository that
// contains dir, or "" when dir is not inside a repository.
func SourceRevision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("Source tree is not a git repository", logfields.Path(dir), logfields.Error(err))
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		// Fresh repository without commits.
		return ""
	}
	return head.Hash().String()
}
