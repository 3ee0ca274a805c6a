// Package gitinfo extracts version control provenance from a project
// checkout for embedding into reports.
package gitinfo

import (
	git "github.com/go-git/go-git/v5"

	"github.com/user/sastbridge/pkg/sarif"
)

// Provenance returns the repository origin and HEAD revision of the
// project, or nil when the project is not a git checkout.
func Provenance(projectRoot string) *sarif.VersionControlDetails {
	repo, err := git.PlainOpenWithOptions(projectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil
	}

	details := &sarif.VersionControlDetails{RevisionID: head.Hash().String()}
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			details.RepositoryURI = urls[0]
		}
	}
	if details.RepositoryURI == "" {
		details.RepositoryURI = projectRoot
	}
	return details
}
