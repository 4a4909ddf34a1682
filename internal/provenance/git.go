package provenance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/fyrsmithlabs/relguard/internal/config"
)

// DefaultTrunkRef is the reference release tags must descend from unless
// configured otherwise.
const DefaultTrunkRef = "origin/main"

// Options configures a GitOracle.
type Options struct {
	// TrunkRef names the trunk reference, e.g. "origin/main". Refresh
	// derives the remote and branch to fetch from it.
	TrunkRef string

	// Offline disables Refresh entirely. Useful in CI jobs that run
	// against an already-fetched checkout.
	Offline bool

	// AuthToken authenticates Refresh against HTTP remotes when set.
	// Never logged or serialized.
	AuthToken config.Secret

	// FetchTimeout bounds each Refresh call. Zero means no bound beyond
	// the caller's context.
	FetchTimeout time.Duration
}

// GitOracle answers provenance queries from a local git repository using
// go-git. It holds no state beyond the open repository and caches nothing
// between calls.
type GitOracle struct {
	repo *git.Repository
	opts Options
}

// Open opens the repository containing root (searching upward for the .git
// directory, like git itself) and wraps it in a GitOracle.
func Open(root string, opts Options) (*GitOracle, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}
	return NewGitOracle(repo, opts), nil
}

// NewGitOracle wraps an already-open repository. Tests use this with
// in-memory repositories.
func NewGitOracle(repo *git.Repository, opts Options) *GitOracle {
	if opts.TrunkRef == "" {
		opts.TrunkRef = DefaultTrunkRef
	}
	return &GitOracle{repo: repo, opts: opts}
}

// Refresh fetches the trunk branch and all tags from the remote named in
// the trunk ref. Already-up-to-date is success; Offline short-circuits.
func (o *GitOracle) Refresh(ctx context.Context) error {
	if o.opts.Offline {
		return nil
	}
	if o.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.FetchTimeout)
		defer cancel()
	}
	remote, branch := splitTrunkRef(o.opts.TrunkRef)
	fetchOpts := &git.FetchOptions{
		RemoteName: remote,
		RefSpecs: []gitcfg.RefSpec{
			gitcfg.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)),
		},
		Tags: git.AllTags,
	}
	if o.opts.AuthToken.IsSet() {
		fetchOpts.Auth = &githttp.BasicAuth{Username: "git", Password: o.opts.AuthToken.Value()}
	}
	if err := o.repo.FetchContext(ctx, fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: fetching %s/%s: %v", ErrUnavailable, remote, branch, err)
	}
	return nil
}

// Resolve looks up refs/tags/<tagName> and peels annotated tag objects
// (nested ones included) down to the commit they reference. Mirrors
// `git rev-parse <tag>^{commit}`.
func (o *GitOracle) Resolve(ctx context.Context, tagName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ref, err := o.repo.Reference(plumbing.NewTagReferenceName(tagName), true)
	if err != nil {
		return "", fmt.Errorf("%w: tag %q: %v", ErrTagNotFound, tagName, err)
	}

	hash := ref.Hash()
	for {
		tagObj, err := o.repo.TagObject(hash)
		if err != nil {
			break // not an annotated tag object
		}
		hash = tagObj.Target
		if tagObj.TargetType == plumbing.CommitObject {
			break
		}
	}

	if _, err := o.repo.CommitObject(hash); err != nil {
		return "", fmt.Errorf("%w: tag %q does not point to a commit", ErrTagNotFound, tagName)
	}
	return hash.String(), nil
}

// IsAncestor reports whether commitSHA lies on the history of ref,
// equivalent to `git merge-base --is-ancestor`.
func (o *GitOracle) IsAncestor(ctx context.Context, commitSHA, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	commit, err := o.repo.CommitObject(plumbing.NewHash(commitSHA))
	if err != nil {
		return false, fmt.Errorf("%w: commit %s: %v", ErrUnavailable, commitSHA, err)
	}
	tipHash, err := o.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return false, fmt.Errorf("%w: ref %q: %v", ErrUnavailable, ref, err)
	}
	tip, err := o.repo.CommitObject(*tipHash)
	if err != nil {
		return false, fmt.Errorf("%w: ref %q: %v", ErrUnavailable, ref, err)
	}
	ok, err := commit.IsAncestor(tip)
	if err != nil {
		return false, fmt.Errorf("%w: ancestry walk: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// ListTags returns tag short names starting with prefix, sorted.
func (o *GitOracle) ListTags(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	iter, err := o.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("%w: listing tags: %v", ErrUnavailable, err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if name := ref.Name().Short(); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing tags: %v", ErrUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

// ReadFileAtRef returns the content of path in the tree at ref.
func (o *GitOracle) ReadFileAtRef(ctx context.Context, ref, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	hash, err := o.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: ref %q: %v", ErrUnavailable, ref, err)
	}
	commit, err := o.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%w: ref %q: %v", ErrUnavailable, ref, err)
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, path, ref)
		}
		return nil, fmt.Errorf("%w: reading %s at %s: %v", ErrUnavailable, path, ref, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s at %s: %v", ErrUnavailable, path, ref, err)
	}
	return []byte(content), nil
}

// splitTrunkRef derives the remote and branch to fetch from a trunk ref
// like "origin/main". A bare branch name fetches from origin.
func splitTrunkRef(ref string) (remote, branch string) {
	if i := strings.Index(ref, "/"); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return "origin", ref
}
