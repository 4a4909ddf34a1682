package provenance

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	repo *git.Repository
	wt   *git.Worktree
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{repo: repo, wt: wt}
}

func (r *testRepo) commit(t *testing.T, path, content, msg string) plumbing.Hash {
	t.Helper()
	require.NoError(t, util.WriteFile(r.wt.Filesystem, path, []byte(content), 0o644))
	_, err := r.wt.Add(path)
	require.NoError(t, err)
	hash, err := r.wt.Commit(msg, &git.CommitOptions{Author: testSignature()})
	require.NoError(t, err)
	return hash
}

func (r *testRepo) tag(t *testing.T, name string, target plumbing.Hash) {
	t.Helper()
	_, err := r.repo.CreateTag(name, target, nil)
	require.NoError(t, err)
}

func (r *testRepo) annotatedTag(t *testing.T, name string, target plumbing.Hash) *plumbing.Reference {
	t.Helper()
	ref, err := r.repo.CreateTag(name, target, &git.CreateTagOptions{
		Tagger:  testSignature(),
		Message: "release " + name,
	})
	require.NoError(t, err)
	return ref
}

func (r *testRepo) setTrunk(t *testing.T, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "main"), hash)
	require.NoError(t, r.repo.Storer.SetReference(ref))
}

func (r *testRepo) oracle() *GitOracle {
	return NewGitOracle(r.repo, Options{})
}

func testSignature() *object.Signature {
	return &object.Signature{Name: "Release Bot", Email: "release@fyrsmithlabs.dev", When: time.Now()}
}

func TestResolveLightweightTag(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "initial")
	r.tag(t, "v0.1.0", c1)

	sha, err := r.oracle().Resolve(context.Background(), "v0.1.0")
	require.NoError(t, err)
	assert.Equal(t, c1.String(), sha)
}

func TestResolveAnnotatedTag(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.2.0\n", "initial")
	ref := r.annotatedTag(t, "v0.2.0-rc.1", c1)

	sha, err := r.oracle().Resolve(context.Background(), "v0.2.0-rc.1")
	require.NoError(t, err)
	assert.Equal(t, c1.String(), sha, "annotated tags peel to their commit")
	assert.NotEqual(t, ref.Hash().String(), sha, "tag object hash must not leak")
}

func TestResolveNestedAnnotatedTag(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.3.0\n", "initial")
	inner := r.annotatedTag(t, "v0.3.0-inner", c1)

	outer := &object.Tag{
		Name:       "v0.3.0",
		Tagger:     *testSignature(),
		Message:    "re-tag of rc",
		TargetType: plumbing.TagObject,
		Target:     inner.Hash(),
	}
	obj := r.repo.Storer.NewEncodedObject()
	require.NoError(t, outer.Encode(obj))
	outerHash, err := r.repo.Storer.SetEncodedObject(obj)
	require.NoError(t, err)
	require.NoError(t, r.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewTagReferenceName("v0.3.0"), outerHash)))

	sha, err := r.oracle().Resolve(context.Background(), "v0.3.0")
	require.NoError(t, err)
	assert.Equal(t, c1.String(), sha)
}

func TestResolveMissingTag(t *testing.T) {
	r := newTestRepo(t)
	r.commit(t, "VERSION", "0.1.0\n", "initial")

	_, err := r.oracle().Resolve(context.Background(), "v9.9.9")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTagNotFound)
	assert.Contains(t, err.Error(), "v9.9.9")
}

func TestResolveTagAtNonCommit(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "initial")
	commit, err := r.repo.CommitObject(c1)
	require.NoError(t, err)
	file, err := commit.File("VERSION")
	require.NoError(t, err)
	r.tag(t, "v0.0.0", file.Blob.Hash)

	_, err = r.oracle().Resolve(context.Background(), "v0.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestResolveCancelledContext(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "initial")
	r.tag(t, "v0.1.0", c1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.oracle().Resolve(ctx, "v0.1.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsAncestor(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "first")
	c2 := r.commit(t, "VERSION", "0.2.0\n", "second")
	r.setTrunk(t, c2)
	o := r.oracle()

	ok, err := o.IsAncestor(context.Background(), c1.String(), "origin/main")
	require.NoError(t, err)
	assert.True(t, ok, "older commit is an ancestor of trunk")

	ok, err = o.IsAncestor(context.Background(), c2.String(), "origin/main")
	require.NoError(t, err)
	assert.True(t, ok, "the trunk tip counts as its own ancestor")
}

func TestIsAncestorOfStaleTrunk(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "first")
	c2 := r.commit(t, "VERSION", "0.2.0\n", "second")
	r.setTrunk(t, c1)

	ok, err := r.oracle().IsAncestor(context.Background(), c2.String(), "origin/main")
	require.NoError(t, err)
	assert.False(t, ok, "commit ahead of trunk is not an ancestor")
}

func TestIsAncestorMissingRef(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "first")

	_, err := r.oracle().IsAncestor(context.Background(), c1.String(), "origin/main")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsAncestorUnknownCommit(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "first")
	r.setTrunk(t, c1)

	_, err := r.oracle().IsAncestor(context.Background(),
		"0000000000000000000000000000000000000001", "origin/main")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestListTags(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.2.0\n", "initial")
	r.tag(t, "v0.2.0-rc.2", c1)
	r.tag(t, "v0.2.0-alpha.1", c1)
	r.annotatedTag(t, "v0.2.0-rc.1", c1)
	r.tag(t, "v0.3.0-rc.1", c1)
	r.tag(t, "nightly-2026-01-01", c1)
	o := r.oracle()

	got, err := o.ListTags(context.Background(), "v0.2.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.2.0-alpha.1", "v0.2.0-rc.1", "v0.2.0-rc.2"}, got)

	all, err := o.ListTags(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListTagsNoMatches(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.2.0\n", "initial")
	r.tag(t, "v0.2.0", c1)

	got, err := r.oracle().ListTags(context.Background(), "v9.")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFileAtRef(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "Cargo.toml", "[package]\nversion = \"0.1.0\"\n", "first")
	c2 := r.commit(t, "Cargo.toml", "[package]\nversion = \"0.2.0\"\n", "bump")
	r.tag(t, "v0.1.0", c1)
	o := r.oracle()

	old, err := o.ReadFileAtRef(context.Background(), "v0.1.0", "Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(old), `version = "0.1.0"`)

	cur, err := o.ReadFileAtRef(context.Background(), c2.String(), "Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(cur), `version = "0.2.0"`)
}

func TestReadFileAtRefMissingFile(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit(t, "VERSION", "0.1.0\n", "first")

	_, err := r.oracle().ReadFileAtRef(context.Background(), c1.String(), "Cargo.toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestReadFileAtRefMissingRef(t *testing.T) {
	r := newTestRepo(t)
	r.commit(t, "VERSION", "0.1.0\n", "first")

	_, err := r.oracle().ReadFileAtRef(context.Background(), "origin/main", "VERSION")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRefreshOffline(t *testing.T) {
	r := newTestRepo(t)
	o := NewGitOracle(r.repo, Options{Offline: true})
	assert.NoError(t, o.Refresh(context.Background()))
}

func TestRefreshWithoutRemote(t *testing.T) {
	r := newTestRepo(t)
	err := r.oracle().Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSplitTrunkRef(t *testing.T) {
	tests := []struct {
		ref        string
		wantRemote string
		wantBranch string
	}{
		{"origin/main", "origin", "main"},
		{"upstream/release", "upstream", "release"},
		{"origin/feature/v3", "origin", "feature/v3"},
		{"main", "origin", "main"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			remote, branch := splitTrunkRef(tt.ref)
			assert.Equal(t, tt.wantRemote, remote)
			assert.Equal(t, tt.wantBranch, branch)
		})
	}
}

func TestDefaultTrunkRef(t *testing.T) {
	r := newTestRepo(t)
	o := NewGitOracle(r.repo, Options{})
	assert.Equal(t, DefaultTrunkRef, o.opts.TrunkRef)
}
