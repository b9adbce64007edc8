package exodus_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-exodus/exodus"
)

// writeFixture creates a database with two node sets (one weighted) and
// one weighted side set, saved to a fresh temp path.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.exo")
	f, err := exodus.Create(path, exodus.WithTitle("fixture mesh"))
	require.NoError(t, err)
	require.NoError(t, f.CreateNodeSet(10, "inlet", []int64{1, 2, 3}, []float64{0.5, 1.0, 1.5}))
	require.NoError(t, f.CreateNodeSet(20, "outlet", []int64{3, 4, 5}, nil))
	require.NoError(t, f.CreateSideSet(5, "wall", []int64{7, 8}, []int64{1, 3}, []float64{1.0, 1.0}))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())
	return path
}

func TestCreateAndReopen(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "fixture mesh", f.Title())
	assert.InDelta(t, 7.22, f.Version(), 0.001)
	assert.InDelta(t, 7.22, f.APIVersion(), 0.001)
	assert.Equal(t, 8, f.WordSize())
	assert.False(t, f.Writable())
	assert.Equal(t, 0, f.NumTimeSteps())

	assert.Equal(t, []int64{10, 20}, f.NodeSetIDs())
	assert.Equal(t, []int64{5}, f.SideSetIDs())

	p, err := f.NodeSetParams(10)
	require.NoError(t, err)
	assert.Equal(t, "inlet", p.Name)
	assert.Equal(t, int32(1), p.Status)
	assert.Equal(t, 3, p.NumNodes)
	assert.Equal(t, 3, p.NumDistFactors)

	nodes, err := f.NodeSetNodes(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, nodes)

	factors, has, err := f.NodeSetDistFactors(10)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []float64{0.5, 1.0, 1.5}, factors)

	_, has, err = f.NodeSetDistFactors(20)
	require.NoError(t, err)
	assert.False(t, has)

	elems, sides, err := f.SideSetSides(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, elems)
	assert.Equal(t, []int64{1, 3}, sides)

	sp, err := f.SideSetParams(5)
	require.NoError(t, err)
	assert.Equal(t, "wall", sp.Name)
	assert.Equal(t, 2, sp.NumSides)
	assert.Equal(t, 2, sp.NumDistFactors)
}

func TestOpenRejectsNonExodus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.exo")
	require.NoError(t, os.WriteFile(path, []byte("not a mesh database at all"), 0o644))

	_, err := exodus.Open(path)
	assert.ErrorIs(t, err, exodus.ErrNotExodus)
}

func TestReadOnlyFileRejectsEdits(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ErrorIs(t, f.CreateNodeSet(30, "new", []int64{1}, nil), exodus.ErrReadOnly)
	assert.ErrorIs(t, f.RemoveNodeSet(10), exodus.ErrReadOnly)
	assert.ErrorIs(t, f.AddNodesToNodeSet(10, []int64{9}, []float64{1}), exodus.ErrReadOnly)
	assert.ErrorIs(t, f.MergeNodeSets(30, 10, 20, false), exodus.ErrReadOnly)
	assert.ErrorIs(t, f.Save(path), exodus.ErrReadOnly)
}

func TestClosedFileRejectsEdits(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.ErrorIs(t, f.Close(), exodus.ErrClosed)
	assert.ErrorIs(t, f.CreateNodeSet(30, "new", []int64{1}, nil), exodus.ErrClosed)
}

func TestAppendSessionRoundTrip(t *testing.T) {
	path := writeFixture(t)
	out := filepath.Join(t.TempDir(), "edited.exo")

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.AddNodesToNodeSet(10, []int64{7}, []float64{2.0}))
	require.NoError(t, f.Save(out))
	require.NoError(t, f.Close())

	g, err := exodus.Open(out)
	require.NoError(t, err)
	defer g.Close()

	nodes, err := g.NodeSetNodes(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 7}, nodes)
	factors, has, err := g.NodeSetDistFactors(10)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []float64{0.5, 1.0, 1.5, 2.0}, factors)

	// Untouched sets round-trip unchanged.
	nodes, err = g.NodeSetNodes(20)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, nodes)
	elems, sides, err := g.SideSetSides(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, elems)
	assert.Equal(t, []int64{1, 3}, sides)
	factors, has, err = g.SideSetDistFactors(5)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []float64{1.0, 1.0}, factors)

	assert.Equal(t, "fixture mesh", g.Title())
}

func TestAppendWeightPolicy(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	defer f.Close()

	// Weighted target, no factors supplied.
	assert.ErrorIs(t, f.AddNodesToNodeSet(10, []int64{9}, nil), exodus.ErrLengthMismatch)
	// Weightless target, factors supplied.
	assert.ErrorIs(t, f.AddNodesToNodeSet(20, []int64{9}, []float64{1}), exodus.ErrLengthMismatch)
	// Factor count disagrees with member count.
	assert.ErrorIs(t, f.AddNodesToNodeSet(10, []int64{9, 11}, []float64{1}), exodus.ErrLengthMismatch)

	// Failed appends leave the sets unchanged.
	nodes, err := f.NodeSetNodes(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, nodes)
	nodes, err = f.NodeSetNodes(20)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, nodes)
}

func TestMergeNodeSetsEndToEnd(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.MergeNodeSets(30, 10, 20, true))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, []int64{30}, g.NodeSetIDs())
	name, err := g.NodeSetName(30)
	require.NoError(t, err)
	assert.Equal(t, "NodeSet 30", name)

	nodes, err := g.NodeSetNodes(30)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, nodes)

	_, has, err := g.NodeSetDistFactors(30)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMergeRejectsCollidingID(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ErrorIs(t, f.MergeNodeSets(20, 10, 20, false), exodus.ErrDuplicateID)
	assert.ErrorIs(t, f.MergeNodeSets(99, 10, 42, false), exodus.ErrNotFound)

	// Merging a set with itself is rejected and nothing changes.
	assert.ErrorIs(t, f.MergeNodeSets(31, 10, 10, true), exodus.ErrDuplicateID)
	assert.Equal(t, []int64{10, 20}, f.NodeSetIDs())
}

func TestRemoveNodesFromNodeSet(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)

	// A missing node rejects the whole request.
	assert.ErrorIs(t, f.RemoveNodesFromNodeSet(10, []int64{2, 99}), exodus.ErrNotFound)

	require.NoError(t, f.RemoveNodesFromNodeSet(10, []int64{2}))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	nodes, err := g.NodeSetNodes(10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, nodes)
	factors, _, err := g.NodeSetDistFactors(10)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, factors)
}

func TestRemoveSetShiftsLaterSets(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.RemoveNodeSet(10))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, []int64{20}, g.NodeSetIDs())
	nodes, err := g.NodeSetNodes(20)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, nodes)
	_, err = g.NodeSetNodes(10)
	assert.ErrorIs(t, err, exodus.ErrNotFound)
}

func TestRemoveSidesFromSideSet(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)

	// Pairs match on both element and side.
	assert.ErrorIs(t, f.RemoveSidesFromSideSet(5, []int64{7}, []int64{2}), exodus.ErrNotFound)
	require.NoError(t, f.RemoveSidesFromSideSet(5, []int64{7}, []int64{1}))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	elems, sides, err := g.SideSetSides(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, elems)
	assert.Equal(t, []int64{3}, sides)
	factors, has, err := g.SideSetDistFactors(5)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, []float64{1.0}, factors)
}

func TestCreateRejectsDuplicateAndLongNames(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ErrorIs(t, f.CreateNodeSet(10, "again", []int64{1}, nil), exodus.ErrDuplicateID)
	long := make([]byte, f.MaxAllowedNameLength()+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.ErrorIs(t, f.CreateNodeSet(30, string(long), []int64{1}, nil), exodus.ErrNameTooLong)
	assert.ErrorIs(t, f.CreateSideSet(5, "dup", []int64{1}, []int64{1}, nil), exodus.ErrDuplicateID)
	assert.ErrorIs(t, f.CreateSideSet(6, "bad", []int64{1, 2}, []int64{1}, nil), exodus.ErrLengthMismatch)
}

func TestCreateKeepsDuplicateMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.exo")
	f, err := exodus.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.CreateNodeSet(1, "repeats", []int64{1, 2, 2, 3}, nil))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	nodes, err := g.NodeSetNodes(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2, 3}, nodes)
}

func TestSaveOverSource(t *testing.T) {
	path := writeFixture(t)

	f, err := exodus.OpenAppend(path)
	require.NoError(t, err)
	require.NoError(t, f.AddNodesToNodeSet(20, []int64{6}, nil))
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	nodes, err := g.NodeSetNodes(20)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5, 6}, nodes)
}

func TestCreateHonorsOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.exo")
	f, err := exodus.Create(path,
		exodus.WithTitle("options mesh"),
		exodus.WithWordSize(4),
		exodus.WithMaxNameLength(64),
		exodus.WithLargeModel(),
	)
	require.NoError(t, err)
	require.NoError(t, f.Save(path))
	require.NoError(t, f.Close())

	g, err := exodus.Open(path)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, "options mesh", g.Title())
	assert.Equal(t, 4, g.WordSize())
	assert.Equal(t, 64, g.MaxAllowedNameLength())
}
