package exodus

import (
	"fmt"

	"github.com/robert-malhotra/go-exodus/internal/cdf"
	"github.com/robert-malhotra/go-exodus/internal/ledger"
)

// NodeSetParams describes one node set without loading its arrays.
type NodeSetParams struct {
	ID             int64
	Name           string
	Status         int32
	NumNodes       int
	NumDistFactors int
}

// nodeSetSource reads node set arrays from the backing file, resolved by
// external id. The index map is frozen at open time, so references stay
// valid while staged edits reorder the ledger.
type nodeSetSource struct {
	data  *cdf.File
	index map[int64]int // external id -> original 1-based file index
}

func (s *nodeSetSource) ReadMembers(id int64) (ledger.NodeMembers, error) {
	idx, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("node set %d: %w", id, ErrNotFound)
	}
	nodes, err := s.data.ReadInts(fmt.Sprintf(varNodeNS, idx))
	if err != nil {
		return nil, fmt.Errorf("node set %d: %w", id, err)
	}
	return ledger.NodeMembers(nodes), nil
}

func (s *nodeSetSource) ReadDistFactors(id int64) ([]float64, error) {
	idx, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("node set %d: %w", id, ErrNotFound)
	}
	factors, err := s.data.ReadDoubles(fmt.Sprintf(varDistFactNS, idx))
	if err != nil {
		return nil, fmt.Errorf("node set %d factors: %w", id, err)
	}
	return factors, nil
}

// seedNodeSets builds the node set ledger from the file's metadata. Member
// arrays stay on disk until an edit touches their set.
func (f *File) seedNodeSets() error {
	count := f.dimLen(dimNumNodeSets)
	src := &nodeSetSource{data: f.data, index: make(map[int64]int, count)}
	f.nodeSets = ledger.NewNodeLedger(src, f.maxNameLen, f.log)
	if count == 0 {
		return nil
	}

	ids, status, names, err := f.readSetTables(count, varNSIDs, varNSStatus, varNSNames)
	if err != nil {
		return fmt.Errorf("reading node set tables: %w", err)
	}
	meta := make([]ledger.SetMeta, count)
	for i := 0; i < count; i++ {
		size := f.dimLen(fmt.Sprintf(dimNumNodNS, i+1))
		hasDF := f.data.HasVar(fmt.Sprintf(varDistFactNS, i+1))
		dfCount := 0
		if hasDF {
			// Node set factors share the member count dimension.
			dfCount = size
		}
		meta[i] = ledger.SetMeta{
			ID:            ids[i],
			Name:          names[i],
			Status:        int32(status[i]),
			Size:          size,
			DistFactCount: dfCount,
			HasDistFact:   hasDF,
		}
		src.index[ids[i]] = i + 1
	}
	return f.nodeSets.Seed(meta)
}

// readSetTables reads the id, status and name tables of one set kind,
// substituting sequential ids, live statuses and empty names when a table
// is absent.
func (f *File) readSetTables(count int, idVar, statusVar, nameVar string) ([]int64, []int64, []string, error) {
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if f.data.HasVar(idVar) {
		read, err := f.data.ReadInts(idVar)
		if err != nil {
			return nil, nil, nil, err
		}
		copy(ids, read)
	}

	status := make([]int64, count)
	for i := range status {
		status[i] = 1
	}
	if f.data.HasVar(statusVar) {
		read, err := f.data.ReadInts(statusVar)
		if err != nil {
			return nil, nil, nil, err
		}
		copy(status, read)
	}

	names := make([]string, count)
	if f.data.HasVar(nameVar) {
		read, err := f.data.ReadStringRows(nameVar)
		if err != nil {
			return nil, nil, nil, err
		}
		copy(names, read)
	}
	return ids, status, names, nil
}

// NumNodeSets returns the node set count, including staged edits.
func (f *File) NumNodeSets() int { return f.nodeSets.Count() }

// NodeSetIDs returns the external node set ids in internal index order.
func (f *File) NodeSetIDs() []int64 { return f.nodeSets.IDs() }

// NodeSetName returns the display name of a node set.
func (f *File) NodeSetName(id int64) (string, error) {
	return f.nodeSets.Name(id)
}

// NodeSetParams returns the metadata of a node set without loading its
// arrays.
func (f *File) NodeSetParams(id int64) (NodeSetParams, error) {
	pos, err := f.nodeSets.Lookup(id)
	if err != nil {
		return NodeSetParams{}, err
	}
	s := f.nodeSets.At(pos)
	return NodeSetParams{
		ID:             s.ID(),
		Name:           s.Name(),
		Status:         s.Status(),
		NumNodes:       s.Size(),
		NumDistFactors: s.DistFactCount(),
	}, nil
}

// NodeSetNodes returns the node list of a node set. The returned slice
// must not be modified.
func (f *File) NodeSetNodes(id int64) ([]int64, error) {
	members, err := f.nodeSets.Members(id)
	if err != nil {
		return nil, err
	}
	return []int64(members), nil
}

// NodeSetDistFactors returns a node set's distribution factors and
// whether the set carries any.
func (f *File) NodeSetDistFactors(id int64) ([]float64, bool, error) {
	return f.nodeSets.DistFactors(id)
}

// CreateNodeSet stages a new node set. distFact may be nil; when present
// it must have one factor per node. Nodes are stored verbatim, duplicates
// included.
func (f *File) CreateNodeSet(id int64, name string, nodes []int64, distFact []float64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.nodeSets.Create(id, name, ledger.NodeMembers(nodes), distFact)
}

// RemoveNodeSet stages removal of a node set. Later sets shift down one
// internal index.
func (f *File) RemoveNodeSet(id int64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.nodeSets.Remove(id)
}

// AddNodesToNodeSet stages appending nodes to an existing set. A set that
// carries distribution factors must be given one factor per new node; a
// set without factors must be given none.
func (f *File) AddNodesToNodeSet(id int64, nodes []int64, distFact []float64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.nodeSets.Append(id, ledger.NodeMembers(nodes), distFact)
}

// RemoveNodesFromNodeSet stages removal of nodes from a set by value.
// Every listed node must be present; all of its occurrences are removed
// together with the factors at those positions.
func (f *File) RemoveNodesFromNodeSet(id int64, nodes []int64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.nodeSets.RemoveMembers(id, nodes)
}

// MergeNodeSets stages a new set under newID holding the union of two
// existing sets, keeping first-occurrence order and collapsing duplicates.
// The originals are removed when deleteOriginals is set.
func (f *File) MergeNodeSets(newID, idA, idB int64, deleteOriginals bool) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.nodeSets.Merge(newID, idA, idB, deleteOriginals)
}

func (f *File) checkWritable() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return ErrReadOnly
	}
	return nil
}
