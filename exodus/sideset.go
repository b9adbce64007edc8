package exodus

import (
	"fmt"

	"github.com/robert-malhotra/go-exodus/internal/cdf"
	"github.com/robert-malhotra/go-exodus/internal/ledger"
)

// SideSetParams describes one side set without loading its arrays.
type SideSetParams struct {
	ID             int64
	Name           string
	Status         int32
	NumSides       int
	NumDistFactors int
}

// sideSetSource reads side set arrays from the backing file, resolved by
// external id.
type sideSetSource struct {
	data  *cdf.File
	index map[int64]int // external id -> original 1-based file index
}

func (s *sideSetSource) ReadMembers(id int64) (ledger.SideMembers, error) {
	idx, ok := s.index[id]
	if !ok {
		return ledger.SideMembers{}, fmt.Errorf("side set %d: %w", id, ErrNotFound)
	}
	elems, err := s.data.ReadInts(fmt.Sprintf(varElemSS, idx))
	if err != nil {
		return ledger.SideMembers{}, fmt.Errorf("side set %d elements: %w", id, err)
	}
	sides, err := s.data.ReadInts(fmt.Sprintf(varSideSS, idx))
	if err != nil {
		return ledger.SideMembers{}, fmt.Errorf("side set %d sides: %w", id, err)
	}
	return ledger.NewSideMembers(elems, sides)
}

func (s *sideSetSource) ReadDistFactors(id int64) ([]float64, error) {
	idx, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("side set %d: %w", id, ErrNotFound)
	}
	factors, err := s.data.ReadDoubles(fmt.Sprintf(varDistFactSS, idx))
	if err != nil {
		return nil, fmt.Errorf("side set %d factors: %w", id, err)
	}
	return factors, nil
}

func (f *File) seedSideSets() error {
	count := f.dimLen(dimNumSideSets)
	src := &sideSetSource{data: f.data, index: make(map[int64]int, count)}
	f.sideSets = ledger.NewSideLedger(src, f.maxNameLen, f.log)
	if count == 0 {
		return nil
	}

	ids, status, names, err := f.readSetTables(count, varSSIDs, varSSStatus, varSSNames)
	if err != nil {
		return fmt.Errorf("reading side set tables: %w", err)
	}
	meta := make([]ledger.SetMeta, count)
	for i := 0; i < count; i++ {
		size := f.dimLen(fmt.Sprintf(dimNumSideSS, i+1))
		hasDF := f.data.HasVar(fmt.Sprintf(varDistFactSS, i+1))
		meta[i] = ledger.SetMeta{
			ID:            ids[i],
			Name:          names[i],
			Status:        int32(status[i]),
			Size:          size,
			DistFactCount: f.dimLen(fmt.Sprintf(dimNumDFSS, i+1)),
			HasDistFact:   hasDF,
		}
		src.index[ids[i]] = i + 1
	}
	return f.sideSets.Seed(meta)
}

// NumSideSets returns the side set count, including staged edits.
func (f *File) NumSideSets() int { return f.sideSets.Count() }

// SideSetIDs returns the external side set ids in internal index order.
func (f *File) SideSetIDs() []int64 { return f.sideSets.IDs() }

// SideSetName returns the display name of a side set.
func (f *File) SideSetName(id int64) (string, error) {
	return f.sideSets.Name(id)
}

// SideSetParams returns the metadata of a side set without loading its
// arrays.
func (f *File) SideSetParams(id int64) (SideSetParams, error) {
	pos, err := f.sideSets.Lookup(id)
	if err != nil {
		return SideSetParams{}, err
	}
	s := f.sideSets.At(pos)
	return SideSetParams{
		ID:             s.ID(),
		Name:           s.Name(),
		Status:         s.Status(),
		NumSides:       s.Size(),
		NumDistFactors: s.DistFactCount(),
	}, nil
}

// SideSetSides returns the element and local side lists of a side set,
// paired by position. The returned slices must not be modified.
func (f *File) SideSetSides(id int64) (elems, sides []int64, err error) {
	members, err := f.sideSets.Members(id)
	if err != nil {
		return nil, nil, err
	}
	return members.Elems, members.Sides, nil
}

// SideSetDistFactors returns a side set's distribution factors and
// whether the set carries any.
func (f *File) SideSetDistFactors(id int64) ([]float64, bool, error) {
	return f.sideSets.DistFactors(id)
}

// CreateSideSet stages a new side set from paired element and local side
// lists. distFact may be nil; when present, newly created sets take one
// factor per side.
func (f *File) CreateSideSet(id int64, name string, elems, sides []int64, distFact []float64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	members, err := ledger.NewSideMembers(elems, sides)
	if err != nil {
		return fmt.Errorf("creating side set %d: %w", id, err)
	}
	return f.sideSets.Create(id, name, members, distFact)
}

// RemoveSideSet stages removal of a side set.
func (f *File) RemoveSideSet(id int64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	return f.sideSets.Remove(id)
}

// AddSidesToSideSet stages appending element/side pairs to an existing
// set. A set that carries distribution factors must be given one factor
// per new side; a set without factors must be given none.
func (f *File) AddSidesToSideSet(id int64, elems, sides []int64, distFact []float64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	members, err := ledger.NewSideMembers(elems, sides)
	if err != nil {
		return fmt.Errorf("appending to side set %d: %w", id, err)
	}
	return f.sideSets.Append(id, members, distFact)
}

// RemoveSidesFromSideSet stages removal of element/side pairs from a set
// by value. Every listed pair must be present; all of its occurrences are
// removed together with the factors at those positions.
func (f *File) RemoveSidesFromSideSet(id int64, elems, sides []int64) error {
	if err := f.checkWritable(); err != nil {
		return err
	}
	members, err := ledger.NewSideMembers(elems, sides)
	if err != nil {
		return fmt.Errorf("removing from side set %d: %w", id, err)
	}
	return f.sideSets.RemoveMembers(id, members)
}
