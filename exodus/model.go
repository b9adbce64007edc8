package exodus

import (
	"fmt"
)

// ElemBlockParams describes one element block.
type ElemBlockParams struct {
	ID           int64
	Name         string
	ElemType     string
	NumElems     int
	NodesPerElem int
	NumAttrs     int
}

// Coords returns the nodal coordinates, one slice per spatial dimension.
// Dimensions beyond the mesh's dimensionality are nil. Databases store
// coordinates either as one packed array or as per-axis arrays; both
// layouts are handled.
func (f *File) Coords() (x, y, z []float64, err error) {
	numNodes := f.NumNodes()
	numDim := f.NumDimensions()
	if numNodes == 0 || numDim == 0 {
		return nil, nil, nil, nil
	}

	var axes [][]float64
	if f.data.HasVar(varCoord) {
		packed, err := f.data.ReadDoubles(varCoord)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading coordinates: %w", err)
		}
		if len(packed) != numDim*numNodes {
			return nil, nil, nil, fmt.Errorf("reading coordinates: %d values for %d nodes in %d dimensions",
				len(packed), numNodes, numDim)
		}
		for d := 0; d < numDim; d++ {
			axes = append(axes, packed[d*numNodes:(d+1)*numNodes])
		}
	} else {
		for d, name := range []string{varCoordX, varCoordY, varCoordZ} {
			if d >= numDim {
				break
			}
			axis, err := f.data.ReadDoubles(name)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("reading coordinates: %w", err)
			}
			axes = append(axes, axis)
		}
	}

	x = axes[0]
	if len(axes) > 1 {
		y = axes[1]
	}
	if len(axes) > 2 {
		z = axes[2]
	}
	return x, y, z, nil
}

// CoordNames returns the coordinate axis names.
func (f *File) CoordNames() ([]string, error) {
	if !f.data.HasVar(varCoordNames) {
		return nil, nil
	}
	return f.data.ReadStringRows(varCoordNames)
}

// TimeValues returns the time value of every stored step, in step order.
func (f *File) TimeValues() ([]float64, error) {
	if f.data.NumRecs == 0 || !f.data.HasVar(varTimeWhole) {
		return nil, nil
	}
	return f.data.ReadDoubles(varTimeWhole)
}

// QARecords returns the quality assurance records, four strings per
// record: code name, code version, date and time.
func (f *File) QARecords() ([][4]string, error) {
	if !f.data.HasVar(varQARecords) {
		return nil, nil
	}
	rows, err := f.data.ReadStringRows(varQARecords)
	if err != nil {
		return nil, err
	}
	records := make([][4]string, 0, len(rows)/4)
	for i := 0; i+4 <= len(rows); i += 4 {
		records = append(records, [4]string{rows[i], rows[i+1], rows[i+2], rows[i+3]})
	}
	return records, nil
}

// InfoRecords returns the free-form informational text records.
func (f *File) InfoRecords() ([]string, error) {
	if !f.data.HasVar(varInfoRecords) {
		return nil, nil
	}
	return f.data.ReadStringRows(varInfoRecords)
}

// NodeIDMap returns the node numbering map, or the identity map when the
// database stores none.
func (f *File) NodeIDMap() ([]int64, error) {
	return f.idMap(varNodeIDMap, f.NumNodes())
}

// ElemIDMap returns the element numbering map, or the identity map when
// the database stores none.
func (f *File) ElemIDMap() ([]int64, error) {
	return f.idMap(varElemIDMap, f.NumElems())
}

func (f *File) idMap(name string, count int) ([]int64, error) {
	if f.data.HasVar(name) {
		return f.data.ReadInts(name)
	}
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

// ElemBlockIDs returns the element block ids in file order.
func (f *File) ElemBlockIDs() ([]int64, error) {
	count := f.NumElemBlocks()
	if count == 0 {
		return nil, nil
	}
	if f.data.HasVar(varEBIDs) {
		return f.data.ReadInts(varEBIDs)
	}
	ids := make([]int64, count)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

// elemBlockIndex resolves an element block id to its 1-based file index.
func (f *File) elemBlockIndex(id int64) (int, error) {
	ids, err := f.ElemBlockIDs()
	if err != nil {
		return 0, err
	}
	for i, candidate := range ids {
		if candidate == id {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("element block %d: %w", id, ErrNotFound)
}

// ElemBlockParams returns the metadata of an element block.
func (f *File) ElemBlockParams(id int64) (ElemBlockParams, error) {
	idx, err := f.elemBlockIndex(id)
	if err != nil {
		return ElemBlockParams{}, err
	}
	p := ElemBlockParams{
		ID:           id,
		NumElems:     f.dimLen(fmt.Sprintf(dimElemInBlk, idx)),
		NodesPerElem: f.dimLen(fmt.Sprintf(dimNodPerEl, idx)),
		NumAttrs:     f.dimLen(fmt.Sprintf(dimAttInBlk, idx)),
	}
	if v, ok := f.data.Var(fmt.Sprintf(varConnect, idx)); ok {
		if a, ok := v.Attr(attElemType); ok {
			if s, isStr := a.Value.(string); isStr {
				p.ElemType = s
			}
		}
	}
	if f.data.HasVar(varEBNames) {
		names, err := f.data.ReadStringRows(varEBNames)
		if err == nil && idx-1 < len(names) {
			p.Name = names[idx-1]
		}
	}
	return p, nil
}

// ElemConnectivity returns the node connectivity of an element block,
// NodesPerElem entries per element in element order.
func (f *File) ElemConnectivity(id int64) ([]int64, error) {
	idx, err := f.elemBlockIndex(id)
	if err != nil {
		return nil, err
	}
	return f.data.ReadInts(fmt.Sprintf(varConnect, idx))
}

// GlobalVariableNames returns the names of the global result variables.
func (f *File) GlobalVariableNames() ([]string, error) {
	if !f.data.HasVar(varNameGloVar) {
		return nil, nil
	}
	return f.data.ReadStringRows(varNameGloVar)
}

// NodalVariableNames returns the names of the nodal result variables.
func (f *File) NodalVariableNames() ([]string, error) {
	if !f.data.HasVar(varNameNodVar) {
		return nil, nil
	}
	return f.data.ReadStringRows(varNameNodVar)
}

// GlobalVariableValues returns one global variable's value at every time
// step.
func (f *File) GlobalVariableValues(name string) ([]float64, error) {
	names, err := f.GlobalVariableNames()
	if err != nil {
		return nil, err
	}
	col := -1
	for i, candidate := range names {
		if candidate == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("global variable %q: %w", name, ErrNotFound)
	}
	all, err := f.data.ReadDoubles(varValsGloVar)
	if err != nil {
		return nil, fmt.Errorf("global variable %q: %w", name, err)
	}
	width := len(names)
	out := make([]float64, 0, f.data.NumRecs)
	for i := col; i < len(all); i += width {
		out = append(out, all[i])
	}
	return out, nil
}

// NodalVariableValues returns one nodal variable's per-node values at a
// 1-based time step. Both storage layouts are handled: the packed
// vals_nod_var array and the per-variable large-model arrays.
func (f *File) NodalVariableValues(name string, step int) ([]float64, error) {
	names, err := f.NodalVariableNames()
	if err != nil {
		return nil, err
	}
	col := -1
	for i, candidate := range names {
		if candidate == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("nodal variable %q: %w", name, ErrNotFound)
	}
	if step < 1 || step > f.data.NumRecs {
		return nil, fmt.Errorf("nodal variable %q: step %d of %d: %w", name, step, f.data.NumRecs, ErrNotFound)
	}
	numNodes := f.NumNodes()

	large := fmt.Sprintf(varValsNodVarLarge, col+1)
	if f.data.HasVar(large) {
		all, err := f.data.ReadDoubles(large)
		if err != nil {
			return nil, fmt.Errorf("nodal variable %q: %w", name, err)
		}
		return all[(step-1)*numNodes : step*numNodes], nil
	}

	all, err := f.data.ReadDoubles(varValsNodVarSmall)
	if err != nil {
		return nil, fmt.Errorf("nodal variable %q: %w", name, err)
	}
	recWidth := len(names) * numNodes
	base := (step-1)*recWidth + col*numNodes
	return all[base : base+numNodes], nil
}

// StepAtTime returns the 1-based step whose stored time matches t exactly,
// or ErrNotFound.
func (f *File) StepAtTime(t float64) (int, error) {
	times, err := f.TimeValues()
	if err != nil {
		return 0, err
	}
	for i, stored := range times {
		if stored == t {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("time %g: %w", t, ErrNotFound)
}

// TimeAtStep returns the stored time of a 1-based step.
func (f *File) TimeAtStep(step int) (float64, error) {
	times, err := f.TimeValues()
	if err != nil {
		return 0, err
	}
	if step < 1 || step > len(times) {
		return 0, fmt.Errorf("step %d of %d: %w", step, len(times), ErrNotFound)
	}
	return times[step-1], nil
}
