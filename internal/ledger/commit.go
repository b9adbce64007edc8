package ledger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// VarType selects the external type of a variable defined through a Sink.
type VarType int

const (
	IntVar VarType = iota
	DoubleVar
	CharVar
)

// Sink receives the dimension/variable layout a ledger emits at commit
// time. Implementations buffer definitions and data until the whole
// layout is assembled; a ledger interleaves definitions and writes freely.
type Sink interface {
	DefineDimension(name string, size int) error
	DefineVariable(name string, typ VarType, dims ...string) error
	PutVariableAttribute(varName, attrName string, value any) error
	PutInts(name string, vals []int64) error
	PutDoubles(name string, vals []float64) error
	PutStringRows(name string, rows []string) error
}

// naming is the backing format's dimension/variable naming convention for
// one entity-set kind. Per-set names embed the 1-based internal index.
type naming struct {
	countDim string // e.g. "num_node_sets"
	sizeDim  string // per-set member count, e.g. "num_nod_ns%d"
	dfDim    string // per-set factor count, e.g. "num_df_ss%d"; empty
	//                means factors share the member count dimension
	dfVar     string // e.g. "dist_fact_ns%d"
	statusVar string // e.g. "ns_status"
	idVar     string // e.g. "ns_prop1"
	nameVar   string // e.g. "ns_names"
	nameDim   string // fixed-width name dimension, e.g. "len_name"
}

// commit emits the complete layout for this ledger kind: the count
// dimension, per-set size (and factor) dimensions, the status/id/name
// tables, then every set's member and factor arrays. writeMembers defines
// and fills the member variables of the set at the given position, whose
// member-count dimension is sizeDim.
//
// Materialized sets serialize from memory. Untouched sets read through to
// the backing store so their contents round-trip unchanged. A kind with
// zero sets emits nothing.
func (l *Ledger[M]) commit(sink Sink, n naming, writeMembers func(sink Sink, pos int, sizeDim string, s *Set[M]) error) error {
	if len(l.sets) == 0 {
		return nil
	}

	if err := sink.DefineDimension(n.countDim, len(l.sets)); err != nil {
		return fmt.Errorf("committing %ss: %w", l.kind, err)
	}
	for i, s := range l.sets {
		if err := sink.DefineDimension(fmt.Sprintf(n.sizeDim, i+1), s.size); err != nil {
			return fmt.Errorf("committing %s %d: %w", l.kind, s.id, err)
		}
		if s.hasDF && n.dfDim != "" {
			if err := sink.DefineDimension(fmt.Sprintf(n.dfDim, i+1), s.dfCount); err != nil {
				return fmt.Errorf("committing %s %d: %w", l.kind, s.id, err)
			}
		}
	}

	if err := l.commitTables(sink, n); err != nil {
		return err
	}

	for i, s := range l.sets {
		sizeDim := fmt.Sprintf(n.sizeDim, i+1)
		if err := writeMembers(sink, i, sizeDim, s); err != nil {
			return fmt.Errorf("committing %s %d members: %w", l.kind, s.id, err)
		}
		if err := l.commitDistFactors(sink, n, i, s); err != nil {
			return err
		}
	}

	l.log.WithFields(logrus.Fields{
		"kind": l.kind, "sets": len(l.sets),
	}).Debug("committed entity sets")
	return nil
}

// commitTables writes the shared per-kind tables: status flags, the
// external id table (carrying the conventional ID name attribute) and the
// fixed-width name table.
func (l *Ledger[M]) commitTables(sink Sink, n naming) error {
	statuses := make([]int64, len(l.sets))
	ids := make([]int64, len(l.sets))
	names := make([]string, len(l.sets))
	for i, s := range l.sets {
		statuses[i] = int64(s.status)
		ids[i] = s.id
		names[i] = s.name
	}

	if err := sink.DefineVariable(n.statusVar, IntVar, n.countDim); err != nil {
		return fmt.Errorf("committing %s statuses: %w", l.kind, err)
	}
	if err := sink.PutInts(n.statusVar, statuses); err != nil {
		return fmt.Errorf("committing %s statuses: %w", l.kind, err)
	}

	if err := sink.DefineVariable(n.idVar, IntVar, n.countDim); err != nil {
		return fmt.Errorf("committing %s ids: %w", l.kind, err)
	}
	if err := sink.PutVariableAttribute(n.idVar, "name", "ID"); err != nil {
		return fmt.Errorf("committing %s ids: %w", l.kind, err)
	}
	if err := sink.PutInts(n.idVar, ids); err != nil {
		return fmt.Errorf("committing %s ids: %w", l.kind, err)
	}

	if err := sink.DefineVariable(n.nameVar, CharVar, n.countDim, n.nameDim); err != nil {
		return fmt.Errorf("committing %s names: %w", l.kind, err)
	}
	if err := sink.PutStringRows(n.nameVar, names); err != nil {
		return fmt.Errorf("committing %s names: %w", l.kind, err)
	}
	return nil
}

// commitDistFactors writes one set's distribution factors, if present,
// from memory or read through from the backing store.
func (l *Ledger[M]) commitDistFactors(sink Sink, n naming, pos int, s *Set[M]) error {
	if !s.hasDF {
		return nil
	}
	dim := fmt.Sprintf(n.sizeDim, pos+1)
	if n.dfDim != "" {
		dim = fmt.Sprintf(n.dfDim, pos+1)
	}
	varName := fmt.Sprintf(n.dfVar, pos+1)
	if err := sink.DefineVariable(varName, DoubleVar, dim); err != nil {
		return fmt.Errorf("committing %s %d factors: %w", l.kind, s.id, err)
	}
	vals := s.distFact
	if !s.materialized {
		read, err := l.source.ReadDistFactors(s.id)
		if err != nil {
			return fmt.Errorf("committing %s %d factors: %w", l.kind, s.id, err)
		}
		vals = read
	}
	if err := sink.PutDoubles(varName, vals); err != nil {
		return fmt.Errorf("committing %s %d factors: %w", l.kind, s.id, err)
	}
	return nil
}
