package ledger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SideMembers is the member payload of a side set: parallel element and
// local-side arrays, kept as a pair of arrays for compatibility with the
// backing format's variable layout.
type SideMembers struct {
	Elems []int64
	Sides []int64
}

// NewSideMembers pairs element and side arrays, rejecting unequal lengths.
func NewSideMembers(elems, sides []int64) (SideMembers, error) {
	if len(elems) != len(sides) {
		return SideMembers{}, fmt.Errorf("%d elements for %d sides: %w",
			len(elems), len(sides), ErrLengthMismatch)
	}
	return SideMembers{Elems: elems, Sides: sides}, nil
}

// Len returns the side count.
func (m SideMembers) Len() int { return len(m.Elems) }

// Concat returns a new collection with other's pairs appended, both
// arrays in lockstep.
func (m SideMembers) Concat(other SideMembers) SideMembers {
	elems := make([]int64, 0, len(m.Elems)+len(other.Elems))
	elems = append(elems, m.Elems...)
	elems = append(elems, other.Elems...)
	sides := make([]int64, 0, len(m.Sides)+len(other.Sides))
	sides = append(sides, m.Sides...)
	sides = append(sides, other.Sides...)
	return SideMembers{Elems: elems, Sides: sides}
}

// SideLedger stages side set edits.
type SideLedger struct {
	*Ledger[SideMembers]
}

// NewSideLedger creates an empty side set ledger.
func NewSideLedger(source Source[SideMembers], maxNameLen int, log logrus.FieldLogger) *SideLedger {
	return &SideLedger{Ledger: New[SideMembers]("side set", source, maxNameLen, log)}
}

type sideKey struct {
	elem, side int64
}

// RemoveMembers removes (element, side) pairs from a set by value. Every
// requested pair must be present; all occurrences of a requested pair are
// removed, along with the distribution factors at the removed positions.
func (l *SideLedger) RemoveMembers(id int64, pairs SideMembers) error {
	pos, err := l.Lookup(id)
	if err != nil {
		return fmt.Errorf("removing sides from side set: %w", err)
	}
	if err := l.materialize(pos); err != nil {
		return err
	}
	s := l.At(pos)

	present := make(map[sideKey]struct{}, s.members.Len())
	for i := range s.members.Elems {
		present[sideKey{s.members.Elems[i], s.members.Sides[i]}] = struct{}{}
	}
	drop := make(map[sideKey]struct{}, pairs.Len())
	for i := range pairs.Elems {
		key := sideKey{pairs.Elems[i], pairs.Sides[i]}
		if _, ok := present[key]; !ok {
			return fmt.Errorf("removing sides from side set %d: element %d side %d: %w",
				id, key.elem, key.side, ErrNotFound)
		}
		drop[key] = struct{}{}
	}

	kept := SideMembers{}
	var keptDF []float64
	if s.hasDF {
		keptDF = make([]float64, 0, len(s.distFact))
	}
	for i := range s.members.Elems {
		key := sideKey{s.members.Elems[i], s.members.Sides[i]}
		if _, ok := drop[key]; ok {
			continue
		}
		kept.Elems = append(kept.Elems, s.members.Elems[i])
		kept.Sides = append(kept.Sides, s.members.Sides[i])
		if s.hasDF && i < len(s.distFact) {
			keptDF = append(keptDF, s.distFact[i])
		}
	}
	s.members = kept
	s.distFact = keptDF
	s.size = kept.Len()
	s.dfCount = len(keptDF)
	return nil
}

// Commit emits the side set layout: the num_side_sets dimension, the
// ss_status/ss_prop1/ss_names tables, and per set i the num_side_ss{i}
// dimension with elem_ss{i} and side_ss{i} members, plus num_df_ss{i}
// and dist_fact_ss{i} when the set carries factors.
func (l *SideLedger) Commit(sink Sink) error {
	n := naming{
		countDim:  "num_side_sets",
		sizeDim:   "num_side_ss%d",
		dfDim:     "num_df_ss%d",
		dfVar:     "dist_fact_ss%d",
		statusVar: "ss_status",
		idVar:     "ss_prop1",
		nameVar:   "ss_names",
		nameDim:   "len_name",
	}
	return l.commit(sink, n, func(sink Sink, pos int, sizeDim string, s *Set[SideMembers]) error {
		elemVar := fmt.Sprintf("elem_ss%d", pos+1)
		sideVar := fmt.Sprintf("side_ss%d", pos+1)
		if err := sink.DefineVariable(elemVar, IntVar, sizeDim); err != nil {
			return err
		}
		if err := sink.DefineVariable(sideVar, IntVar, sizeDim); err != nil {
			return err
		}
		members := s.members
		if !s.materialized {
			read, err := l.source.ReadMembers(s.id)
			if err != nil {
				return err
			}
			members = read
		}
		if err := sink.PutInts(elemVar, members.Elems); err != nil {
			return err
		}
		return sink.PutInts(sideVar, members.Sides)
	})
}
