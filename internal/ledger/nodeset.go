package ledger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// NodeMembers is the member payload of a node set: node indices in
// significant order.
type NodeMembers []int64

// Len returns the member count.
func (m NodeMembers) Len() int { return len(m) }

// Concat returns a new collection with other's members appended.
func (m NodeMembers) Concat(other NodeMembers) NodeMembers {
	out := make(NodeMembers, 0, len(m)+len(other))
	out = append(out, m...)
	return append(out, other...)
}

// NodeLedger stages node set edits.
type NodeLedger struct {
	*Ledger[NodeMembers]
}

// NewNodeLedger creates an empty node set ledger.
func NewNodeLedger(source Source[NodeMembers], maxNameLen int, log logrus.FieldLogger) *NodeLedger {
	return &NodeLedger{Ledger: New[NodeMembers]("node set", source, maxNameLen, log)}
}

// Merge creates a new set under newID holding the union of sets idA and
// idB, then removes the originals if deleteOriginals is set.
//
// Union policy: first-occurrence order, idA's members first, then idB's
// members not already present; duplicates are collapsed across and
// within the sources. The sources must be two distinct sets, and newID
// must not collide with any existing id, including idA and idB.
func (l *NodeLedger) Merge(newID, idA, idB int64, deleteOriginals bool) error {
	if idA == idB {
		return fmt.Errorf("merging node set %d with itself: %w", idA, ErrDuplicateID)
	}
	if _, err := l.Lookup(newID); err == nil {
		return fmt.Errorf("merging node sets %d and %d: id %d: %w", idA, idB, newID, ErrDuplicateID)
	}
	a, err := l.Members(idA)
	if err != nil {
		return fmt.Errorf("merging node sets: %w", err)
	}
	b, err := l.Members(idB)
	if err != nil {
		return fmt.Errorf("merging node sets: %w", err)
	}

	seen := make(map[int64]struct{}, len(a)+len(b))
	union := make(NodeMembers, 0, len(a)+len(b))
	for _, lists := range [][]int64{a, b} {
		for _, node := range lists {
			if _, ok := seen[node]; ok {
				continue
			}
			seen[node] = struct{}{}
			union = append(union, node)
		}
	}

	name := fmt.Sprintf("NodeSet %d", newID)
	if err := l.Create(newID, name, union, nil); err != nil {
		return fmt.Errorf("merging node sets: %w", err)
	}
	if deleteOriginals {
		if err := l.Remove(idA); err != nil {
			return fmt.Errorf("merging node sets: %w", err)
		}
		if err := l.Remove(idB); err != nil {
			return fmt.Errorf("merging node sets: %w", err)
		}
	}
	return nil
}

// RemoveMembers removes nodes from a set by value. Every requested node
// must be present; all occurrences of a requested node are removed, along
// with the distribution factors at the removed positions.
func (l *NodeLedger) RemoveMembers(id int64, nodes []int64) error {
	pos, err := l.Lookup(id)
	if err != nil {
		return fmt.Errorf("removing nodes from node set: %w", err)
	}
	if err := l.materialize(pos); err != nil {
		return err
	}
	s := l.At(pos)

	present := make(map[int64]struct{}, len(s.members))
	for _, node := range s.members {
		present[node] = struct{}{}
	}
	drop := make(map[int64]struct{}, len(nodes))
	for _, node := range nodes {
		if _, ok := present[node]; !ok {
			return fmt.Errorf("removing nodes from node set %d: node %d: %w", id, node, ErrNotFound)
		}
		drop[node] = struct{}{}
	}

	kept := make(NodeMembers, 0, len(s.members))
	var keptDF []float64
	if s.hasDF {
		keptDF = make([]float64, 0, len(s.distFact))
	}
	for i, node := range s.members {
		if _, ok := drop[node]; ok {
			continue
		}
		kept = append(kept, node)
		if s.hasDF && i < len(s.distFact) {
			keptDF = append(keptDF, s.distFact[i])
		}
	}
	s.members = kept
	s.distFact = keptDF
	s.size = len(kept)
	s.dfCount = len(keptDF)
	return nil
}

// Commit emits the node set layout: the num_node_sets dimension, the
// ns_status/ns_prop1/ns_names tables, and per set i the num_nod_ns{i}
// dimension with node_ns{i} members and dist_fact_ns{i} factors (factors
// share the member-count dimension for node sets).
func (l *NodeLedger) Commit(sink Sink) error {
	n := naming{
		countDim:  "num_node_sets",
		sizeDim:   "num_nod_ns%d",
		dfVar:     "dist_fact_ns%d",
		statusVar: "ns_status",
		idVar:     "ns_prop1",
		nameVar:   "ns_names",
		nameDim:   "len_name",
	}
	return l.commit(sink, n, func(sink Sink, pos int, sizeDim string, s *Set[NodeMembers]) error {
		varName := fmt.Sprintf("node_ns%d", pos+1)
		if err := sink.DefineVariable(varName, IntVar, sizeDim); err != nil {
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
		return sink.PutInts(varName, members)
	})
}
