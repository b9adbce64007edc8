// Package ledger stages edits to the entity-set collections of an Exodus
// mesh database before any bytes are written back to storage.
//
// A Ledger is seeded from lightweight backing-store metadata (counts, ids,
// names, sizes) without loading member arrays. Sets created through the
// ledger live fully in memory; sets inherited from the file stay
// unmaterialized until a mutation forces their member and distribution
// factor arrays to be read through the Source. At commit time every set is
// serialized into the backing format's dimension/variable layout, with
// untouched sets read through from the original file so their contents
// round-trip unchanged.
package ledger

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Validation errors. Each is detected before any mutation is applied, so
// a failed call leaves the ledger unchanged.
var (
	ErrDuplicateID    = errors.New("entity set id already exists")
	ErrNotFound       = errors.New("entity set not found")
	ErrLengthMismatch = errors.New("array length mismatch")
	ErrNameTooLong    = errors.New("entity set name too long")
)

// Members is the per-set payload staged by a Ledger: an ordered member
// collection that knows its length and how to concatenate.
type Members[M any] interface {
	Len() int
	Concat(other M) M
}

// Source reads a set's full arrays from the backing store, resolved by
// external id. It is consulted at most once per set for materialization,
// and again per untouched set at commit time.
type Source[M Members[M]] interface {
	ReadMembers(id int64) (M, error)
	ReadDistFactors(id int64) ([]float64, error)
}

// SetMeta is the lightweight per-set metadata a Ledger is seeded from.
type SetMeta struct {
	ID            int64
	Name          string
	Status        int32
	Size          int
	DistFactCount int
	HasDistFact   bool
}

// Set is one named, identified entity collection staged in a Ledger.
//
// A set is either materialized (members and distribution factors held in
// memory) or a reference to the backing store resolved by external id.
// The set's internal index is not stored: it is the set's 1-based
// position in the ledger sequence, recomputed on every structural change.
type Set[M Members[M]] struct {
	id      int64
	name    string
	status  int32
	size    int
	dfCount int
	hasDF   bool

	materialized bool
	members      M
	distFact     []float64
}

// ID returns the caller-visible external identifier.
func (s *Set[M]) ID() int64 { return s.id }

// Name returns the set's display name.
func (s *Set[M]) Name() string { return s.name }

// Status returns the set's liveness flag.
func (s *Set[M]) Status() int32 { return s.status }

// Size returns the member count. It is valid even when the set is not
// materialized.
func (s *Set[M]) Size() int { return s.size }

// HasDistFactors reports whether the set carries distribution factors.
// A set with zero-length factors still reports true; absence is distinct.
func (s *Set[M]) HasDistFactors() bool { return s.hasDF }

// DistFactCount returns the distribution factor count.
func (s *Set[M]) DistFactCount() int { return s.dfCount }

// Materialized reports whether the member arrays are held in memory.
func (s *Set[M]) Materialized() bool { return s.materialized }

// Ledger owns an ordered sequence of entity sets. Insertion order defines
// each set's internal index; external ids are unique within a ledger.
//
// A Ledger is built once per open-for-write session and discarded after a
// successful commit. It is not safe for concurrent use.
type Ledger[M Members[M]] struct {
	kind       string
	sets       []*Set[M]
	source     Source[M]
	maxNameLen int
	log        logrus.FieldLogger
}

// New creates an empty ledger. kind names the entity-set flavor in errors
// and logs. A nil logger disables logging.
func New[M Members[M]](kind string, source Source[M], maxNameLen int, log logrus.FieldLogger) *Ledger[M] {
	if log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		log = silent
	}
	return &Ledger[M]{
		kind:       kind,
		source:     source,
		maxNameLen: maxNameLen,
		log:        log,
	}
}

// Seed appends unmaterialized sets from backing-store metadata. It is
// called once, before any mutation.
func (l *Ledger[M]) Seed(meta []SetMeta) error {
	for _, m := range meta {
		if _, err := l.Lookup(m.ID); err == nil {
			return fmt.Errorf("seeding %s %d: %w", l.kind, m.ID, ErrDuplicateID)
		}
		l.sets = append(l.sets, &Set[M]{
			id:      m.ID,
			name:    m.Name,
			status:  m.Status,
			size:    m.Size,
			dfCount: m.DistFactCount,
			hasDF:   m.HasDistFact,
		})
	}
	return nil
}

// Count returns the number of sets in the ledger.
func (l *Ledger[M]) Count() int {
	return len(l.sets)
}

// IDs returns the external ids in internal index order.
func (l *Ledger[M]) IDs() []int64 {
	ids := make([]int64, len(l.sets))
	for i, s := range l.sets {
		ids[i] = s.id
	}
	return ids
}

// At returns the set at the given 0-based position.
func (l *Ledger[M]) At(pos int) *Set[M] {
	return l.sets[pos]
}

// Lookup returns the 0-based position of the set with the given external
// id. The set's internal index is position+1. Lookup is a linear scan:
// set counts in mesh files are small, and scanning keeps positions honest
// across structural changes.
func (l *Ledger[M]) Lookup(id int64) (int, error) {
	for i, s := range l.sets {
		if s.id == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s %d: %w", l.kind, id, ErrNotFound)
}

// Name returns the display name of the set with the given external id.
func (l *Ledger[M]) Name(id int64) (string, error) {
	pos, err := l.Lookup(id)
	if err != nil {
		return "", err
	}
	return l.sets[pos].name, nil
}

// Create appends a new, fully materialized set at the next internal
// index. distFact may be nil for a set without distribution factors; when
// present it must match the member count. Members are stored verbatim,
// duplicates included, and both arrays are copied, so the caller's slices
// stay independent of the staged state.
func (l *Ledger[M]) Create(id int64, name string, members M, distFact []float64) error {
	if _, err := l.Lookup(id); err == nil {
		return fmt.Errorf("creating %s %d: %w", l.kind, id, ErrDuplicateID)
	}
	if len(name) > l.maxNameLen {
		return fmt.Errorf("creating %s %d: name %q exceeds %d characters: %w",
			l.kind, id, name, l.maxNameLen, ErrNameTooLong)
	}
	if distFact != nil && len(distFact) != members.Len() {
		return fmt.Errorf("creating %s %d: %d distribution factors for %d members: %w",
			l.kind, id, len(distFact), members.Len(), ErrLengthMismatch)
	}
	dfCopy := distFact
	if distFact != nil {
		dfCopy = make([]float64, len(distFact))
		copy(dfCopy, distFact)
	}
	var empty M
	l.sets = append(l.sets, &Set[M]{
		id:           id,
		name:         name,
		status:       1,
		size:         members.Len(),
		dfCount:      len(distFact),
		hasDF:        distFact != nil,
		materialized: true,
		members:      members.Concat(empty),
		distFact:     dfCopy,
	})
	l.log.WithFields(logrus.Fields{
		"kind": l.kind, "id": id, "members": members.Len(),
	}).Debug("created entity set")
	return nil
}

// Remove deletes the set with the given external id. Every later set
// shifts down one internal index; unmaterialized references stay valid
// because the backing store is always resolved by external id.
func (l *Ledger[M]) Remove(id int64) error {
	pos, err := l.Lookup(id)
	if err != nil {
		return fmt.Errorf("removing %s: %w", l.kind, err)
	}
	l.sets = append(l.sets[:pos], l.sets[pos+1:]...)
	l.log.WithFields(logrus.Fields{"kind": l.kind, "id": id}).Debug("removed entity set")
	return nil
}

// Append concatenates members (and distribution factors) onto an existing
// set, materializing it first if needed.
//
// Factor policy, enforced before materialization: a set that carries
// distribution factors must be given factors matching the new member
// count; a set without factors must not be given any.
func (l *Ledger[M]) Append(id int64, more M, distFact []float64) error {
	pos, err := l.Lookup(id)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", l.kind, err)
	}
	s := l.sets[pos]
	if s.hasDF {
		if distFact == nil {
			return fmt.Errorf("appending to %s %d: target carries distribution factors but none were supplied: %w",
				l.kind, id, ErrLengthMismatch)
		}
		if len(distFact) != more.Len() {
			return fmt.Errorf("appending to %s %d: %d distribution factors for %d members: %w",
				l.kind, id, len(distFact), more.Len(), ErrLengthMismatch)
		}
	} else if distFact != nil {
		return fmt.Errorf("appending to %s %d: target carries no distribution factors: %w",
			l.kind, id, ErrLengthMismatch)
	}
	if err := l.materialize(pos); err != nil {
		return err
	}
	s.members = s.members.Concat(more)
	s.distFact = append(s.distFact, distFact...)
	s.size += more.Len()
	s.dfCount += len(distFact)
	return nil
}

// materialize loads the set's full arrays through the Source. It is
// idempotent; a read failure leaves the set unmaterialized.
func (l *Ledger[M]) materialize(pos int) error {
	s := l.sets[pos]
	if s.materialized {
		return nil
	}
	members, err := l.source.ReadMembers(s.id)
	if err != nil {
		return fmt.Errorf("materializing %s %d: %w", l.kind, s.id, err)
	}
	var distFact []float64
	if s.hasDF {
		distFact, err = l.source.ReadDistFactors(s.id)
		if err != nil {
			return fmt.Errorf("materializing %s %d factors: %w", l.kind, s.id, err)
		}
	}
	s.members = members
	s.distFact = distFact
	s.size = members.Len()
	s.dfCount = len(distFact)
	s.materialized = true
	l.log.WithFields(logrus.Fields{
		"kind": l.kind, "id": s.id, "members": s.size,
	}).Debug("materialized entity set")
	return nil
}

// Members returns the set's member collection, reading through to the
// backing store without caching when the set is not materialized. The
// returned collection must not be modified.
func (l *Ledger[M]) Members(id int64) (M, error) {
	var zero M
	pos, err := l.Lookup(id)
	if err != nil {
		return zero, err
	}
	s := l.sets[pos]
	if s.materialized {
		return s.members, nil
	}
	members, err := l.source.ReadMembers(id)
	if err != nil {
		return zero, fmt.Errorf("reading %s %d: %w", l.kind, id, err)
	}
	return members, nil
}

// DistFactors returns the set's distribution factors and whether the set
// carries any, reading through when not materialized.
func (l *Ledger[M]) DistFactors(id int64) ([]float64, bool, error) {
	pos, err := l.Lookup(id)
	if err != nil {
		return nil, false, err
	}
	s := l.sets[pos]
	if !s.hasDF {
		return nil, false, nil
	}
	if s.materialized {
		return s.distFact, true, nil
	}
	distFact, err := l.source.ReadDistFactors(id)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s %d factors: %w", l.kind, id, err)
	}
	return distFact, true, nil
}
