package stratumflow

import "github.com/pkg/errors"

// Misconfiguration errors. The graph construction APIs panic with these
// (possibly wrapped) rather than returning them, since they always
// indicate a programmer error in how the graph was assembled; a caller
// that recovers the panic value can match it with errors.Is.
var (
	// ErrUnknownHandoff is the panic value when a port references a
	// handoff id that does not exist in this scheduler's graph store.
	ErrUnknownHandoff = errors.New("stratumflow: handoff id not found in this graph store")

	// ErrUnknownSubgraph is the panic value when an operation (e.g.
	// ScheduleSubgraph) references a subgraph id that does not exist in
	// this graph store.
	ErrUnknownSubgraph = errors.New("stratumflow: subgraph id not found in this graph store")

	// ErrForeignLoop is the panic value when AddSubgraphFull or AddLoop is
	// given a loop id this scheduler never minted. A foreign id whose
	// number coincides with one of this scheduler's own loop ids is not
	// detected.
	ErrForeignLoop = errors.New("stratumflow: loop id belongs to a different scheduler")

	// ErrMultipleWriters is the panic value when a second producer is
	// attached to a handoff id that already has one. Every handoff,
	// teeing ones included, is single-producer.
	ErrMultipleWriters = errors.New("stratumflow: handoff already has a writer subgraph")
)

// wrapf is a thin helper over errors.Wrapf kept local so call sites read as
// plain Go rather than importing pkg/errors everywhere.
func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
