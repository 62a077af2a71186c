package graph

import "errors"

var (
	// ErrMalformedGraph indicates structurally invalid input: duplicate ids,
	// missing edge endpoints, or negative weights.
	ErrMalformedGraph = errors.New("malformed graph")

	// ErrMissingVertex is returned for lookups of unknown vertex ids.
	ErrMissingVertex = errors.New("missing vertex")

	// ErrDisconnectedPeak names a required peak that has no trail neighbor
	// and therefore cannot be reached on foot. ValidatePeaks lists such
	// peaks instead of failing, and cluster discovery logs them with this
	// error and excludes them.
	ErrDisconnectedPeak = errors.New("disconnected peak")
)
