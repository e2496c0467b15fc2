package core

import (
	"errors"
	"strconv"
)

// Status is the closed set of outcomes of graph and search operations.
// Values match the numeric codes exposed to host integrations.
type Status int

const (
	StatusSuccess              Status = 0
	StatusNoPath               Status = -1
	StatusStartNodeInvalid     Status = -2
	StatusGoalNodeInvalid      Status = -3
	StatusNodeFull             Status = -4
	StatusEdgeFull             Status = -5
	StatusHeapFull             Status = -6
	StatusPathTooLong          Status = -7
	StatusGraphChanged         Status = -8
	StatusNoProjection         Status = -9
	StatusVirtualNodeFailed    Status = -10
	StatusGraphChangedTooOften Status = -11
	StatusStartGoalSame        Status = -12
)

var (
	ErrNoPath               = errors.New("no valid path found between start and goal nodes")
	ErrStartNodeInvalid     = errors.New("invalid or inactive start node")
	ErrGoalNodeInvalid      = errors.New("invalid or inactive goal node")
	ErrNodeFull             = errors.New("node capacity reached")
	ErrEdgeFull             = errors.New("edge capacity reached")
	ErrHeapFull             = errors.New("heap pool exhausted during pathfinding")
	ErrPathTooLong          = errors.New("path exceeds maximum allowed length")
	ErrGraphChanged         = errors.New("graph modified during pathfinding")
	ErrNoProjection         = errors.New("cannot project point onto graph")
	ErrVirtualNodeFailed    = errors.New("failed to create or connect virtual node")
	ErrGraphChangedTooOften = errors.New("graph changed too often during pathfinding")
	ErrStartGoalSame        = errors.New("start and goal node are the same")
)

var statusErrors = []struct {
	status Status
	err    error
}{
	{StatusNoPath, ErrNoPath},
	{StatusStartNodeInvalid, ErrStartNodeInvalid},
	{StatusGoalNodeInvalid, ErrGoalNodeInvalid},
	{StatusNodeFull, ErrNodeFull},
	{StatusEdgeFull, ErrEdgeFull},
	{StatusHeapFull, ErrHeapFull},
	{StatusPathTooLong, ErrPathTooLong},
	{StatusGraphChanged, ErrGraphChanged},
	{StatusNoProjection, ErrNoProjection},
	{StatusVirtualNodeFailed, ErrVirtualNodeFailed},
	{StatusGraphChangedTooOften, ErrGraphChangedTooOften},
	{StatusStartGoalSame, ErrStartGoalSame},
}

// Err returns the sentinel error for s, or nil for StatusSuccess and unknown codes.
func (s Status) Err() error {
	for _, se := range statusErrors {
		if se.status == s {
			return se.err
		}
	}
	return nil
}

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGraphChanged:
		return "graph modified during pathfinding, retrying"
	case StatusGraphChangedTooOften:
		return "graph changed too often during pathfinding (>3 retries)"
	}
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return "unknown status " + strconv.Itoa(int(s))
}

// StatusOf maps an error returned by this module back to its status code.
// A nil error is StatusSuccess. Errors that wrap none of the sentinels map
// to StatusNoPath.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	return StatusNoPath
}
