package waygraph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/waygraph/core"
)

// Status is the closed set of operation outcomes.
type Status = core.Status

// Statuses.
const (
	StatusSuccess              = core.StatusSuccess
	StatusNoPath               = core.StatusNoPath
	StatusStartNodeInvalid     = core.StatusStartNodeInvalid
	StatusGoalNodeInvalid      = core.StatusGoalNodeInvalid
	StatusNodeFull             = core.StatusNodeFull
	StatusEdgeFull             = core.StatusEdgeFull
	StatusHeapFull             = core.StatusHeapFull
	StatusPathTooLong          = core.StatusPathTooLong
	StatusGraphChanged         = core.StatusGraphChanged
	StatusNoProjection         = core.StatusNoProjection
	StatusVirtualNodeFailed    = core.StatusVirtualNodeFailed
	StatusGraphChangedTooOften = core.StatusGraphChangedTooOften
	StatusStartGoalSame        = core.StatusStartGoalSame
)

var (
	ErrNoPath               = core.ErrNoPath
	ErrStartNodeInvalid     = core.ErrStartNodeInvalid
	ErrGoalNodeInvalid      = core.ErrGoalNodeInvalid
	ErrNodeFull             = core.ErrNodeFull
	ErrEdgeFull             = core.ErrEdgeFull
	ErrHeapFull             = core.ErrHeapFull
	ErrPathTooLong          = core.ErrPathTooLong
	ErrNoProjection         = core.ErrNoProjection
	ErrVirtualNodeFailed    = core.ErrVirtualNodeFailed
	ErrGraphChangedTooOften = core.ErrGraphChangedTooOften
	ErrStartGoalSame        = core.ErrStartGoalSame

	// ErrInvalidOptions is returned by New for options that fail validation.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrInvalidCost is returned for negative or NaN edge costs.
	ErrInvalidCost = errors.New("edge cost must be a non-negative number")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("pathfinder is closed")
)

// StatusOf maps err to its Status. nil maps to StatusSuccess.
func StatusOf(err error) Status { return core.StatusOf(err) }

// NodeError reports an operation rejected because of a node handle.
//
// The sentinel (ErrStartNodeInvalid, ErrGoalNodeInvalid, ...) can be matched
// with errors.Is.
type NodeError struct {
	Op     string
	Handle Handle
	cause  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s node %d (gen %d): %v", e.Op, e.Handle.ID, e.Handle.Gen, e.cause)
}

func (e *NodeError) Unwrap() error { return e.cause }

func nodeError(op string, h Handle, cause error) error {
	return &NodeError{Op: op, Handle: h, cause: cause}
}

// translateError attaches the offending handle to node validation errors
// coming out of the engine.
func translateError(op string, start, goal Handle, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrStartNodeInvalid):
		return nodeError(op, start, err)
	case errors.Is(err, core.ErrGoalNodeInvalid):
		return nodeError(op, goal, err)
	}
	return err
}
