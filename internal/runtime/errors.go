package runtime

import "errors"

// Sentinel errors for the taxonomy in spec §7. ErrGuard, ErrAction, ErrService
// and ErrResolution are joined (via errors.Join) into the richer wrapper types
// below so callers can use errors.Is against the sentinel or errors.As against
// the wrapper; ErrTimeout and ErrStopped have no wrapper type.
var (
	ErrGuard      = errors.New("runtime: guard error")
	ErrAction     = errors.New("runtime: action error")
	ErrService    = errors.New("runtime: service error")
	ErrResolution = errors.New("runtime: resolution error")
	ErrTimeout    = errors.New("runtime: timeout")
	ErrStopped    = errors.New("runtime: machine stopped")
)

// GuardError wraps an error returned by a guard. The transition is treated as
// guard=false and the error is only ever logged, never returned to the caller
// of Send (spec §7: "transition not taken; logged via subscriber as a warning").
type GuardError struct {
	NodePath string
	Event    string
	Err      error
}

func (e *GuardError) Error() string {
	return "guard error on " + e.NodePath + " for event " + e.Event + ": " + e.Err.Error()
}

func (e *GuardError) Unwrap() error { return errors.Join(ErrGuard, e.Err) }

// ActionError wraps an entry/exit/transition action failure. It is recorded
// into context (_lastError/_errorType/_errorMessage) and dispatched to the
// nearest onError handler by the Engine; it is never returned from Send.
type ActionError struct {
	NodePath string
	Event    string
	Err      error
}

func (e *ActionError) Error() string {
	return "action error on " + e.NodePath + " for event " + e.Event + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error { return errors.Join(ErrAction, e.Err) }

// ServiceError wraps an invoked service failure, delivered as the
// "error.platform.<id>" internal event.
type ServiceError struct {
	InvocationID string
	Err          error
}

func (e *ServiceError) Error() string {
	return "service " + e.InvocationID + " error: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return errors.Join(ErrService, e.Err) }

// ResolutionErr wraps a transition target that fails to resolve against the
// chart. Fatal to the current microstep only: the transition is skipped and
// the configuration is left unchanged.
type ResolutionErr struct {
	NodePath string
	Target   string
	Err      error
}

func (e *ResolutionErr) Error() string {
	return "cannot resolve target " + e.Target + " from " + e.NodePath + ": " + e.Err.Error()
}

func (e *ResolutionErr) Unwrap() error { return errors.Join(ErrResolution, e.Err) }
