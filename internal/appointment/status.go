package appointment

// allowedTransitions is the full lifecycle:
//
//	requested → pending (approve) | denied (deny)
//	pending   → completed | cancelled
//	scheduled → completed | cancelled
//	denied, completed, cancelled → (terminal)
var allowedTransitions = map[Status][]Status{
	StatusRequested: {StatusPending, StatusDenied},
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusScheduled: {StatusCompleted, StatusCancelled},
	StatusDenied:    {},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusDenied, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Per-operation guards. Each returns ErrInvalidTransition when the current
// status does not permit the operation.

func canApprove(current Status) error {
	if current != StatusRequested {
		return ErrInvalidTransition
	}
	return nil
}

func canDeny(current Status) error {
	if current != StatusRequested {
		return ErrInvalidTransition
	}
	return nil
}

func canComplete(current Status) error {
	if current != StatusPending && current != StatusScheduled {
		return ErrInvalidTransition
	}
	return nil
}

func canCancel(current Status) error {
	if current.IsTerminal() {
		return ErrInvalidTransition
	}
	return nil
}
