package order

// Status is the order lifecycle state. pending is the sole initial status.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusProcessing    Status = "processing"
	StatusShipped       Status = "shipped"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// transitions is the full legal edge set. Statuses absent from the map are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusPaid, StatusPaymentFailed},
	StatusPaid:       {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusCompleted},
}

// CanTransitionTo reports whether the status graph allows from -> to.
func CanTransitionTo(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusPaymentFailed, StatusProcessing,
		StatusShipped, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}
