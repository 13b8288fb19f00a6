package sim

// Event is one entry in the model's diagnostic trail. Events never drive
// control flow.
type Event struct {
	Step    int    `json:"step"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EventLog is an append-only ordered log of simulation events.
type EventLog struct {
	events []Event
}

// Append records an event at the given step.
func (l *EventLog) Append(step int, eventType, message string) {
	l.events = append(l.events, Event{Step: step, Type: eventType, Message: message})
}

// Recent returns up to limit events, most recent first.
func (l *EventLog) Recent(limit int) []Event {
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, 0, limit)
	for i := len(l.events) - 1; i >= len(l.events)-limit; i-- {
		out = append(out, l.events[i])
	}
	return out
}

// Len returns the total number of recorded events.
func (l *EventLog) Len() int {
	return len(l.events)
}
