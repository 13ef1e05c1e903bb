package model

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusClosed    EventStatus = "closed"
)

var transitions = map[EventStatus][]EventStatus{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusOngoing, StatusClosed},
	StatusOngoing:   {StatusCompleted, StatusClosed},
}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusOngoing, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s EventStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusClosed
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to EventStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
