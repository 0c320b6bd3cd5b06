package patterns

import (
	"time"

	"github.com/voicelog/product-identity/models"
)

// Session is a run of events logged close together.
type Session struct {
	Events []models.VoiceEvent
	Start  time.Time
	End    time.Time
}

func (s Session) Items() []Item {
	items := make([]Item, len(s.Events))
	for i, e := range s.Events {
		items[i] = ItemFromEvent(e)
	}
	return items
}

// GroupEventsIntoSessions walks events, which must be sorted by time, and
// starts a new session whenever the gap to the previous event exceeds
// window. Sessions with a single event are dropped.
func GroupEventsIntoSessions(events []models.VoiceEvent, window time.Duration) []Session {
	var sessions []Session
	var current []models.VoiceEvent

	flush := func() {
		if len(current) >= 2 {
			sessions = append(sessions, Session{
				Events: current,
				Start:  current[0].EventTime,
				End:    current[len(current)-1].EventTime,
			})
		}
		current = nil
	}

	for _, e := range events {
		if len(current) > 0 && e.EventTime.Sub(current[len(current)-1].EventTime) > window {
			flush()
		}
		current = append(current, e)
	}
	flush()
	return sessions
}
