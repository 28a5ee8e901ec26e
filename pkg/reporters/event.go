package reporters

import (
	"encoding/json"
	"time"

	"github.com/samvad-hq/shapes-probe/pkg/interpret"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

// Event is the payload reported downstream for one call.
type Event struct {
	RequestID  string    `json:"request_id"`
	Endpoint   string    `json:"endpoint"`
	Outcome    string    `json:"outcome"`
	Kind       string    `json:"kind"`
	OK         bool      `json:"ok"`
	StatusCode int       `json:"status_code,omitempty"`
	Category   string    `json:"category"`
	Text       string    `json:"text"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewEvent builds an Event from an outcome and its interpreted status.
// OK follows the status, so an unrecognized shape counts as a failure.
func NewEvent(o shapes.Outcome, st interpret.Status) Event {
	return Event{
		RequestID:  o.RequestID,
		Endpoint:   string(o.Endpoint),
		Outcome:    o.String(),
		Kind:       o.Kind.String(),
		OK:         st.OK,
		StatusCode: o.StatusCode,
		Category:   string(st.Category),
		Text:       st.Text,
		ElapsedMs:  o.Elapsed.Milliseconds(),
		ObservedAt: time.Now().UTC(),
	}
}

// Attributes are the routing keys message sinks attach next to the body.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"endpoint": e.Endpoint,
		"kind":     e.Kind,
		"category": e.Category,
	}
}

func (e Event) payload() ([]byte, error) {
	return json.Marshal(e)
}
