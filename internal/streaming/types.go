package streaming

import "time"

// EventType represents the type of SSE event
type EventType string

const (
	EventTypeSession     EventType = "session"
	EventTypeProgress    EventType = "progress"
	EventTypeFile        EventType = "file"
	EventTypeTransaction EventType = "transaction"
	EventTypeComplete    EventType = "complete"
	EventTypeError       EventType = "error"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// SessionEvent reports the state of one upload session.
type SessionEvent struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Inserted    int        `json:"inserted"`
	Skipped     int        `json:"skipped"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// FileEvent reports one statement file moving through the pipeline.
type FileEvent struct {
	SessionID string `json:"sessionId"`
	FileName  string `json:"fileName"`
	Parser    string `json:"parser,omitempty"`
	Status    string `json:"status"`
	Drafts    int    `json:"drafts"`
	Error     string `json:"error,omitempty"`
}

// ProgressEvent reports batch progress across an upload's files.
type ProgressEvent struct {
	FileName   string  `json:"fileName"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

// TransactionEvent surfaces a freshly inserted transaction to the
// upload progress UI. Amount is the exact decimal string.
type TransactionEvent struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Direction   string `json:"direction"`
	Category    string `json:"category,omitempty"`
}

// ErrorEvent represents an error during ingestion
type ErrorEvent struct {
	Message  string `json:"message"`
	FileName string `json:"fileName,omitempty"`
}

// NewSessionEvent wraps a SessionEvent into a typed, timestamped SSEEvent.
func NewSessionEvent(data SessionEvent) SSEEvent {
	return SSEEvent{Type: EventTypeSession, Timestamp: time.Now(), Data: data}
}

// NewProgressEvent wraps a ProgressEvent into a typed, timestamped SSEEvent.
func NewProgressEvent(data ProgressEvent) SSEEvent {
	return SSEEvent{Type: EventTypeProgress, Timestamp: time.Now(), Data: data}
}

// NewFileEvent wraps a FileEvent into a typed, timestamped SSEEvent.
func NewFileEvent(data FileEvent) SSEEvent {
	return SSEEvent{Type: EventTypeFile, Timestamp: time.Now(), Data: data}
}

// NewTransactionEvent wraps a TransactionEvent into a typed, timestamped SSEEvent.
func NewTransactionEvent(data TransactionEvent) SSEEvent {
	return SSEEvent{Type: EventTypeTransaction, Timestamp: time.Now(), Data: data}
}

// NewCompleteEvent wraps a final SessionEvent into a complete SSEEvent.
func NewCompleteEvent(data SessionEvent) SSEEvent {
	return SSEEvent{Type: EventTypeComplete, Timestamp: time.Now(), Data: data}
}

// NewErrorEvent wraps an ErrorEvent into a typed, timestamped SSEEvent.
func NewErrorEvent(data ErrorEvent) SSEEvent {
	return SSEEvent{Type: EventTypeError, Timestamp: time.Now(), Data: data}
}

// NewHeartbeatEvent returns a bare heartbeat SSEEvent.
func NewHeartbeatEvent() SSEEvent {
	return SSEEvent{Type: EventTypeHeartbeat, Timestamp: time.Now()}
}

// ProgressData returns the event payload when this is a progress event.
func (e SSEEvent) ProgressData() (ProgressEvent, bool) {
	p, ok := e.Data.(ProgressEvent)
	return p, ok
}

// FileData returns the event payload when this is a file event.
func (e SSEEvent) FileData() (FileEvent, bool) {
	f, ok := e.Data.(FileEvent)
	return f, ok
}

// SessionData returns the event payload when this is a session or
// complete event.
func (e SSEEvent) SessionData() (SessionEvent, bool) {
	s, ok := e.Data.(SessionEvent)
	return s, ok
}

// ErrorData returns the event payload when this is an error event.
func (e SSEEvent) ErrorData() (ErrorEvent, bool) {
	v, ok := e.Data.(ErrorEvent)
	return v, ok
}
