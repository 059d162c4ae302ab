package models

// WebhookPayload is the top-level Instagram webhook delivery body: a nested
// structure of entries, each carrying a list of messaging events.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is a single entry inside a webhook delivery batch.
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is one messaging event inside an entry.
type MessagingEvent struct {
	Sender    EventParticipant `json:"sender"`
	Recipient EventParticipant `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *EventMessage    `json:"message,omitempty"`
}

// EventParticipant identifies a messaging event participant by platform id.
type EventParticipant struct {
	ID string `json:"id"`
}

// EventMessage is the optional message object on a messaging event.
type EventMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}
