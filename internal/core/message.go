package core

// Message types accepted by send-message.
const (
	MessagePublic       = "public"
	MessagePrivate      = "private"
	MessagePrivateChat  = "private-chat"
	MessageNotification = "notification"
)

// Message is relayed to recipients and never stored.
type Message struct {
	SenderData UserSnapshot `json:"senderData"`
	Message    string       `json:"message"`
	Type       string       `json:"type"`
	TxtColor   string       `json:"txtColor"`
}
