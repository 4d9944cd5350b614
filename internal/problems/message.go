package problems

import "encoding/json"

// AckMessage is the decoded form of an acknowledge message field. The
// backend reuses that field to carry structured attribution as serialized
// JSON, with a plain-text convention for entries written by older tools.
// Parse failure is the legacy variant, never an error.
type AckMessage struct {
	// Attributed is true when the raw message was a JSON object carrying
	// a grafanaUser field.
	Attributed bool
	// User is the embedded attribution, empty for legacy messages.
	User string
	// Text is the human message: the embedded message field for
	// attributed entries, the raw field otherwise.
	Text string
}

type attributedMessage struct {
	GrafanaUser string `json:"grafanaUser"`
	Message     string `json:"message"`
}

// ParseAckMessage decodes one raw acknowledge message. Only a well-formed
// JSON object counts as attributed; arrays, primitives, null, and malformed
// input all fall back to the legacy plain-text variant.
func ParseAckMessage(raw string) AckMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return AckMessage{Text: raw}
	}

	var msg attributedMessage
	if user, ok := fields["grafanaUser"]; ok {
		_ = json.Unmarshal(user, &msg.GrafanaUser)
	}
	if text, ok := fields["message"]; ok {
		_ = json.Unmarshal(text, &msg.Message)
	}
	return AckMessage{Attributed: true, User: msg.GrafanaUser, Text: msg.Message}
}

// EncodeAttributedMessage builds the JSON message payload every update
// authored through this service writes, so that attribution survives the
// round trip through the backend's message field.
func EncodeAttributedMessage(actingUser, message string) (string, error) {
	payload, err := json.Marshal(attributedMessage{GrafanaUser: actingUser, Message: message})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
