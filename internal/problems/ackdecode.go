package problems

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"problems-service/internal/models"
)

// UnnamedUser is shown when an attributed message carries an empty user.
const UnnamedUser = "Unnamed user"

// timeLabelLayout renders suppress-until instants inside action labels.
const timeLabelLayout = "1/2/2006, 15:04:05"

// AckDisplay is one acknowledge entry rendered for the timeline. Message
// and ActionLabel are nil rather than empty so the presentation layer can
// omit the corresponding lines.
type AckDisplay struct {
	User        string  `json:"user"`
	Time        string  `json:"time"`
	Message     *string `json:"message,omitempty"`
	ActionLabel *string `json:"action_label,omitempty"`
}

// Decoder turns raw acknowledge entries into display records. It holds only
// the timezone used for suppress-until labels and is safe for reuse.
type Decoder struct {
	location *time.Location
}

// NewDecoder builds a decoder rendering times in loc, or UTC when nil.
func NewDecoder(loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{location: loc}
}

// Decode renders one entry. It is a pure function: the same entry always
// yields the same display record, and the input is never mutated.
func (d *Decoder) Decode(ack models.AcknowledgeEntry) AckDisplay {
	display := AckDisplay{Time: ack.Time}

	msg := ParseAckMessage(ack.Message)
	if msg.Attributed {
		display.User = msg.User
		if display.User == "" {
			display.User = UnnamedUser
		}
		if msg.Text != "" {
			text := msg.Text
			display.Message = &text
		}
	} else {
		display.User = ack.UserID
		if display.User == "" {
			display.User = strings.TrimSpace(ack.Name + " " + ack.Surname)
		}
		if ack.Message != "" {
			text := ack.Message
			display.Message = &text
		}
	}

	if label := d.actionLabel(ack); label != "" {
		display.ActionLabel = &label
	}
	return display
}

// DecodeAll renders entries in delivery order; the backend is trusted to
// have sorted them chronologically.
func (d *Decoder) DecodeAll(acks []models.AcknowledgeEntry) []AckDisplay {
	out := make([]AckDisplay, 0, len(acks))
	for _, ack := range acks {
		out = append(out, d.Decode(ack))
	}
	return out
}

// actionLabel maps the entry's action code to its annotation. Codes carry
// at most one action besides the message bit, so one label suffices;
// unrecognized codes render without an annotation.
func (d *Decoder) actionLabel(ack models.AcknowledgeEntry) string {
	switch ack.Action {
	case "1", "5":
		return "Manually closed the problem"
	case "4":
		return "Acknowledged"
	case "8":
		return fmt.Sprintf("Changed severity from %s to %s", ack.OldSeverity, ack.NewSeverity)
	case "32", "36":
		until, err := strconv.ParseInt(ack.SuppressUntil, 10, 64)
		if err != nil || until == 0 {
			// Missing or zero suppress_until means indefinite.
			return "Suppressed indefinitely"
		}
		return "Suppressed until " + time.Unix(until, 0).In(d.location).Format(timeLabelLayout)
	case "64", "68":
		return "Unsuppressed the problem"
	default:
		return ""
	}
}
