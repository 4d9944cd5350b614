package notify

import (
	"context"
	"time"

	"problems-service/internal/logging"
)

// Severity of one notification signal.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one short operator-facing signal.
type Notification struct {
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Notifier fans notifications out to connected dashboard clients and,
// for warnings and errors, to an optional telegram channel. Emission is
// fire-and-forget: a notification never fails the operation it reports on.
type Notifier struct {
	hub      *Hub
	telegram *TelegramForwarder
	logger   *logging.Logger
}

// New builds a Notifier. telegram may be nil when forwarding is disabled.
func New(hub *Hub, telegram *TelegramForwarder, logger *logging.Logger) *Notifier {
	return &Notifier{hub: hub, telegram: telegram, logger: logger}
}

func (n *Notifier) Success(title, message string) {
	n.publish(Notification{Severity: SeveritySuccess, Title: title, Message: message, Time: time.Now()})
}

func (n *Notifier) Warning(title, message string) {
	n.publish(Notification{Severity: SeverityWarning, Title: title, Message: message, Time: time.Now()})
}

func (n *Notifier) Error(title, message string) {
	n.publish(Notification{Severity: SeverityError, Title: title, Message: message, Time: time.Now()})
}

func (n *Notifier) publish(notification Notification) {
	n.logger.Infof("Notification [%s] %s: %s", notification.Severity, notification.Title, notification.Message)
	n.hub.Broadcast(notification)

	if n.telegram != nil && notification.Severity != SeveritySuccess {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := n.telegram.Send(ctx, notification); err != nil {
				n.logger.Errorf("Failed to forward notification to telegram: %v", err)
			}
		}()
	}
}
