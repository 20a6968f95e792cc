package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// Notification channels.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// Notice is an outbound notification derived from a domain event.
type Notice struct {
	Channel  string
	Target   string
	Event    events.EventType
	TicketID int64
	Actor    string
}

// NotificationService turns domain events into outbound notices. Delivery is
// a structured log line per notice; EmailFrom and WebhookURL switch channels
// on.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	sent       func(Notice)
}

// eventChannels lists which channels each event fans out to.
var eventChannels = map[events.EventType][]string{
	events.EventTicketCreated:      {ChannelWebhook},
	events.EventTicketUpdated:      {ChannelWebhook},
	events.EventTicketCompleted:    {ChannelEmail, ChannelWebhook},
	events.EventTicketMessageAdded: {ChannelEmail},
	events.EventCorpusUpdated:      nil,
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{dispatcher: dispatcher, logger: logger.Named("notify"), cfg: cfg}
}

// RegisterHandlers subscribes to every routed event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range eventChannels {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("actor", event.Actor.Name),
		zap.Any("payload", event.Payload))

	for _, notice := range n.notices(event) {
		n.logger.Debug("notification queued",
			zap.String("channel", notice.Channel),
			zap.String("target", notice.Target),
			zap.String("event_type", string(notice.Event)),
			zap.Int64("ticket_id", notice.TicketID))
		if n.sent != nil {
			n.sent(notice)
		}
	}
	return nil
}

func (n *NotificationService) notices(event events.Event) []Notice {
	var out []Notice
	for _, channel := range eventChannels[event.Type] {
		target := n.target(channel)
		if target == "" {
			continue
		}
		out = append(out, Notice{
			Channel:  channel,
			Target:   target,
			Event:    event.Type,
			TicketID: event.TicketID,
			Actor:    event.Actor.Name,
		})
	}
	return out
}

func (n *NotificationService) target(channel string) string {
	switch channel {
	case ChannelEmail:
		return strings.TrimSpace(n.cfg.EmailFrom)
	case ChannelWebhook:
		return strings.TrimSpace(n.cfg.WebhookURL)
	}
	return ""
}
