package http

import (
	"github.com/vovakirdan/streamchat/internal/core"
	"github.com/vovakirdan/streamchat/internal/proto"
)

// msgRateLimited is replied when a connection exceeds its frame budget.
const msgRateLimited = "rate limit exceeded"

func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventNotification:
		return proto.Notification{
			Type:         proto.TypeNotification,
			Notification: event.Notification,
			Data:         event.Data,
		}
	default:
		return proto.Reply{
			Type:       proto.TypeReply,
			RequestUID: event.RequestUID,
			Data:       event.Data,
			Err:        event.Err,
		}
	}
}
