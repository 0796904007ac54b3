package core

import (
	"encoding/json"
	"unicode/utf16"
)

type messageRoute func(room *Room, sender *User, p sendMessageParams) error

func (r *Registry) messageRoutes() map[string]messageRoute {
	return map[string]messageRoute{
		MessagePublic:       r.broadcastMessage,
		MessagePrivateChat:  r.broadcastMessage,
		MessageNotification: r.broadcastMessage,
		MessagePrivate:      r.directMessage,
	}
}

func (r *Registry) sendMessage(c *Client, raw json.RawMessage) Result {
	var p sendMessageParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}

	route, ok := r.routes[p.Type]
	if !ok {
		return Fail(ErrUnknownMessageType)
	}

	room, sender, err := r.member(c)
	if err != nil {
		return Fail(err)
	}
	if utf16Len(p.Message) > r.opts.MaxMessageLength {
		return Fail(ErrMessageTooLong)
	}
	if sender.Profile.ID == GuestID {
		return Fail(ErrGuestMessage)
	}
	if p.Type == MessagePrivateChat && room.Private && !sender.inPrivate {
		return Fail(ErrNotInPrivate)
	}
	if p.Type == MessageNotification && !sender.isBroadcaster() {
		return Fail(ErrNotificationRole)
	}

	if err := route(room, sender, p); err != nil {
		return Fail(err)
	}
	return NoReply()
}

// audible reports whether a message from from reaches to. Muted senders
// reach admins only.
func audible(from, to *User) bool {
	return !from.mute || to.isAdmin()
}

func (r *Registry) broadcastMessage(room *Room, sender *User, p sendMessageParams) error {
	msg := Message{
		SenderData: sender.Snapshot(),
		Message:    p.Message,
		Type:       p.Type,
		TxtColor:   p.TxtColor,
	}
	room.broadcast(NotificationMessageDelivered, msg, func(u *User) bool {
		if !audible(sender, u) {
			return false
		}
		return p.Type != MessagePrivateChat || u.inPrivate
	})
	return nil
}

func (r *Registry) directMessage(room *Room, sender *User, p sendMessageParams) error {
	receiver, ok := room.ByExternalID(string(p.ReceiverID))
	if !ok {
		return ErrReceiverNotFound
	}
	if audible(sender, receiver) {
		receiver.notify(NotificationMessageDelivered, Message{
			SenderData: sender.Snapshot(),
			Message:    p.Message,
			Type:       MessagePrivate,
			TxtColor:   p.TxtColor,
		})
	}
	return nil
}

// utf16Len counts UTF-16 code units, the unit clients measure text in.
func utf16Len(s string) int {
	n := 0
	for _, c := range s {
		n += utf16.RuneLen(c)
	}
	return n
}
