package core

import (
	"encoding/json"
	"slices"
)

// broadcaster resolves the caller and requires the broadcaster role.
func (r *Registry) broadcaster(c *Client) (*Room, *User, error) {
	room, u, err := r.member(c)
	if err != nil {
		return nil, nil, err
	}
	if !u.isBroadcaster() {
		return nil, nil, ErrNotAllowed
	}
	return room, u, nil
}

func (r *Registry) setTipGoal(c *Client, raw json.RawMessage) Result {
	room, u, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}
	var p tipGoalParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}
	room.broadcast(NotificationTipGoalSet, TipGoalSet{TipGoal: p.TipGoal, SenderData: u.Snapshot()}, nil)
	return NoReply()
}

func (r *Registry) goPrivate(c *Client, raw json.RawMessage) Result {
	room, u, err := r.member(c)
	if err != nil {
		return Fail(err)
	}
	var p goPrivateParams
	if err := decodeParams(raw, &p); err != nil || p.UserIDs == nil {
		return Fail(ErrInvalidParams)
	}
	if !u.isBroadcaster() {
		return Fail(ErrNotAllowed)
	}

	room.Private = true
	room.PrivateShow = bool(p.PrivateShow)
	room.Tariff = float64(p.Tariff)
	u.inPrivate = true

	for _, member := range room.Users() {
		if member.isAdmin() || slices.Contains(p.UserIDs, Text(member.Profile.ID)) {
			member.inPrivate = true
		}
		member.notify(NotificationRoomIsPrivate, RoomIsPrivate{
			UserInPrivate: member.inPrivate,
			PrivateShow:   room.PrivateShow,
			Tariff:        room.Tariff,
		})
	}
	return NoReply()
}

func (r *Registry) goPublic(c *Client, _ json.RawMessage) Result {
	room, _, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}

	room.Private = false
	room.PrivateShow = false
	room.Tariff = 0
	for _, member := range room.Users() {
		member.inPrivate = false
		member.notify(NotificationRoomIsPublic, nil)
	}
	return NoReply()
}

func (r *Registry) setAllowGroupShow(c *Client, raw json.RawMessage) Result {
	room, _, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}
	var p allowGroupShowParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}
	room.AllowGroupShow = bool(p.AllowGroupShow)
	room.broadcast(NotificationAllowGroupShowChanged, AllowGroupShowChanged{AllowGroupShow: room.AllowGroupShow}, nil)
	return NoReply()
}

func (r *Registry) setTitle(c *Client, raw json.RawMessage) Result {
	room, _, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}
	var p titleParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}
	room.Title = p.Title
	room.broadcast(NotificationTitleChanged, TitleChanged{Title: room.Title}, nil)
	return NoReply()
}

// setWowzaID tells the broadcaster which media stream the caller plays.
func (r *Registry) setWowzaID(c *Client, raw json.RawMessage) Result {
	room, u, err := r.member(c)
	if err != nil {
		return Fail(err)
	}
	var p wowzaParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}
	if b, ok := room.Broadcaster(); ok {
		b.notify(NotificationWowzaIDChanged, WowzaIDChanged{UserID: u.Profile.ID, WowzaID: string(p.ID)})
	}
	return NoReply()
}

func (r *Registry) setProperty(c *Client, raw json.RawMessage) Result {
	room, _, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}
	var p propertyParams
	if err := decodeParams(raw, &p); err != nil || p.Property == "" {
		return Fail(ErrInvalidParams)
	}
	value := p.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	room.Properties[p.Property] = value
	room.broadcast(NotificationPropertySet, PropertySet{Property: p.Property, Value: value}, func(u *User) bool {
		return u.client != c
	})
	return NoReply()
}

func (r *Registry) removeProperty(c *Client, raw json.RawMessage) Result {
	room, _, err := r.broadcaster(c)
	if err != nil {
		return Fail(err)
	}
	var p propertyParams
	if err := decodeParams(raw, &p); err != nil || p.Property == "" {
		return Fail(ErrInvalidParams)
	}
	delete(room.Properties, p.Property)
	room.broadcast(NotificationPropertyRemoved, PropertyRemoved{Property: p.Property}, func(u *User) bool {
		return u.client != c
	})
	return NoReply()
}
