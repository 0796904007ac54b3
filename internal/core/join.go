package core

import (
	"encoding/json"
	"maps"
)

// JoinReply is the member snapshot returned by join.
type JoinReply struct {
	ClientUID      string                     `json:"clientUid"`
	UserDataList   []UserSnapshot             `json:"userDataList"`
	PrivateRoom    bool                       `json:"privateRoom"`
	Properties     map[string]json.RawMessage `json:"properties"`
	AllowGroupShow bool                       `json:"allowGroupShow"`
	Title          string                     `json:"title"`
}

func (r *Registry) join(c *Client, raw json.RawMessage) Result {
	room, ok := r.byClient[c.ID]
	if !ok {
		c.Close(true)
		return NoReply()
	}

	var p JoinParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrInvalidParams)
	}
	if JoinDigest(p, r.opts.Salt) != string(p.Hash) {
		return Fail(ErrInvalidParams)
	}
	profile := p.Profile()

	if profile.Role == RoleBroadcaster {
		room.BroadcasterName = profile.Name
		room.BroadcasterID = profile.ID
		r.log.Info().Str("room", room.ID).Str("broadcaster", profile.Name).Msg("broadcaster connected")
	}

	// Viewers cannot hold open a room the broadcaster has not joined.
	if profile.Role != RoleBroadcaster && room.Empty() {
		c.Close(true)
		delete(r.byClient, c.ID)
		room.forget(c.ID)
		return NoReply()
	}

	if _, member := room.Member(c.ID); !member {
		existing, known := room.ByExternalID(profile.ID)
		switch {
		case known && profile.ID != GuestID:
			room.rebind(existing, c, profile)
		default:
			u := newUser(c, profile, p.MutedFlag())
			room.add(u)
			if profile.ID != GuestID {
				room.markJoined(u.Snapshot())
			}
		}
	}

	// The reply is encoded off the loop, so it gets its own properties map.
	return Reply(JoinReply{
		ClientUID:      c.ID,
		UserDataList:   room.Snapshots(),
		PrivateRoom:    room.Private,
		Properties:     maps.Clone(room.Properties),
		AllowGroupShow: room.AllowGroupShow,
		Title:          room.Title,
	})
}
