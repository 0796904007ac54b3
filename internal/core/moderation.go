package core

import "encoding/json"

// moderate resolves the caller and the target viewer, checking the
// caller's role with allowed.
func (r *Registry) moderate(c *Client, raw json.RawMessage, allowed func(*User) bool) (*User, error) {
	_, caller, err := r.member(c)
	if err != nil {
		return nil, err
	}
	if !allowed(caller) {
		return nil, ErrNotAllowed
	}
	var p viewerParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, ErrInvalidParams
	}
	room := r.byClient[c.ID]
	target, ok := room.ByExternalID(string(p.ViewerID))
	if !ok {
		return nil, ErrViewerNotFound
	}
	return target, nil
}

func canModerate(u *User) bool {
	return u.isBroadcaster() || u.isAdmin()
}

func (r *Registry) mute(c *Client, raw json.RawMessage) Result {
	target, err := r.moderate(c, raw, canModerate)
	if err != nil {
		return Fail(err)
	}
	if target.isAdmin() {
		return Fail(ErrAdminMute)
	}
	target.mute = true
	return NoReply()
}

func (r *Registry) unmute(c *Client, raw json.RawMessage) Result {
	target, err := r.moderate(c, raw, canModerate)
	if err != nil {
		return Fail(err)
	}
	if target.isAdmin() {
		return Fail(ErrAdminUnmute)
	}
	target.mute = false
	return NoReply()
}

func (r *Registry) makeAdmin(c *Client, raw json.RawMessage) Result {
	target, err := r.moderate(c, raw, (*User).isBroadcaster)
	if err != nil {
		return Fail(err)
	}
	target.Profile.Role = RoleAdmin
	return NoReply()
}

func (r *Registry) makeViewer(c *Client, raw json.RawMessage) Result {
	target, err := r.moderate(c, raw, (*User).isBroadcaster)
	if err != nil {
		return Fail(err)
	}
	target.Profile.Role = RoleViewer
	return NoReply()
}
