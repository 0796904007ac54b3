package core

import (
	"encoding/json"
	"slices"
)

// Room is the in-memory state of one chat room. It is owned by the
// registry loop and never touched from other goroutines.
type Room struct {
	ID string

	users     map[string]*User // by connection id
	order     []string         // connection ids in join order
	usersByID map[string]*User // by external id, guests excluded

	joined      map[string]UserSnapshot
	joinedOrder []string
	left        map[string]struct{}
	leftOrder   []string

	clientIDs []string

	Properties      map[string]json.RawMessage
	BroadcasterName string
	BroadcasterID   string
	Title           string
	Private         bool
	PrivateShow     bool
	Tariff          float64
	AllowGroupShow  bool
}

// NewRoom constructs an empty room.
func NewRoom(id string) *Room {
	return &Room{
		ID:         id,
		users:      make(map[string]*User),
		usersByID:  make(map[string]*User),
		joined:     make(map[string]UserSnapshot),
		left:       make(map[string]struct{}),
		Properties: make(map[string]json.RawMessage),
	}
}

// Len is the number of joined members.
func (r *Room) Len() int {
	return len(r.users)
}

// Empty returns true if no member is joined.
func (r *Room) Empty() bool {
	return len(r.users) == 0
}

// Member returns the user joined through the given connection.
func (r *Room) Member(clientID string) (*User, bool) {
	u, ok := r.users[clientID]
	return u, ok
}

// ByExternalID returns the member with the given account id.
func (r *Room) ByExternalID(id string) (*User, bool) {
	u, ok := r.usersByID[id]
	return u, ok
}

// Broadcaster returns the joined broadcaster, if any.
func (r *Room) Broadcaster() (*User, bool) {
	if r.BroadcasterID == "" {
		return nil, false
	}
	return r.ByExternalID(r.BroadcasterID)
}

// Users returns members in join order.
func (r *Room) Users() []*User {
	out := make([]*User, 0, len(r.order))
	for _, cid := range r.order {
		out = append(out, r.users[cid])
	}
	return out
}

// Snapshots returns the public view of every member in join order.
func (r *Room) Snapshots() []UserSnapshot {
	out := make([]UserSnapshot, 0, len(r.order))
	for _, cid := range r.order {
		out = append(out, r.users[cid].Snapshot())
	}
	return out
}

// Joined returns the pending joined diff.
func (r *Room) Joined() []UserSnapshot {
	out := make([]UserSnapshot, 0, len(r.joinedOrder))
	for _, id := range r.joinedOrder {
		out = append(out, r.joined[id])
	}
	return out
}

// Left returns the pending left diff.
func (r *Room) Left() []string {
	return slices.Clone(r.leftOrder)
}

// HasDiff reports whether a user list change is pending.
func (r *Room) HasDiff() bool {
	return len(r.joined) > 0 || len(r.left) > 0
}

func (r *Room) connect(clientID string) {
	r.clientIDs = append(r.clientIDs, clientID)
}

func (r *Room) forget(clientID string) {
	r.clientIDs = slices.DeleteFunc(r.clientIDs, func(id string) bool { return id == clientID })
}

func (r *Room) add(u *User) {
	cid := u.client.ID
	r.users[cid] = u
	r.order = append(r.order, cid)
	if u.Profile.ID != GuestID {
		r.usersByID[u.Profile.ID] = u
	}
}

// rebind moves an existing member onto a new connection.
func (r *Room) rebind(u *User, c *Client, profile Profile) {
	old := u.client.ID
	delete(r.users, old)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == old })
	u.client = c
	u.Profile = profile
	r.users[c.ID] = u
	r.order = append(r.order, c.ID)
}

func (r *Room) remove(clientID string) (*User, bool) {
	u, ok := r.users[clientID]
	if !ok {
		return nil, false
	}
	delete(r.users, clientID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == clientID })
	if cur, ok := r.usersByID[u.Profile.ID]; ok && cur == u {
		delete(r.usersByID, u.Profile.ID)
	}
	return u, true
}

func (r *Room) markJoined(s UserSnapshot) {
	if _, ok := r.joined[s.ID]; !ok {
		r.joinedOrder = append(r.joinedOrder, s.ID)
	}
	r.joined[s.ID] = s
	r.dropLeft(s.ID)
}

func (r *Room) markLeft(id string) {
	if _, ok := r.left[id]; !ok {
		r.left[id] = struct{}{}
		r.leftOrder = append(r.leftOrder, id)
	}
	if _, ok := r.joined[id]; ok {
		delete(r.joined, id)
		r.joinedOrder = slices.DeleteFunc(r.joinedOrder, func(v string) bool { return v == id })
	}
}

func (r *Room) dropLeft(id string) {
	if _, ok := r.left[id]; ok {
		delete(r.left, id)
		r.leftOrder = slices.DeleteFunc(r.leftOrder, func(v string) bool { return v == id })
	}
}

func (r *Room) clearDiff() {
	clear(r.joined)
	clear(r.left)
	r.joinedOrder = nil
	r.leftOrder = nil
}

// broadcast notifies every member accepted by keep; nil keeps everyone.
func (r *Room) broadcast(notification string, data any, keep func(*User) bool) {
	for _, cid := range r.order {
		u := r.users[cid]
		if keep != nil && !keep(u) {
			continue
		}
		u.notify(notification, data)
	}
}
