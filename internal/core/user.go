package core

// Roles carried in the signed profile.
const (
	RoleBroadcaster  = "broadcaster"
	RoleViewer       = "viewer"
	RoleAdmin        = "admin"
	RoleMobileViewer = "mobileViewer"
)

// GuestID is the anonymous identity. It is never indexed by external id.
const GuestID = "Guest"

// Profile holds the externally signed user fields.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	RoleID    string `json:"role_id"`
	Gender    string `json:"gender"`
	ImagePath string `json:"_userImagePath"`
}

// UserSnapshot is the public view of a user sent to other members.
type UserSnapshot struct {
	Profile
	Muted     bool   `json:"muted"`
	ClientUID string `json:"clientUid"`
}

// User is a joined member of a room.
type User struct {
	Profile Profile

	client      *Client
	mute        bool
	inPrivate   bool
	tipInFlight bool
}

func newUser(c *Client, profile Profile, muted bool) *User {
	return &User{Profile: profile, client: c, mute: muted}
}

// Client returns the connection the user is currently bound to.
func (u *User) Client() *Client {
	return u.client
}

// Muted reports whether the user's messages reach admins only.
func (u *User) Muted() bool {
	return u.mute
}

// InPrivate reports whether the user takes part in the current private show.
func (u *User) InPrivate() bool {
	return u.inPrivate
}

// Snapshot returns the user's public view.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{Profile: u.Profile, Muted: u.mute, ClientUID: u.client.ID}
}

func (u *User) isAdmin() bool {
	return u.Profile.Role == RoleAdmin
}

func (u *User) isBroadcaster() bool {
	return u.Profile.Role == RoleBroadcaster
}

func (u *User) notify(notification string, data any) {
	u.client.Notify(notification, data)
}
