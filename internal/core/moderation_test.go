package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func viewer(id any) map[string]any {
	return map[string]any{"viewerId": id}
}

func TestModerationPermissions(t *testing.T) {
	r := newTestRegistry(t, nil)
	rc := seedRoom(t, r)
	stranger := connect(t, r, "r1", "s")

	tests := []struct {
		name   string
		client *Client
		action string
		target any
		want   *Error
	}{
		{"viewer cannot mute", rc.viewer, ActionMute, "4", ErrNotAllowed},
		{"stranger cannot mute", stranger, ActionMute, "3", ErrAuth},
		{"admin cannot be muted", rc.broadcaster, ActionMute, "2", ErrAdminMute},
		{"admin cannot be unmuted", rc.admin, ActionUnmute, "2", ErrAdminUnmute},
		{"unknown viewer", rc.admin, ActionMute, "404", ErrViewerNotFound},
		{"admin cannot make admins", rc.admin, ActionMakeAdmin, "3", ErrNotAllowed},
		{"admin cannot demote", rc.admin, ActionMakeViewer, "2", ErrNotAllowed},
		{"broadcaster promotes unknown", rc.broadcaster, ActionMakeAdmin, "404", ErrViewerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := act(t, r, tt.client, tt.action, mustParams(t, viewer(tt.target)))
			require.Equal(t, tt.want, res.Err())
		})
	}
}

func TestMakeAdminAndViewer(t *testing.T) {
	r := newTestRegistry(t, nil)
	rc := seedRoom(t, r)

	res := act(t, r, rc.broadcaster, ActionMakeAdmin, mustParams(t, viewer(3)))
	require.False(t, res.HasReply())

	// The promoted viewer now hears muted senders.
	send(t, r, rc.muted, MessagePublic, "psst", nil)
	mustNotification(t, rc.viewer, NotificationMessageDelivered)

	res = act(t, r, rc.viewer, ActionMute, mustParams(t, viewer(4)))
	require.False(t, res.HasReply())

	res = act(t, r, rc.broadcaster, ActionMakeViewer, mustParams(t, viewer(3)))
	require.False(t, res.HasReply())
	onLoop(t, r, func() {
		room, _ := r.room("r1")
		u, _ := room.ByExternalID("3")
		require.Equal(t, RoleViewer, u.Profile.Role)
	})
}
