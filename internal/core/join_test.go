package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinWithoutConnectClosesSilently(t *testing.T) {
	r := newTestRegistry(t, nil)
	c := NewClient("c1")

	res := act(t, r, c, ActionJoin, signedJoin(profile("1", RoleBroadcaster), "false"))
	require.False(t, res.HasReply())

	select {
	case <-c.Done():
	default:
		t.Fatal("client should be closed")
	}
	require.True(t, c.Silent())
}

func TestJoinRejectsTamperedDigest(t *testing.T) {
	r := newTestRegistry(t, nil)
	c := connect(t, r, "r1", "c1")

	raw := signedJoin(profile("1", RoleBroadcaster), "false")
	var p JoinParams
	require.NoError(t, decodeParams(raw, &p))
	p.Role = RoleAdmin
	res := act(t, r, c, ActionJoin, mustParams(t, p))

	require.Equal(t, ErrInvalidParams, res.Err())
	onLoop(t, r, func() {
		room, ok := r.room("r1")
		require.True(t, ok)
		require.True(t, room.Empty())
		require.Empty(t, room.BroadcasterID)
		require.False(t, room.HasDiff())
	})
}

func TestViewerCannotOpenRoomWithoutBroadcaster(t *testing.T) {
	r := newTestRegistry(t, nil)
	c := connect(t, r, "r1", "c1")

	res := act(t, r, c, ActionJoin, signedJoin(profile("2", RoleViewer), "false"))
	require.False(t, res.HasReply())
	require.True(t, c.Silent())

	onLoop(t, r, func() {
		_, indexed := r.byClient["c1"]
		require.False(t, indexed)
	})
	require.NoError(t, r.Close(context.Background(), c))
}

func TestJoinReturnsMemberSnapshot(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))

	viewer := connect(t, r, "r1", "v")
	res := act(t, r, viewer, ActionJoin, signedJoin(profile("2", RoleViewer), "false"))
	require.NoError(t, res.Err())

	reply, ok := res.Data().(JoinReply)
	require.True(t, ok)
	require.Equal(t, "v", reply.ClientUID)
	require.Len(t, reply.UserDataList, 2)
	require.Equal(t, "1", reply.UserDataList[0].ID)
	require.Equal(t, "b", reply.UserDataList[0].ClientUID)
	require.Equal(t, "2", reply.UserDataList[1].ID)
	require.False(t, reply.PrivateRoom)

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		require.Equal(t, "1", room.BroadcasterID)
		require.Equal(t, "user-1", room.BroadcasterName)
	})
}

func TestJoinMutedProfile(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))

	c := connect(t, r, "r1", "v")
	res := act(t, r, c, ActionJoin, signedJoin(profile("2", RoleViewer), "true"))
	reply := res.Data().(JoinReply)
	require.True(t, reply.UserDataList[1].Muted)
}

func TestRejoinReusesUser(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))
	first := joinAs(t, r, "r1", "v1", profile("2", RoleViewer))

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		u, _ := room.ByExternalID("2")
		u.mute = true
	})

	renamed := profile("2", RoleViewer)
	renamed.Name = "renamed"
	second := connect(t, r, "r1", "v2")
	res := act(t, r, second, ActionJoin, signedJoin(renamed, "false"))
	reply := res.Data().(JoinReply)
	require.Len(t, reply.UserDataList, 2)

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		u, ok := room.ByExternalID("2")
		require.True(t, ok)
		require.Equal(t, "renamed", u.Profile.Name)
		require.Same(t, second, u.Client())
		require.True(t, u.Muted())
		_, old := room.Member(first.ID)
		require.False(t, old)
	})

	// The superseded connection leaving must not evict the user.
	require.NoError(t, r.Close(context.Background(), first))
	onLoop(t, r, func() {
		room, _ := r.room("r1")
		_, ok := room.ByExternalID("2")
		require.True(t, ok)
		require.Equal(t, 2, room.Len())
	})
}

func TestGuestsAreNotIndexed(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))
	joinAs(t, r, "r1", "g1", profile(GuestID, RoleViewer))
	joinAs(t, r, "r1", "g2", profile(GuestID, RoleViewer))

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		require.Equal(t, 3, room.Len())
		_, ok := room.ByExternalID(GuestID)
		require.False(t, ok)
		for _, s := range room.Joined() {
			require.NotEqual(t, GuestID, s.ID)
		}
	})
}

func TestCloseMovesJoinedToLeft(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))
	v := joinAs(t, r, "r1", "v", profile("2", RoleViewer))

	require.NoError(t, r.Close(context.Background(), v))

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		require.Equal(t, []string{"2"}, room.Left())
		for _, s := range room.Joined() {
			require.NotEqual(t, "2", s.ID)
		}
		_, ok := room.ByExternalID("2")
		require.False(t, ok)
	})
}

func TestRejoinAfterLeaveClearsLeftDiff(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))
	v := joinAs(t, r, "r1", "v", profile("2", RoleViewer))
	require.NoError(t, r.Close(context.Background(), v))
	joinAs(t, r, "r1", "v2", profile("2", RoleViewer))

	onLoop(t, r, func() {
		room, _ := r.room("r1")
		require.Empty(t, room.Left())
	})
}

func TestLastCloseDeletesRoom(t *testing.T) {
	r := newTestRegistry(t, nil)
	b := joinAs(t, r, "r1", "b", profile("1", RoleBroadcaster))
	pending := connect(t, r, "r1", "p")

	require.NoError(t, r.Close(context.Background(), b))

	st, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Empty(t, st.RoomIDs)
	onLoop(t, r, func() {
		_, indexed := r.byClient[pending.ID]
		require.False(t, indexed)
	})
}

func TestReloadRaceClosesSocketOfDeletedRoom(t *testing.T) {
	r := newTestRegistry(t, nil)
	broadcaster := profile("1", RoleBroadcaster)
	old := joinAs(t, r, "r1", "old", broadcaster)
	reloaded := connect(t, r, "r1", "new")

	require.NoError(t, r.Close(context.Background(), old))

	// The room went away with its last member, taking the pending
	// connection's index with it.
	res := act(t, r, reloaded, ActionJoin, signedJoin(broadcaster, "false"))
	require.False(t, res.HasReply())
	select {
	case <-reloaded.Done():
	default:
		t.Fatal("socket of a deleted room must be closed")
	}
	require.True(t, reloaded.Silent())

	// A fresh connection recreates the room.
	joinAs(t, r, "r1", "retry", broadcaster)
	st, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, st.RoomIDs)
	require.Equal(t, 1, st.NumberOfUsers)
}

func TestStats(t *testing.T) {
	r := newTestRegistry(t, nil)
	joinAs(t, r, "r1", "b1", profile("1", RoleBroadcaster))
	joinAs(t, r, "r1", "v1", profile("2", RoleViewer))
	joinAs(t, r, "r2", "b2", profile("3", RoleBroadcaster))

	st, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, st.NumberOfUsers)
	require.ElementsMatch(t, []string{"r1", "r2"}, st.RoomIDs)
}

func TestConnectRequiresRoomID(t *testing.T) {
	r := newTestRegistry(t, nil)
	err := r.Connect(context.Background(), NewClient("c"), ConnectParams{})
	require.ErrorIs(t, err, ErrInvalidParams)
}
