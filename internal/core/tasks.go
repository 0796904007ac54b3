package core

import (
	"context"
	"time"
)

// every runs pass, then waits interval before the next one. A slow pass
// delays the following one instead of overlapping it.
func (r *Registry) every(ctx context.Context, interval time.Duration, pass func(context.Context)) {
	if interval <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(interval):
		}
		pass(ctx)
	}
}

// diffPass flushes pending user list changes one room per loop turn, so
// other work interleaves between rooms.
func (r *Registry) diffPass(ctx context.Context) {
	var ids []string
	if err := r.do(ctx, func() {
		for id, room := range r.rooms {
			if room.HasDiff() {
				ids = append(ids, id)
			}
		}
	}); err != nil {
		return
	}
	for _, id := range ids {
		if err := r.do(ctx, func() { r.flushRoomDiff(id) }); err != nil {
			return
		}
	}
}

// flushRoomDiff sends one consolidated user-list-change to every member
// and clears the pending diffs.
func (r *Registry) flushRoomDiff(id string) {
	room, ok := r.room(id)
	if !ok || !room.HasDiff() {
		return
	}
	change := UserListChange{
		JoinedUsers:   room.Joined(),
		LeftUsers:     room.Left(),
		NumberOfUsers: room.Len(),
	}
	room.broadcast(NotificationUserListChanged, change, nil)
	room.clearDiff()
}

func (r *Registry) reapPass(ctx context.Context) {
	_ = r.do(ctx, r.reapEmptyRooms)
}

// reapEmptyRooms deletes rooms nobody has joined and their connection
// index entries.
func (r *Registry) reapEmptyRooms() {
	for _, room := range r.rooms {
		if room.Empty() {
			r.dropRoom(room)
		}
	}
}
