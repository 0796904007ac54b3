package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientNotifyDropsWhenFull(t *testing.T) {
	c := NewClient("c")
	for range cap(c.events) + 10 {
		c.Notify(NotificationTitleChanged, nil)
	}
	require.Len(t, c.events, cap(c.events))
}

func TestClientClosedRejectsEvents(t *testing.T) {
	c := NewClient("c")
	c.Close(true)
	c.Close(false)

	require.True(t, c.Silent())
	require.False(t, c.Send(&Event{Kind: EventReply}))
	c.Notify(NotificationTitleChanged, nil)
	require.Empty(t, c.events)
}
