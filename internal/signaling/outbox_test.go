package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func popString(t *testing.T, o *outbox) string {
	t.Helper()
	frame, ok := o.Pop()
	require.True(t, ok, "Pop returned ok=false")
	return string(frame)
}

func TestOutbox_FIFOWithinBudget(t *testing.T) {
	o := newOutbox(10)

	require.NoError(t, o.Push([]byte("abcd")))
	require.NoError(t, o.Push([]byte("efgh")))
	require.ErrorIs(t, o.Push([]byte("ijk")), ErrSendQueueFull)

	require.Equal(t, "abcd", popString(t, o))
	require.Equal(t, "efgh", popString(t, o))

	require.NoError(t, o.Push([]byte("ijk")), "push after drain")
}

func TestOutbox_CloseDrainsThenStops(t *testing.T) {
	o := newOutbox(100)
	_ = o.Push([]byte("a"))
	_ = o.Push([]byte("b"))
	o.Close()

	require.ErrorIs(t, o.Push([]byte("c")), ErrConnectionClosed)
	require.Equal(t, "a", popString(t, o))
	require.Equal(t, "b", popString(t, o))
	_, ok := o.Pop()
	require.False(t, ok, "Pop after drain")
}

func TestOutbox_PopBlocksUntilPush(t *testing.T) {
	o := newOutbox(100)
	got := make(chan string, 1)
	go func() {
		frame, _ := o.Pop()
		got <- string(frame)
	}()

	select {
	case v := <-got:
		require.Fail(t, "Pop returned before any push", "frame=%q", v)
	case <-time.After(20 * time.Millisecond):
	}

	_ = o.Push([]byte("late"))
	select {
	case v := <-got:
		require.Equal(t, "late", v)
	case <-time.After(time.Second):
		require.Fail(t, "Pop did not wake after push")
	}
}

func TestOutbox_CloseWakesBlockedPop(t *testing.T) {
	o := newOutbox(100)
	done := make(chan bool, 1)
	go func() {
		_, ok := o.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	o.Close()

	select {
	case ok := <-done:
		require.False(t, ok, "Pop after Close")
	case <-time.After(time.Second):
		require.Fail(t, "Close did not wake blocked Pop")
	}
}

func TestOutbox_Discard(t *testing.T) {
	o := newOutbox(4)
	_ = o.Push([]byte("abcd"))
	o.Discard()
	require.Equal(t, 0, o.Len())
	require.NoError(t, o.Push([]byte("efgh")), "push after discard")
}
