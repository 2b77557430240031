package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realchat/tools/errs"
)

func TestFanoutDeliversToOnlineRecipientsOnly(t *testing.T) {
	r := NewConnRegistry()
	online := NewClient("c1", "u1", nil)
	r.Add(online)

	built := make(chan string, 4)
	f := NewFanout(r, 2, 16)
	f.Push([]string{"u1", "offline"}, func(uid string) [][]byte {
		built <- uid
		return [][]byte{BuildFrame(EvMessage, map[string]any{"for": uid})}
	})

	select {
	case data := <-online.Send:
		var fr Frame
		require.NoError(t, json.Unmarshal(data, &fr))
		assert.Equal(t, EvMessage, fr.Event)
	case <-time.After(frameWait):
		t.Fatal("online recipient got nothing")
	}

	// The builder never ran for the offline user.
	assert.Equal(t, "u1", <-built)
	select {
	case uid := <-built:
		t.Fatalf("builder ran for %q", uid)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanoutDeliversToAllConnectionsOfAUser(t *testing.T) {
	r := NewConnRegistry()
	phone := NewClient("c1", "u1", nil)
	laptop := NewClient("c2", "u1", nil)
	r.Add(phone)
	r.Add(laptop)

	f := NewFanout(r, 1, 16)
	f.Push([]string{"u1"}, func(uid string) [][]byte {
		return [][]byte{BuildFrame(EvMessage, "payload")}
	})

	for _, c := range []*Client{phone, laptop} {
		select {
		case <-c.Send:
		case <-time.After(frameWait):
			t.Fatalf("connection %s got nothing", c.ConnID)
		}
	}
}

func TestFanoutIgnoresEmptyJobs(t *testing.T) {
	f := NewFanout(NewConnRegistry(), 1, 1)
	f.Push(nil, func(string) [][]byte { return nil })
	f.Push([]string{"u1"}, nil)
}

func TestDispatcherRoutesAndRejectsUnknown(t *testing.T) {
	d := NewDispatcher()
	called := ""
	d.Register("ping", func(_ context.Context, _ *Client, data json.RawMessage) error {
		called = string(data)
		return nil
	})

	c := NewClient("c1", "u1", nil)
	err := d.Dispatch(context.Background(), c, &Frame{Event: "ping", Data: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, called)

	err = d.Dispatch(context.Background(), c, &Frame{Event: "nope"})
	require.ErrorIs(t, err, errs.ErrBadPayload)
}

func TestClientPushDropsWhenQueueFull(t *testing.T) {
	c := NewClient("c1", "u1", nil)
	for i := 0; i < sendQueue; i++ {
		c.Push([]byte("x"))
	}
	// queue is full; this must not block
	done := make(chan struct{})
	go func() {
		c.Push([]byte("overflow"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(frameWait):
		t.Fatal("Push blocked on a full queue")
	}
}
