package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"realchat/module/chat/model"
	"realchat/module/chat/store"
	"realchat/module/user"
	"realchat/tools/ids"
	"realchat/tools/security"
)

const frameWait = 2 * time.Second

func newTestServer() (*Server, *store.Stores) {
	st := newMemStores()
	resolver := user.NewResolver(st.Users, security.DefaultOptions([]byte("test-secret")))
	return NewServer("gw-test", st, resolver), st
}

func seedUser(st *store.Stores, id, name string) {
	st.Users.(*memUsers).put(&model.User{
		UserID:     id,
		Name:       name,
		CreateTime: time.Now(),
	})
}

func makeFriends(t *testing.T, st *store.Stores, a, b string) {
	t.Helper()
	require.NoError(t, st.Users.AddFriend(context.Background(), a, b))
	require.NoError(t, st.Users.AddFriend(context.Background(), b, a))
}

// connect registers a live connection for userID without a real websocket;
// the outbound queue is inspected directly.
func connect(s *Server, userID string) *Client {
	c := NewClient("conn-"+ids.GenerateString(), userID, nil)
	s.register(c)
	return c
}

func raw(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

// await reads the client's outbound queue until a frame with the wanted
// event arrives, skipping unrelated frames (presence snapshots etc.).
func await(t *testing.T, c *Client, event string) json.RawMessage {
	t.Helper()
	deadline := time.After(frameWait)
	for {
		select {
		case data := <-c.Send:
			var f Frame
			require.NoError(t, json.Unmarshal(data, &f))
			if f.Event == event {
				return f.Data
			}
		case <-deadline:
			t.Fatalf("no %q frame within %v", event, frameWait)
			return nil
		}
	}
}

// awaitNone asserts no frame with the given event is queued right now.
func awaitNone(t *testing.T, c *Client, event string) {
	t.Helper()
	for {
		select {
		case data := <-c.Send:
			var f Frame
			require.NoError(t, json.Unmarshal(data, &f))
			require.NotEqual(t, event, f.Event)
		default:
			return
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

type threadFrame struct {
	ConversationID string           `json:"conversationId"`
	GroupID        string           `json:"groupId"`
	Messages       []*model.Message `json:"messages"`
}

func decodeThread(t *testing.T, data json.RawMessage) threadFrame {
	t.Helper()
	var tf threadFrame
	require.NoError(t, json.Unmarshal(data, &tf))
	return tf
}
