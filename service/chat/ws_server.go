package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"realchat/logger"
	"realchat/tools/ids"
	"realchat/tools/safe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	authTimeout  = 5 * time.Second
	eventTimeout = 10 * time.Second
)

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// HandleWS is the per-connection entry point. Authentication happens
// before the upgrade: a connection that fails it is refused outright and
// never joins the presence registry.
func (s *Server) HandleWS(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), authTimeout)
	defer cancel()

	ident, err := s.resolver.Resolve(ctx, bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid credential"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[gateway] upgrade failed user=%s err=%v", ident.UserID, err)
		return
	}

	client := NewClient(ids.GenerateString(), ident.UserID, ws)
	s.register(client)
	go client.WritePump()
	logger.Infof("[gateway] connected user=%s conn=%s", client.UserID, client.ConnID)

	defer func() {
		s.unregister(client)
		_ = ws.Close()
		logger.Infof("[gateway] disconnected user=%s conn=%s", client.UserID, client.ConnID)
	}()

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("[gateway] peer closed")
			} else {
				logger.Infof("[gateway] read err user=%s err=%v", client.UserID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			client.Push(BuildErrorFrame("", perr))
			continue
		}

		// One task per inbound event; tasks run concurrently across
		// sessions and are ordered only by per-document store atomicity.
		safe.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			if err := s.disp.Dispatch(ctx, client, frame); err != nil {
				client.Push(BuildErrorFrame(frame.Event, err))
			}
		})
	}
}
