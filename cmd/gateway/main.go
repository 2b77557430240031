package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"realchat/global"
	"realchat/logger"
	"realchat/module/chat/store"
	"realchat/module/user"
	"realchat/service/chat"
	"realchat/service/mgo"
	"realchat/tools/security"
)

func main() {
	global.ConfigIds()
	global.ConfigRedis()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := global.ConfigMgo(ctx); err != nil {
		logger.Errorf("[boot] mongo init failed: %v", err)
		return
	}

	st := store.NewMongo(mgo.GetDB())
	if err := store.EnsureIndexes(ctx, mgo.GetDB()); err != nil {
		logger.Errorf("[boot] index ensure failed: %v", err)
		return
	}

	resolver := user.NewResolver(st.Users, security.DefaultOptions(global.GetJwtSecret()))
	srv := chat.NewServer(global.GatewayID(), st, resolver)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/chat", srv.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "gateway": global.GatewayID()})
	})

	logger.Infof("[boot] gateway %s listening on %s", global.GatewayID(), global.ListenAddr())
	if err := r.Run(global.ListenAddr()); err != nil {
		logger.Errorf("[boot] server exited: %v", err)
	}
}
