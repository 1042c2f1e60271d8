package main

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pagestreamhq/pagestream/cache"
	"github.com/pagestreamhq/pagestream/notifier"
	"github.com/pagestreamhq/pagestream/push"
	"github.com/pagestreamhq/pagestream/server"
	"github.com/pagestreamhq/pagestream/server/middlewares"
	"github.com/pagestreamhq/pagestream/utils"
	"github.com/pagestreamhq/pagestream/utils/dotenv"
	Flag "github.com/pagestreamhq/pagestream/utils/flag"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

func main() {
	Flag.ParseFlags()
	Logger.InitLogger()

	if err := dotenv.LoadDotEnvs(); err != nil {
		Logger.Log.Fatal("fail to load env : ", err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		Logger.Log.Fatal("fail to connect database : ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	recentCache, err := cache.NewRecentStore(context.Background())
	if err != nil {
		Logger.Log.Fatal("fail to connect redis : ", err)
	}

	hub := push.NewHub()
	api := server.New(db, recentCache)
	webhooks := notifier.New(db, recentCache, hub)

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Internal webhooks posted by the workers. Not exposed to end users.
	internal := router.Group("/api/v1")
	internal.Use(middlewares.InternalOnly())
	webhooks.AddWebhookRoutes(internal)

	authed := router.Group("/")
	authed.Use(middlewares.JWT())
	authed.GET("/notifications/latest", api.LatestNotifications)
	authed.DELETE("/notifications/clear", api.ClearNotifications)
	authed.PUT("/api/v1/posts/:id/status", api.UpdatePostStatus)

	router.GET("/ws", push.Handler(hub))

	Logger.Log.Info("api server starts up")
	router.Run(":8080")
}
