package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/pagestreamhq/pagestream/facebook"
	"github.com/pagestreamhq/pagestream/ingestor"
	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/queue"
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

	publisher, err := queue.NewAMQPPublisher(os.Getenv("AMQP_URL"))
	if err != nil {
		Logger.Log.Fatal("fail to connect to broker : ", err)
	}
	defer publisher.Close()

	client := facebook.NewClient(facebook.DefaultTimeout)

	scheduler := ingestor.NewScheduler(context.Background(), map[protocol.Kind]ingestor.Doer{
		protocol.KindPosts:    ingestor.NewPostsDoer(client, publisher),
		protocol.KindComments: ingestor.NewCommentsDoer(client, publisher),
	}, ingestor.DefaultPoolSize)
	defer scheduler.Shutdown()

	router := gin.Default()

	// Debug route for testing and health check.
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	ingestor.AddSchedulerRoutes(router.Group("/scheduler"), scheduler)

	Logger.Log.Info("===== Ingestor Started =====")
	router.Run(":6060")
}
