package main

import (
	"context"
	"os"
	"time"

	"github.com/pagestreamhq/pagestream/queue"
	"github.com/pagestreamhq/pagestream/utils"
	"github.com/pagestreamhq/pagestream/utils/dotenv"
	Flag "github.com/pagestreamhq/pagestream/utils/flag"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
	"github.com/pagestreamhq/pagestream/worker"
)

const consumerRetryDelay = 3 * time.Second

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

	subscriber, err := queue.NewAMQPSubscriber(os.Getenv("AMQP_URL"))
	if err != nil {
		Logger.Log.Fatal("fail to connect to broker : ", err)
	}
	defer subscriber.Close()

	processor := worker.NewProcessor(db, worker.NewNotifierClient())
	handlers := []worker.Handler{
		worker.NewPostsHandler(processor),
		worker.NewCommentsHandler(processor),
		worker.NewInboxesHandler(processor),
	}

	ctx := context.Background()
	for _, h := range handlers {
		go func(h worker.Handler) {
			// Re-enter the consume loop with a small delay whenever the
			// subscription drops; the broker redelivers unacked work.
			for {
				if err := worker.Consume(ctx, subscriber, h); err != nil {
					Logger.Log.Errorf("%s consumer exited with error: %v, retry in %v", h.Kind(), err, consumerRetryDelay)
				}
				time.Sleep(consumerRetryDelay)
			}
		}(h)
	}

	Logger.Log.Info("===== Workers Started =====")
	select {}
}
