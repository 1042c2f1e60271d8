package log

import (
	"os"

	"github.com/pagestreamhq/pagestream/utils"
	"github.com/pagestreamhq/pagestream/utils/flag"
	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()

	// JSON output in production for log collectors, plain text everywhere else
	// for readability.
	if utils.IsProdEnv() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger.SetOutput(os.Stderr)

	Log = logger.WithFields(
		logrus.Fields{"service": *flag.ServiceName, "is_development": !utils.IsProdEnv()},
	)
}
