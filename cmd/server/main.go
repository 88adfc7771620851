package main

import (
	"github.com/trellis-ai/trellis/backend/internal/server"
	"github.com/trellis-ai/trellis/backend/internal/util"
	"github.com/trellis-ai/trellis/backend/pkg/logger"
	"github.com/trellis-ai/trellis/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
