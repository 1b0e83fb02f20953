package main

import (
	"github.com/textgraph-ai/textgraph/internal/server"
	"github.com/textgraph-ai/textgraph/internal/util"
	"github.com/textgraph-ai/textgraph/pkg/logger"
	"github.com/textgraph-ai/textgraph/pkg/logger/console"

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
