package main

import (
	"garimpo/cmd/cmd"
	"garimpo/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
