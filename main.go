package main

import (
	"log"
	"os"

	"showconsole/cmd"
	"showconsole/internal/conf"
	"showconsole/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		log.Fatalf("error loading settings: %v", err)
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		os.Exit(1)
	}
}
