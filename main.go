package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"reelforge/internal/config"
	"reelforge/ui"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration failed")
	}

	server := ui.NewServer(cfg, log)
	if err := server.Run(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
