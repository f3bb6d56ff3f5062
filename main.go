package main

import (
	"log"

	"github.com/joho/godotenv"

	"finanzamt/cmd"
	"finanzamt/internal/config"
	"finanzamt/internal/logger"
)

func main() {
	// A missing .env file is fine; the environment may be set externally.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	cmd.Execute()
}
