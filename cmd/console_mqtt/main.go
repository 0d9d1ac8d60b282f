package main

import (
	"log"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

func main() {
	log.Println("starting ringdrop console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("ring_config.txt", false); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if config.Get().MQTTBroker == "" {
		log.Fatalf("MQTT_BROKER is not set")
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
