// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/ringdrop/internal/app"
	"github.com/relabs-tech/ringdrop/internal/config"
)

func main() {
	log.Println("starting ringdrop web dashboard (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("ring_config.txt", false); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if config.Get().MQTTBroker == "" {
		log.Fatalf("MQTT_BROKER is not set; the dashboard has nothing to follow")
	}

	if err := app.RunWeb(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
