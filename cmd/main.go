/*
 * This file is part of AgriVoice ASR Bench (https://github.com/agrivoice/asr-bench).
 * Copyright (C) 2025 AgriVoice Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrivoice/asr-bench/internal/config"
	"github.com/agrivoice/asr-bench/internal/logging"
	"github.com/agrivoice/asr-bench/internal/messaging"
	"github.com/agrivoice/asr-bench/internal/server"
	"github.com/agrivoice/asr-bench/internal/storage"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	components := server.Components{}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Server.DBPath})
	if err != nil {
		logging.LogError(err, "Failed to open attempts database")
		log.Fatalf("Failed to open attempts database: %v", err)
	}
	defer func() { _ = db.Close() }()
	components.Store = storage.NewAttemptsStore(db)

	// NATS is optional; leave the URL empty to run standalone
	if cfg.NATS.URL != "" {
		publisher := messaging.NewPublisher(cfg.NATS)
		if err := publisher.Connect(); err != nil {
			logging.LogError(err, "Failed to connect to NATS, events disabled")
		} else {
			defer publisher.Close()
			components.Publisher = publisher
		}
	}

	srv := server.NewWithComponents(cfg, components)

	logging.Sugar.Infow("🚀 asr-bench starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"db_path", cfg.Server.DBPath,
		"asr_url", cfg.ASR.URL,
		"nats_enabled", components.Publisher != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Sugar.Infow("Received shutdown signal", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Shutdown failed")
		}
	case err := <-errCh:
		if err != nil {
			logging.LogError(err, "Failed to start server")
			log.Fatalf("Failed to start server: %v", err)
		}
	}
}
