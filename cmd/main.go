package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moonyandfriends/badbot-discord-automod/internal/bootstrap"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
)

func main() {
	fmt.Println("Starting BadBot AutoMod enforcement bot")

	b := bootstrap.New()

	if err := b.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Start failed: %v\n", err)
		os.Exit(1)
	}

	logging.Info("All components started successfully")

	waitForShutdown()

	if err := b.Shutdown(); err != nil {
		logging.Error("Shutdown error: %v", err)
	}

	logging.Info("Shutdown complete")
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
