// Command outboxtail subscribes to the outbound delivery channel and prints
// every message the engine publishes. It is a development aid for watching
// what a chat adapter would receive; it performs no delivery of its own.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/platform/redisbus"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	bus, err := redisbus.NewBusFromEnv(log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if bus == nil {
		log.Error("REDIS_ADDR not set; nothing to tail")
		os.Exit(1)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bus.StartForwarder(ctx, func(m redisbus.Message) {
		fmt.Printf("%s  member=%s  %s\n", m.SentAt.Format("15:04:05"), m.MemberID, m.Text)
	}); err != nil {
		log.Error("failed to start forwarder", "error", err)
		os.Exit(1)
	}

	log.Info("tailing outbound messages; Ctrl-C to stop")
	<-ctx.Done()
}
