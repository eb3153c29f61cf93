package app

import (
	"context"
	"fmt"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/platform/neo4jdb"
	"github.com/kindredlabs/kindred-backend/internal/platform/openai"
	"github.com/kindredlabs/kindred-backend/internal/platform/redisbus"
)

type Clients struct {
	OpenAI openai.Client
	Neo4j  *neo4jdb.Client
	Bus    *redisbus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("wiring clients")

	// OpenAI is mandatory: extraction, scoring, and drafting all run
	// through it.
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("openai client: %w", err)
	}

	// Neo4j is optional; without it similarity runs on the relational
	// fallback alone.
	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("neo4j client: %w", err)
	}

	// Redis is optional; without it deliveries are logged instead of
	// published.
	bus, err := redisbus.NewBusFromEnv(log)
	if err != nil {
		_ = neo.Close(context.Background())
		return Clients{}, fmt.Errorf("redis delivery bus: %w", err)
	}

	return Clients{
		OpenAI: openaiClient,
		Neo4j:  neo,
		Bus:    bus,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(context.Background())
	}
}
