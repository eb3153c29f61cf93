package app

import (
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/platform/neo4jdb"
)

type IndexProvider string

const (
	IndexProviderNeo4j IndexProvider = "neo4j"
	IndexProviderSQL   IndexProvider = "sql"
)

type IndexSetup struct {
	Primary IndexProvider
	// Source records why this provider was chosen, for boot logs.
	Source string
}

// resolveIndexSetup picks the primary similarity index. Neo4j serves when a
// client is configured; otherwise the relational scan is the only index and
// there is no second fallback behind it.
func resolveIndexSetup(neo *neo4jdb.Client) IndexSetup {
	if neo != nil {
		return IndexSetup{Primary: IndexProviderNeo4j, Source: "neo4j_env"}
	}
	return IndexSetup{Primary: IndexProviderSQL, Source: "neo4j_unconfigured"}
}

// wireIndexes builds the candidate indexes for the resolved setup. writable
// holds the indexes profile refreshes must sync into; the relational index
// reads the profile rows directly and needs no sync.
func wireIndexes(db *gorm.DB, log *logger.Logger, neo *neo4jdb.Client, dims int) (primary, fallback graph.CandidateIndex, writable []graph.CandidateIndex) {
	setup := resolveIndexSetup(neo)
	relational := graph.NewFallbackIndex(db, log)

	switch setup.Primary {
	case IndexProviderNeo4j:
		persona := graph.NewPersonaIndex(neo, dims, log)
		log.Info("similarity indexes wired",
			"primary", persona.Name(), "fallback", relational.Name(), "source", setup.Source)
		return persona, relational, []graph.CandidateIndex{persona}
	default:
		log.Info("similarity indexes wired",
			"primary", relational.Name(), "source", setup.Source)
		return relational, nil, nil
	}
}
