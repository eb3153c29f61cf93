package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/match"
	"github.com/kindredlabs/kindred-backend/internal/domain/profile"
)

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, status types.MemberStatus) *types.Member {
	tb.Helper()
	m := &types.Member{
		ID:       uuid.New(),
		Platform: "test",
		Handle:   uuid.NewString(),
		Status:   status,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedPersona(tb testing.TB, ctx context.Context, tx *gorm.DB, memberID uuid.UUID, text string, embedding []float32) *types.PersonaProfile {
	tb.Helper()
	raw, err := profile.EncodeEmbedding(embedding)
	if err != nil {
		tb.Fatalf("encode embedding: %v", err)
	}
	p := &types.PersonaProfile{
		ID:        uuid.New(),
		MemberID:  memberID,
		Text:      text,
		Embedding: raw,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedPreference(tb testing.TB, ctx context.Context, tx *gorm.DB, memberID uuid.UUID, text string, embedding []float32) *types.ConnectionPreference {
	tb.Helper()
	raw, err := profile.EncodeEmbedding(embedding)
	if err != nil {
		tb.Fatalf("encode embedding: %v", err)
	}
	p := &types.ConnectionPreference{
		ID:        uuid.New(),
		MemberID:  memberID,
		Text:      text,
		Embedding: raw,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed preference: %v", err)
	}
	return p
}

// SeedMatchPair inserts both directed rows for a logical match and returns
// them in (a, b) order.
func SeedMatchPair(tb testing.TB, ctx context.Context, tx *gorm.DB, a, b uuid.UUID, status types.MatchStatus) (*types.MatchRecord, *types.MatchRecord) {
	tb.Helper()
	rowA := &types.MatchRecord{
		ID:            uuid.New(),
		PairKey:       match.PairKey(a, b),
		MemberID:      a,
		CounterpartID: b,
		InitiatorID:   a,
		Score:         75,
		Reasoning:     "seeded",
		Status:        status,
	}
	rowB := rowA.Mirror("")
	if err := tx.WithContext(ctx).Create(rowA).Error; err != nil {
		tb.Fatalf("seed match row a: %v", err)
	}
	if err := tx.WithContext(ctx).Create(rowB).Error; err != nil {
		tb.Fatalf("seed match row b: %v", err)
	}
	return rowA, rowB
}

func SeedProposalSend(tb testing.TB, ctx context.Context, tx *gorm.DB, memberID uuid.UUID, tier types.QuotaTier, sentAt time.Time) *types.ProposalSend {
	tb.Helper()
	s := &types.ProposalSend{
		ID:       uuid.New(),
		MemberID: memberID,
		Tier:     tier,
		SentAt:   sentAt,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed proposal send: %v", err)
	}
	return s
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
