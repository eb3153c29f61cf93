package services

import "context"

// AIClient is the narrow reasoning-and-embedding surface the engine depends
// on. Production wiring passes internal/platform/openai.Client; tests pass
// scripted fakes. One GenerateText call per logical decision, one batched
// Embed call per profile refresh.
type AIClient interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
