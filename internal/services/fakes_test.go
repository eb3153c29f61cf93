package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// fakeAI returns scripted GenerateText responses in FIFO order and
// deterministic embeddings, overridable per text.
type fakeAI struct {
	mu        sync.Mutex
	responses []string
	textErr   error
	textCalls int
	embeds    map[string][]float32
	embedErr  error
}

func newFakeAI() *fakeAI {
	return &fakeAI{embeds: map[string][]float32{}}
}

func (f *fakeAI) queue(responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, responses...)
}

func (f *fakeAI) setEmbedding(text string, vec []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds[text] = vec
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls
}

func (f *fakeAI) GenerateText(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeAI: no scripted response left")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		if vec, ok := f.embeds[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = hashVec(text)
	}
	return out, nil
}

// hashVec derives a stable 3-dim vector from text so unscripted embeddings
// stay deterministic and dimension-consistent across a test.
func hashVec(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	return []float32{
		0.05 + float32(seed%97)/97,
		0.05 + float32(seed%89)/89,
		0.05 + float32(seed%83)/83,
	}
}

type delivery struct {
	memberID uuid.UUID
	text     string
}

// fakeDeliverer records deliveries and can be told to fail.
type fakeDeliverer struct {
	mu   sync.Mutex
	sent []delivery
	err  error
}

func (f *fakeDeliverer) Deliver(_ context.Context, memberID uuid.UUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, delivery{memberID: memberID, text: text})
	return nil
}

func (f *fakeDeliverer) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDeliverer) deliveredTo(memberID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, d := range f.sent {
		if d.memberID == memberID {
			texts = append(texts, d.text)
		}
	}
	return texts
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
