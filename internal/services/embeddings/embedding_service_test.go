package embeddings

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// mockLLMService simulates the embedding provider. failEvery > 0 makes every
// n-th call fail to exercise per-item degradation.
type mockLLMService struct {
	dimension int
	failAll   bool
	failEvery int
	calls     int
}

func (m *mockLLMService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.failAll || (m.failEvery > 0 && m.calls%m.failEvery == 0) {
		return nil, fmt.Errorf("provider unavailable")
	}

	// Deterministic non-zero vector derived from the input length.
	vec := make([]float32, m.dimension)
	for i := range vec {
		vec[i] = float32(len(text)%7 + i + 1)
	}
	return vec, nil
}

func (m *mockLLMService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (m *mockLLMService) ChatWithTools(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolDefinition) (*interfaces.ChatResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockLLMService) HealthCheck(ctx context.Context) error {
	if m.failAll {
		return fmt.Errorf("provider unavailable")
	}
	return nil
}

func (m *mockLLMService) GetMode() interfaces.LLMMode { return interfaces.LLMModeCloud }
func (m *mockLLMService) Close() error                { return nil }

func TestEmbed_Success(t *testing.T) {
	svc := NewService(&mockLLMService{dimension: 8}, 8, "test-embed", 0, arbor.NewLogger())

	vec := svc.Embed(context.Background(), "driver's license renewal")

	require.Len(t, vec, 8)
	assert.False(t, interfaces.IsDegraded(vec))
}

func TestEmbed_ProviderFailureYieldsZeroVector(t *testing.T) {
	svc := NewService(&mockLLMService{dimension: 8, failAll: true}, 8, "test-embed", 0, arbor.NewLogger())

	vec := svc.Embed(context.Background(), "some text")

	require.Len(t, vec, 8, "degraded vector must still have the configured dimension")
	assert.True(t, interfaces.IsDegraded(vec))
}

func TestEmbed_DimensionMismatchYieldsZeroVector(t *testing.T) {
	// Provider returns 4-dim vectors but the service is configured for 8.
	svc := NewService(&mockLLMService{dimension: 4}, 8, "test-embed", 0, arbor.NewLogger())

	vec := svc.Embed(context.Background(), "some text")

	require.Len(t, vec, 8)
	assert.True(t, interfaces.IsDegraded(vec))
}

func TestEmbedBatch_PreservesOrderAndLength(t *testing.T) {
	svc := NewService(&mockLLMService{dimension: 4}, 4, "test-embed", 0, arbor.NewLogger())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors := svc.EmbedBatch(context.Background(), texts)

	require.Len(t, vectors, len(texts))
	for i, vec := range vectors {
		assert.Len(t, vec, 4, "vector %d", i)
		assert.False(t, interfaces.IsDegraded(vec), "vector %d", i)
	}
}

func TestEmbedBatch_PartialFailureDegradesOnlyAffectedEntries(t *testing.T) {
	// Every second provider call fails.
	svc := NewService(&mockLLMService{dimension: 4, failEvery: 2}, 4, "test-embed", 0, arbor.NewLogger())

	texts := []string{"one", "two", "three", "four"}
	vectors := svc.EmbedBatch(context.Background(), texts)

	require.Len(t, vectors, 4)
	assert.False(t, interfaces.IsDegraded(vectors[0]))
	assert.True(t, interfaces.IsDegraded(vectors[1]))
	assert.False(t, interfaces.IsDegraded(vectors[2]))
	assert.True(t, interfaces.IsDegraded(vectors[3]))

	t.Log("✅ batch degraded per-item without aborting")
}

func TestIsAvailable(t *testing.T) {
	healthy := NewService(&mockLLMService{dimension: 4}, 4, "test-embed", 0, arbor.NewLogger())
	assert.True(t, healthy.IsAvailable(context.Background()))

	down := NewService(&mockLLMService{dimension: 4, failAll: true}, 4, "test-embed", 0, arbor.NewLogger())
	assert.False(t, down.IsAvailable(context.Background()))
}

func TestIsDegraded(t *testing.T) {
	assert.True(t, interfaces.IsDegraded(make([]float32, 8)))
	assert.False(t, interfaces.IsDegraded([]float32{0, 0, 0.001}))
	assert.True(t, interfaces.IsDegraded(nil))
}
