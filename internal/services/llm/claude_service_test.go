package llm

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

func toolResultIDs(t *testing.T, msg anthropic.MessageParam) []string {
	t.Helper()
	var ids []string
	for _, block := range msg.Content {
		require.NotNil(t, block.OfToolResult, "expected only tool_result blocks")
		ids = append(ids, block.OfToolResult.ToolUseID)
	}
	return ids
}

func TestConvertMessagesToClaude_ParallelToolResultsShareOneUserMessage(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "assistant prompt"},
		{Role: "user", Content: "renew my license and check my tax refund"},
		{
			Role: "assistant",
			ToolCalls: []models.ToolCall{
				{ID: "call_links", Name: "get_service_links_us", Arguments: json.RawMessage(`{"ministry":"dmv"}`)},
				{ID: "call_rag", Name: "retrieve_and_answer", Arguments: json.RawMessage(`{"query":"refund status","ministry":"tax"}`)},
			},
		},
		{Role: "tool", Content: "dmv links", ToolCallID: "call_links"},
		{Role: "tool", Content: "refund answer", ToolCallID: "call_rag"},
	}

	converted, systemText, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Equal(t, "assistant prompt", systemText)

	// user, assistant with two tool_use blocks, one combined tool_result message
	require.Len(t, converted, 3)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, converted[1].Role)
	require.Len(t, converted[1].Content, 2)

	results := converted[2]
	assert.Equal(t, anthropic.MessageParamRoleUser, results.Role)
	assert.Equal(t, []string{"call_links", "call_rag"}, toolResultIDs(t, results))

	t.Log("✅ Parallel tool results collapsed into a single user message")
}

func TestConvertMessagesToClaude_ToolResultRunsStaySeparatedByAssistantTurns(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "user", Content: "start"},
		{
			Role:      "assistant",
			ToolCalls: []models.ToolCall{{ID: "call_1", Name: "switch_prompt", Arguments: json.RawMessage(`{"ministry":"dmv"}`)}},
		},
		{Role: "tool", Content: "dmv prompt", ToolCallID: "call_1"},
		{
			Role:      "assistant",
			ToolCalls: []models.ToolCall{{ID: "call_2", Name: "retrieve_and_answer", Arguments: json.RawMessage(`{"query":"fees","ministry":"dmv"}`)}},
		},
		{Role: "tool", Content: "fee answer", ToolCallID: "call_2"},
	}

	converted, _, err := convertMessagesToClaude(messages)
	require.NoError(t, err)

	require.Len(t, converted, 5)
	assert.Equal(t, []string{"call_1"}, toolResultIDs(t, converted[2]))
	assert.Equal(t, []string{"call_2"}, toolResultIDs(t, converted[4]))

	t.Log("✅ Sequential tool rounds each answer their own assistant message")
}

func TestConvertMessagesToClaude_RequiresUserMessage(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "prompt only"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")

	t.Log("✅ Transcripts without a user message are rejected")
}
