package tools

import (
	"context"
	"encoding/json"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/services/answer"
)

// SwitchPromptArgs are the arguments of the switch_prompt tool.
type SwitchPromptArgs struct {
	Ministry string `json:"ministry" validate:"required"`
}

// NewSwitchPromptTool builds the prompt-switching tool. Its result is fed
// back to the model, which continues the turn with the specialized prompt in
// context.
func NewSwitchPromptTool() (interfaces.ToolDefinition, Handler) {
	definition := interfaces.ToolDefinition{
		Name:        ToolSwitchPrompt,
		Description: "Switches the assistant's prompt based on the ministry.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ministry": map[string]any{
					"type":        "string",
					"description": "The name of the ministry, e.g., 'dmv' or 'tax'.",
				},
			},
			"required": []string{"ministry"},
		},
	}

	handler := func(ctx context.Context, session interfaces.ToolSession, raw json.RawMessage) (*interfaces.ToolResult, error) {
		var args SwitchPromptArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		return &interfaces.ToolResult{
			Content: answer.SystemPromptFor(args.Ministry),
		}, nil
	}

	return definition, handler
}

// RetrieveAnswerArgs are the arguments of the retrieve_and_answer tool.
type RetrieveAnswerArgs struct {
	Query    string `json:"query" validate:"required"`
	Ministry string `json:"ministry" validate:"required"`
}

// NewRetrieveAnswerTool builds the RAG tool: retrieve the most relevant
// stored chunks for the query and generate a context-grounded answer. The
// generated answer is user-facing and ends the turn.
func NewRetrieveAnswerTool(retriever interfaces.Retriever, generator interfaces.AnswerGenerator, topK int) (interfaces.ToolDefinition, Handler) {
	definition := interfaces.ToolDefinition{
		Name:        ToolRetrieveAndAnswer,
		Description: "Searches ingested government documents and generates an answer grounded in them.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The user's question about a ministry's procedures or regulations.",
				},
				"ministry": map[string]any{
					"type":        "string",
					"description": "The ministry, e.g., 'dmv', 'tax', or 'health'.",
				},
			},
			"required": []string{"query", "ministry"},
		},
	}

	handler := func(ctx context.Context, session interfaces.ToolSession, raw json.RawMessage) (*interfaces.ToolResult, error) {
		var args RetrieveAnswerArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		chunks, err := retriever.Retrieve(ctx, args.Query, topK, args.Ministry)
		if err != nil {
			return nil, err
		}

		texts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			texts = append(texts, chunk.Text)
		}

		return &interfaces.ToolResult{
			Content:    generator.Generate(ctx, args.Query, texts, args.Ministry),
			UserFacing: true,
		}, nil
	}

	return definition, handler
}
