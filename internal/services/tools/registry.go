package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
	"github.com/adiuvo-ai/adiuvo/internal/models"
)

// Tool names as declared to the model. Dispatch is by these identifiers;
// anything else resolves to ErrUnknownTool.
const (
	ToolSwitchPrompt      = "switch_prompt"
	ToolGetServiceLinks   = "get_service_links_us"
	ToolRetrieveAndAnswer = "retrieve_and_answer"
	ToolDynamicFormFiller = "dynamic_form_filler"
)

var validate = validator.New()

// Handler executes one tool call with raw JSON arguments.
type Handler func(ctx context.Context, session interfaces.ToolSession, args json.RawMessage) (*interfaces.ToolResult, error)

type registeredTool struct {
	definition interfaces.ToolDefinition
	handler    Handler
}

// Registry holds the tool catalog declared to the model and the handlers
// behind it. All registration happens during startup wiring; afterwards the
// registry is read-only and safe to share across concurrent sessions.
type Registry struct {
	tools  map[string]registeredTool
	order  []string
	logger arbor.ILogger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		tools:  make(map[string]registeredTool),
		logger: logger,
	}
}

// Register binds a tool definition to its handler. Duplicate names are a
// wiring bug and fail loudly.
func (r *Registry) Register(definition interfaces.ToolDefinition, handler Handler) error {
	if definition.Name == "" {
		return fmt.Errorf("%w: tool definition requires a name", interfaces.ErrInvalidArgument)
	}
	if handler == nil {
		return fmt.Errorf("%w: tool %s requires a handler", interfaces.ErrInvalidArgument, definition.Name)
	}
	if _, exists := r.tools[definition.Name]; exists {
		return fmt.Errorf("%w: tool %s is already registered", interfaces.ErrInvalidArgument, definition.Name)
	}

	r.tools[definition.Name] = registeredTool{definition: definition, handler: handler}
	r.order = append(r.order, definition.Name)

	r.logger.Debug().Str("tool", definition.Name).Msg("Registered tool")
	return nil
}

// Definitions returns the tool catalog in registration order.
func (r *Registry) Definitions() []interfaces.ToolDefinition {
	defs := make([]interfaces.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Dispatch resolves a tool call by name and runs its handler. An
// unregistered name returns ErrUnknownTool; the caller decides how to keep
// the turn alive.
func (r *Registry) Dispatch(ctx context.Context, session interfaces.ToolSession, call models.ToolCall) (*interfaces.ToolResult, error) {
	tool, ok := r.tools[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownTool, call.Name)
	}

	return tool.handler(ctx, session, call.Arguments)
}

// decodeArgs unmarshals raw tool arguments into the typed argument struct
// and validates it. Failures surface as ErrMalformedToolArguments so the
// orchestrator can apply its malformed-output policy uniformly.
func decodeArgs(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrMalformedToolArguments, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrMalformedToolArguments, err)
	}
	return nil
}
