package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/adiuvo-ai/adiuvo/internal/interfaces"
)

// defaultServiceLinks is the built-in catalog of state-specific service
// links, used when no catalog file is configured or the file is absent.
var defaultServiceLinks = map[string]map[string]string{
	"california": {
		"passport":         "https://travel.state.gov/content/travel/en/passports.html",
		"license":          "https://www.dmv.ca.gov/portal/driver-licenses-identification-cards/",
		"id":               "https://www.dmv.ca.gov/portal/id-cards/",
		"car_registration": "https://www.dmv.ca.gov/portal/vehicle-registration/",
	},
	"texas": {
		"passport":         "https://travel.state.gov/content/travel/en/passports.html",
		"license":          "https://www.txdps.state.tx.us/DriverLicense/",
		"id":               "https://www.txdps.state.tx.us/DriverLicense/",
		"car_registration": "https://www.txdmv.gov/motorists/register-your-vehicle",
	},
	"new_york": {
		"passport":         "https://travel.state.gov/content/travel/en/passports.html",
		"license":          "https://dmv.ny.gov/driver-license/get-driver-license",
		"id":               "https://dmv.ny.gov/id-card/non-driver-id-card",
		"car_registration": "https://dmv.ny.gov/registration/how-register-vehicle",
	},
}

// LinkCatalog maps a US state to its official service links by service type.
// Loaded once at startup; read-only afterwards.
type LinkCatalog struct {
	links  map[string]map[string]string
	logger arbor.ILogger
}

// LoadLinkCatalog builds the catalog from a YAML file of the shape
// state -> service_type -> url. A missing or empty path falls back to the
// built-in catalog.
func LoadLinkCatalog(path string, logger arbor.ILogger) (*LinkCatalog, error) {
	catalog := &LinkCatalog{
		links:  defaultServiceLinks,
		logger: logger,
	}

	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("Link catalog file not found, using built-in catalog")
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read link catalog %s: %w", path, err)
	}

	links := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("failed to parse link catalog %s: %w", path, err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("link catalog %s contains no entries", path)
	}

	// Normalize state keys the same way lookups do.
	normalized := make(map[string]map[string]string, len(links))
	for state, services := range links {
		normalized[normalizeState(state)] = services
	}
	catalog.links = normalized

	logger.Info().Str("path", path).Int("states", len(normalized)).Msg("Loaded service link catalog")
	return catalog, nil
}

func normalizeState(state string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(state)), " ", "_")
}

// Lookup returns the official link for a state and service type.
func (c *LinkCatalog) Lookup(state, serviceType string) (string, error) {
	services, ok := c.links[normalizeState(state)]
	if !ok {
		return "", fmt.Errorf("unsupported state: %s", state)
	}

	link, ok := services[strings.ToLower(strings.TrimSpace(serviceType))]
	if !ok {
		return "", fmt.Errorf("unsupported service type: %s", serviceType)
	}

	return link, nil
}

// States returns the known state keys, sorted.
func (c *LinkCatalog) States() []string {
	states := make([]string, 0, len(c.links))
	for state := range c.links {
		states = append(states, state)
	}
	sort.Strings(states)
	return states
}

// ServiceLinksArgs are the arguments of the get_service_links_us tool.
type ServiceLinksArgs struct {
	State       string `json:"state" validate:"required"`
	ServiceType string `json:"service_type" validate:"required"`
}

// NewServiceLinksTool builds the state service-link lookup tool. Its result
// is user-facing: a resolved official link ends the turn without another
// model round trip.
func NewServiceLinksTool(catalog *LinkCatalog) (interfaces.ToolDefinition, Handler) {
	definition := interfaces.ToolDefinition{
		Name:        ToolGetServiceLinks,
		Description: "Returns U.S. state-specific links for government services.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"state": map[string]any{
					"type":        "string",
					"description": "The U.S. state name, e.g., 'California', 'Texas', or 'New York'.",
				},
				"service_type": map[string]any{
					"type":        "string",
					"description": "The type of service, e.g., 'passport', 'license', 'id', or 'car_registration'.",
				},
			},
			"required": []string{"state", "service_type"},
		},
	}

	handler := func(ctx context.Context, session interfaces.ToolSession, raw json.RawMessage) (*interfaces.ToolResult, error) {
		var args ServiceLinksArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		link, err := catalog.Lookup(args.State, args.ServiceType)
		if err != nil {
			return nil, err
		}

		return &interfaces.ToolResult{
			Content:    fmt.Sprintf("Here is the official %s link for %s: %s", args.ServiceType, args.State, link),
			UserFacing: true,
		}, nil
	}

	return definition, handler
}
