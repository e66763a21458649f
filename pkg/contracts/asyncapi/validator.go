package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventTypeExtension ties a component schema to the CloudEvent type whose data it describes
const EventTypeExtension = "x-event-type"

const documentURI = "asyncapi://fulfillment.json"

// EventValidator validates CloudEvent payloads against AsyncAPI component schemas.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

type document struct {
	Components struct {
		Schemas map[string]map[string]interface{} `yaml:"schemas"`
	} `yaml:"components"`
}

// NewEventValidator compiles every component schema carrying x-event-type.
// The whole document is registered as one resource so local $refs resolve.
func NewEventValidator(spec []byte) (*EventValidator, error) {
	var raw interface{}
	if err := yaml.Unmarshal(spec, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI document: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(spec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI components: %w", err)
	}

	// Round-trip through JSON so numbers and maps have the shapes the compiler expects.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AsyncAPI document: %w", err)
	}
	loaded, err := jsonschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to load AsyncAPI document: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(documentURI, loaded); err != nil {
		return nil, fmt.Errorf("failed to add AsyncAPI document: %w", err)
	}

	schemas := make(map[string]*jsonschema.Schema)
	for name, schema := range doc.Components.Schemas {
		eventType, _ := schema[EventTypeExtension].(string)
		if eventType == "" {
			continue
		}
		compiled, err := compiler.Compile(documentURI + "#/components/schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[eventType] = compiled
	}

	return &EventValidator{schemas: schemas}, nil
}

// ValidateData validates the data of an event of the given type.
func (v *EventValidator) ValidateData(eventType string, data interface{}) error {
	schema, ok := v.schemas[eventType]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", eventType)
	}
	if data == nil {
		return fmt.Errorf("event data is required")
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", eventType, err)
	}
	return nil
}

// EventTypes returns the event types with registered schemas, sorted.
func (v *EventValidator) EventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
