package schema

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// GenerateForType uses reflection to create a JSON schema for a Go struct
// type, for tools registered through the typed handler API. The returned raw
// schema is what clients see in tools/list; the Node is its declarative form
// fed to Convert for argument validation.
func GenerateForType(t reflect.Type) (json.RawMessage, *Node, error) {
	// If the type is a pointer, get the element type it points to.
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	// The schema should describe a struct.
	if t.Kind() != reflect.Struct {
		raw := json.RawMessage(`{"type": "object", "properties": {}}`)
		return raw, &Node{Type: "object"}, nil
	}

	// Generate the schema fully inlined, without $ref indirection, which is
	// what protocol clients expect.
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
	}
	generated := reflector.Reflect(reflect.New(t).Interface())

	// The jsonschema library does not handle 'description' struct tags, so
	// fold them in here. Fields without ",omitempty" are required.
	if generated.Properties != nil {
		generated.Required = nil
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			jsonTag := field.Tag.Get("json")
			if jsonTag == "" || jsonTag == "-" {
				continue
			}
			parts := strings.Split(jsonTag, ",")
			propertyName := parts[0]

			if prop, ok := generated.Properties.Get(propertyName); ok {
				if descTag := field.Tag.Get("description"); descTag != "" {
					prop.Description = descTag
				}
			}

			optional := false
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					optional = true
				}
			}
			if !optional {
				generated.Required = append(generated.Required, propertyName)
			}
		}
	}

	raw, err := json.Marshal(generated)
	if err != nil {
		return nil, nil, err
	}

	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, nil, err
	}

	return raw, &node, nil
}
