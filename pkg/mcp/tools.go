package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"go-mcp-server/pkg/protocol"
	"go-mcp-server/pkg/schema"
)

// ToolRegistration pairs a tool descriptor with a strongly-typed handler
// function. The handler must look like
//
//	func(ctx context.Context, params *MyParams) (string, error)
//
// (the context argument is optional). A JSON schema is generated from the
// params struct by reflection; `json` and `description` struct tags shape it.
type ToolRegistration struct {
	Definition protocol.Tool
	// Handler is the strongly-typed function that implements the tool.
	Handler interface{}
}

// RegisterTools registers a slice of typed tools into the catalog. It stops
// at the first invalid registration so a bad handler signature is caught at
// startup rather than at call time.
func (c *Catalog) RegisterTools(registrations []ToolRegistration) error {
	for _, reg := range registrations {
		if err := c.registerTypedTool(reg); err != nil {
			return fmt.Errorf("failed to register tool '%s': %w", reg.Definition.Name, err)
		}
	}
	return nil
}

func (c *Catalog) registerTypedTool(reg ToolRegistration) error {
	toolDef := reg.Definition
	if toolDef.Name == "" {
		return fmt.Errorf("tool definition must include a name")
	}

	handlerVal := reflect.ValueOf(reg.Handler)
	handlerType := handlerVal.Type()
	if handlerType.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function")
	}

	// Validate handler signature and extract the params type.
	var takesContext bool
	numIn := handlerType.NumIn()
	if numIn > 0 && handlerType.In(0).Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
		takesContext = true
	}

	expectedArgCount := 1
	if takesContext {
		expectedArgCount = 2
	}
	if numIn != expectedArgCount {
		return fmt.Errorf("handler has incorrect number of arguments (expected %d, got %d)", expectedArgCount, numIn)
	}

	inputType := handlerType.In(numIn - 1)
	if inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("handler's parameter type must be a pointer to a struct, but got %s", inputType)
	}

	if numOut := handlerType.NumOut(); numOut < 1 || numOut > 2 ||
		!handlerType.Out(numOut-1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		return fmt.Errorf("handler must return (result, error) or (error)")
	}

	rawSchema, node, err := schema.GenerateForType(inputType)
	if err != nil {
		return fmt.Errorf("could not generate schema for type %s: %w", inputType, err)
	}
	toolDef.InputSchema = rawSchema

	c.RegisterTool(ToolDefinition{
		Tool:    toolDef,
		Schema:  node,
		Handler: typedHandler(handlerVal, inputType, takesContext),
	})
	return nil
}

// typedHandler adapts a reflective handler into the catalog's ToolHandler
// shape: decode arguments into the params struct, call, stringify the result.
func typedHandler(handlerValue reflect.Value, inputType reflect.Type, takesContext bool) ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) ([]protocol.ContentBlock, error) {
		inputValue := reflect.New(inputType.Elem())
		argsBytes, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		if err := json.Unmarshal(argsBytes, inputValue.Interface()); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}

		callArgs := []reflect.Value{}
		if takesContext {
			callArgs = append(callArgs, reflect.ValueOf(ctx))
		}
		callArgs = append(callArgs, inputValue)

		results := handlerValue.Call(callArgs)

		if errVal := results[len(results)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}

		resultText := "Operation completed successfully."
		if len(results) > 1 {
			resultText = fmt.Sprintf("%v", results[0].Interface())
		}
		return []protocol.ContentBlock{{Type: "text", Text: resultText}}, nil
	}
}
