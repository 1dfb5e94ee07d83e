// Package schema converts declarative JSON schemas into runtime argument
// validators for tool calls.
package schema

import (
	"fmt"
	"math"
	"strings"
)

// Node is a declarative schema node as it appears in a tool's inputSchema.
// Only the subset of JSON Schema used by tool definitions is modeled.
type Node struct {
	Type        string           `json:"type,omitempty"`
	Description string           `json:"description,omitempty"`
	Properties  map[string]*Node `json:"properties,omitempty"`
	Required    []string         `json:"required,omitempty"`
	Items       *Node            `json:"items,omitempty"`
}

// checkFunc reports whether a single decoded JSON value is acceptable.
type checkFunc func(value interface{}) bool

// property is one compiled field validator.
type property struct {
	check       checkFunc
	required    bool
	description string
}

// Validator is the compiled form of a schema node. It validates decoded
// JSON argument objects (map[string]interface{}) against the declared
// properties and required-field list.
type Validator struct {
	properties map[string]property
	// order preserves the declaration order of required fields so error
	// output is stable.
	order []string
}

// checkBuilders maps a declared type to its value check. Unknown or missing
// types fall through to acceptAny, so conversion is total: a schema we do
// not fully understand still yields a usable (permissive) validator.
var checkBuilders = map[string]func(n *Node) checkFunc{
	"string":  func(*Node) checkFunc { return isString },
	"number":  func(*Node) checkFunc { return isNumber },
	"integer": func(*Node) checkFunc { return isInteger },
	"boolean": func(*Node) checkFunc { return isBoolean },
	// Arrays and objects are validated shallowly: nested item and property
	// schemas are not recursed into.
	"array":  func(*Node) checkFunc { return isArray },
	"object": func(*Node) checkFunc { return isObject },
}

// Convert compiles a declarative schema node into a Validator. It never
// fails; unsupported shapes degrade to accept-anything checks.
func Convert(n *Node) *Validator {
	v := &Validator{properties: make(map[string]property)}
	if n == nil || n.Properties == nil {
		return v
	}

	required := make(map[string]bool, len(n.Required))
	for _, name := range n.Required {
		required[name] = true
	}

	for name, prop := range n.Properties {
		check := acceptAny
		if prop != nil {
			if build, ok := checkBuilders[prop.Type]; ok {
				check = build(prop)
			}
		}
		var desc string
		if prop != nil {
			desc = prop.Description
		}
		v.properties[name] = property{
			check:       check,
			required:    required[name],
			description: desc,
		}
		v.order = append(v.order, name)
	}
	return v
}

// Validate checks a decoded argument object. A nil map is treated as an
// empty object. The returned error is a ValidationErrors value listing every
// violation, or nil when the arguments are acceptable.
func (v *Validator) Validate(args map[string]interface{}) error {
	var errs ValidationErrors
	for name, prop := range v.properties {
		value, present := args[name]
		if !present {
			if prop.required {
				errs = append(errs, &ValidationError{
					Field:   name,
					Message: "required field is missing",
				})
			}
			continue
		}
		if !prop.check(value) {
			errs = append(errs, &ValidationError{
				Field:   name,
				Message: fmt.Sprintf("unexpected type %T", value),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Description returns the declarative description recorded for a property,
// if any. Exposed for catalog introspection.
func (v *Validator) Description(field string) string {
	return v.properties[field].description
}

// Fields returns the validated property names in declaration order.
func (v *Validator) Fields() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// ValidationError describes one rejected argument field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range e {
		sb.WriteString(" ")
		sb.WriteString(err.Error())
		sb.WriteString(";")
	}
	return strings.TrimSuffix(sb.String(), ";")
}

func acceptAny(interface{}) bool { return true }

func isString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return false
}

func isInteger(v interface{}) bool {
	switch n := v.(type) {
	case int, int64:
		return true
	case float64:
		// JSON numbers decode as float64; accept integral values only.
		return n == math.Trunc(n)
	}
	return false
}

func isBoolean(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func isArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}
