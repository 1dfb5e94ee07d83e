package mcp

import (
	"context"

	"go-mcp-server/pkg/protocol"
	"go-mcp-server/pkg/schema"
	"go-mcp-server/pkg/uritemplate"

	log "github.com/sirupsen/logrus"
)

// ToolHandler implements a registered tool. Arguments arrive already
// validated against the tool's input schema.
type ToolHandler func(ctx context.Context, args map[string]interface{}) ([]protocol.ContentBlock, error)

// ResourceHandler serves the content of a static resource.
type ResourceHandler func(ctx context.Context, uri string) ([]protocol.ResourceContents, error)

// TemplateHandler serves a templated resource. params holds the values
// extracted from the URI by the compiled template.
type TemplateHandler func(ctx context.Context, uri string, params map[string]string) ([]protocol.ResourceContents, error)

// ToolDefinition couples a tool descriptor with its handler and the
// validator compiled from its declarative input schema.
type ToolDefinition struct {
	Tool    protocol.Tool
	Schema  *schema.Node
	Handler ToolHandler

	validator *schema.Validator
}

// ResourceDefinition couples a static resource descriptor with its handler.
type ResourceDefinition struct {
	Resource protocol.Resource
	Handler  ResourceHandler
}

// TemplateDefinition couples a resource template descriptor with its handler
// and the matcher compiled from its URI pattern.
type TemplateDefinition struct {
	Template protocol.ResourceTemplate
	Handler  TemplateHandler

	matcher *uritemplate.Template
}

// Catalog holds every tool, static resource, and resource template the
// server exposes. It is populated at construction and read-only afterwards:
// all sessions share one catalog without synchronization.
type Catalog struct {
	tools     map[string]*ToolDefinition
	toolOrder []string

	resources     map[string]*ResourceDefinition
	resourceOrder []string

	// templates are scanned in registration order on resource reads; the
	// first match wins.
	templates     map[string]*TemplateDefinition
	templateOrder []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tools:     make(map[string]*ToolDefinition),
		resources: make(map[string]*ResourceDefinition),
		templates: make(map[string]*TemplateDefinition),
	}
}

// RegisterTool adds a tool, keyed by name. Registering the same name again
// silently replaces the earlier definition. The declarative input schema is
// compiled into a validator once, here.
func (c *Catalog) RegisterTool(def ToolDefinition) {
	def.validator = schema.Convert(def.Schema)
	if _, exists := c.tools[def.Tool.Name]; !exists {
		c.toolOrder = append(c.toolOrder, def.Tool.Name)
	}
	c.tools[def.Tool.Name] = &def
	log.Infof("Registered tool: %s", def.Tool.Name)
}

// RegisterResource adds a static resource, keyed by its exact URI.
// Re-registration replaces the earlier definition.
func (c *Catalog) RegisterResource(def ResourceDefinition) {
	if _, exists := c.resources[def.Resource.URI]; !exists {
		c.resourceOrder = append(c.resourceOrder, def.Resource.URI)
	}
	c.resources[def.Resource.URI] = &def
	log.Infof("Registered resource: %s", def.Resource.URI)
}

// RegisterResourceTemplate adds a resource template, keyed by its pattern
// text, compiling the pattern once. An invalid pattern is the caller's bug
// and fails registration.
func (c *Catalog) RegisterResourceTemplate(def TemplateDefinition) error {
	matcher, err := uritemplate.Compile(def.Template.URITemplate)
	if err != nil {
		return err
	}
	def.matcher = matcher
	if _, exists := c.templates[def.Template.URITemplate]; !exists {
		c.templateOrder = append(c.templateOrder, def.Template.URITemplate)
	}
	c.templates[def.Template.URITemplate] = &def
	log.Infof("Registered resource template: %s", def.Template.URITemplate)
	return nil
}

// Tool looks up a tool definition by name.
func (c *Catalog) Tool(name string) (*ToolDefinition, bool) {
	def, ok := c.tools[name]
	return def, ok
}

// ResolveResource resolves a concrete URI. Static resources are checked
// before any template is scanned, so an exact URI always shadows a template
// of the same shape. Templates are tried in registration order.
func (c *Catalog) ResolveResource(uri string) (*ResourceDefinition, *TemplateDefinition, map[string]string, bool) {
	if def, ok := c.resources[uri]; ok {
		return def, nil, nil, true
	}
	for _, pattern := range c.templateOrder {
		def := c.templates[pattern]
		if params, ok := def.matcher.Match(uri); ok {
			return nil, def, params, true
		}
	}
	return nil, nil, nil, false
}

// ListTools returns the tool descriptors in registration order, without
// handler bodies.
func (c *Catalog) ListTools() []protocol.Tool {
	out := make([]protocol.Tool, 0, len(c.toolOrder))
	for _, name := range c.toolOrder {
		out = append(out, c.tools[name].Tool)
	}
	return out
}

// ListResources returns the static resource descriptors in registration order.
func (c *Catalog) ListResources() []protocol.Resource {
	out := make([]protocol.Resource, 0, len(c.resourceOrder))
	for _, uri := range c.resourceOrder {
		out = append(out, c.resources[uri].Resource)
	}
	return out
}

// ListResourceTemplates returns the template descriptors in registration order.
func (c *Catalog) ListResourceTemplates() []protocol.ResourceTemplate {
	out := make([]protocol.ResourceTemplate, 0, len(c.templateOrder))
	for _, pattern := range c.templateOrder {
		out = append(out, c.templates[pattern].Template)
	}
	return out
}
