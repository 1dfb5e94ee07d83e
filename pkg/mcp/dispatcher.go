package mcp

import (
	"context"
	"fmt"

	"go-mcp-server/pkg/protocol"

	log "github.com/sirupsen/logrus"
)

// Dispatcher routes tool calls and resource reads for one session against
// the shared read-only catalog. Each session owns a private instance;
// dispatchers never share mutable state with one another.
type Dispatcher struct {
	catalog *Catalog
}

// NewDispatcher creates a dispatcher bound to a catalog.
func NewDispatcher(catalog *Catalog) *Dispatcher {
	return &Dispatcher{catalog: catalog}
}

// CallTool invokes a tool by name. It never returns an error: unknown names,
// argument validation failures, handler errors, and handler panics are all
// folded into a CallToolResult with IsError set, so one failing call cannot
// destabilize the session.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]interface{}) *protocol.CallToolResult {
	def, ok := d.catalog.Tool(name)
	if !ok {
		return errorResult((&NotFoundError{Kind: "tool", Name: name}).Error())
	}

	if err := def.validator.Validate(args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments for tool %s: %v", name, err))
	}

	content, err := invokeTool(ctx, def, args)
	if err != nil {
		log.Warnf("Tool '%s' failed: %v", name, err)
		return errorResult(err.Error())
	}
	return &protocol.CallToolResult{Content: content}
}

// invokeTool runs the handler with panic recovery. A panicking tool is a
// handler error like any other.
func invokeTool(ctx context.Context, def *ToolDefinition, args map[string]interface{}) (content []protocol.ContentBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Name: def.Tool.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	content, err = def.Handler(ctx, args)
	if err != nil {
		err = &HandlerError{Name: def.Tool.Name, Err: err}
	}
	return content, err
}

// ReadResource resolves a URI against the catalog (exact match first, then
// templates in registration order) and invokes the matching handler. Unlike
// tool calls, failures here are hard: the wire protocol has no soft-failure
// shape for resource reads, so handler errors propagate to the caller as
// protocol-level errors.
func (d *Dispatcher) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	static, templated, params, ok := d.catalog.ResolveResource(uri)
	if !ok {
		return nil, &NotFoundError{Kind: "resource", Name: uri}
	}

	var (
		contents []protocol.ResourceContents
		err      error
	)
	if static != nil {
		contents, err = static.Handler(ctx, uri)
	} else {
		contents, err = templated.Handler(ctx, uri, params)
	}
	if err != nil {
		return nil, &HandlerError{Name: uri, Err: err}
	}
	return &protocol.ReadResourceResult{Contents: contents}, nil
}

// ListTools enumerates the catalog's tool descriptors.
func (d *Dispatcher) ListTools() protocol.ListToolsResult {
	return protocol.ListToolsResult{Tools: d.catalog.ListTools()}
}

// ListResources enumerates the catalog's static resource descriptors.
func (d *Dispatcher) ListResources() protocol.ListResourcesResult {
	return protocol.ListResourcesResult{Resources: d.catalog.ListResources()}
}

// ListResourceTemplates enumerates the catalog's template descriptors.
func (d *Dispatcher) ListResourceTemplates() protocol.ListResourceTemplatesResult {
	return protocol.ListResourceTemplatesResult{ResourceTemplates: d.catalog.ListResourceTemplates()}
}

func errorResult(msg string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.ContentBlock{{Type: "text", Text: msg}},
		IsError: true,
	}
}
