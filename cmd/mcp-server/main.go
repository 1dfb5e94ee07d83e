// Command mcp-server runs an MCP server over the transport selected by its
// environment: a multiplexed HTTP endpoint or a single stdio pipe.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeshaw/envdecode"
	log "github.com/sirupsen/logrus"

	"go-mcp-server/internal/logger"
	"go-mcp-server/pkg/mcp"
	"go-mcp-server/pkg/protocol"
)

// Config is decoded from the environment at startup.
type Config struct {
	Transport string `env:"MCP_TRANSPORT,default=http"` // "http" or "stdio"
	Addr      string `env:"MCP_ADDR,default=:8080"`
	Name      string `env:"MCP_SERVER_NAME,default=go-mcp-server"`
	Version   string `env:"MCP_SERVER_VERSION,default=0.1.0"`
}

func main() {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("Failed to decode configuration: %v", err)
	}

	catalog := mcp.NewCatalog()
	registerBuiltins(catalog)

	capabilities := protocol.ServerCapabilities{
		Tools:     &protocol.ServerToolCapabilities{},
		Resources: &protocol.ServerResourceCapabilities{},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Transport {
	case "stdio":
		logger.UseStderr()
		server := mcp.NewStdioServer(cfg.Name, cfg.Version, capabilities, catalog)
		if err := server.Serve(ctx); err != nil && err != context.Canceled {
			log.Fatalf("Server failed: %v", err)
		}
	case "http":
		server := mcp.NewServer(cfg.Name, cfg.Version, capabilities, catalog)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe(cfg.Addr)
		}()
		select {
		case err := <-errCh:
			log.Fatalf("Server failed: %v", err)
		case <-ctx.Done():
			log.Infof("Shutting down")
			if err := server.Shutdown(context.Background()); err != nil {
				log.Errorf("Shutdown: %v", err)
			}
		}
	default:
		log.Fatalf("Unknown transport %q (want http or stdio)", cfg.Transport)
	}
}

// registerBuiltins installs a minimal default catalog so the binary is
// usable out of the box.
func registerBuiltins(catalog *mcp.Catalog) {
	type EchoParams struct {
		Text string `json:"text" description:"Text to echo back."`
	}

	err := catalog.RegisterTools([]mcp.ToolRegistration{
		{
			Definition: protocol.Tool{
				Name:        "echo",
				Title:       "Echo",
				Description: "Echoes the provided text back to the caller.",
			},
			Handler: func(ctx context.Context, params *EchoParams) (string, error) {
				return fmt.Sprintf("Echo: %s", params.Text), nil
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	catalog.RegisterResource(mcp.ResourceDefinition{
		Resource: protocol.Resource{
			URI:         "server://about",
			Name:        "About",
			Description: "Server build information.",
			MimeType:    "application/json",
		},
		Handler: func(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
			return []protocol.ResourceContents{{
				URI:      uri,
				MimeType: "application/json",
				Text:     `{"server":"go-mcp-server"}`,
			}}, nil
		},
	})
}
