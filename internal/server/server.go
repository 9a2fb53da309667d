// Package server exposes script replay over the Model Context Protocol.
package server

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/mj1618/desktop-narrator/internal/config"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Addr      string
	CacheTTL  time.Duration
	Format    output.Format
	Pretty    bool
	History   int
	Pace      time.Duration
	Language  language.Tag
}

// FromConfig derives the server configuration from the loaded settings.
func FromConfig(c *config.Config) Config {
	return Config{
		Transport: c.Server.Transport,
		Addr:      c.Server.Addr,
		CacheTTL:  c.CacheTTL(),
		Format:    output.Format(c.Output.Format),
		Pretty:    c.Output.Pretty,
		History:   c.Output.History,
		Pace:      c.Pace(),
		Language:  c.LanguageTag(),
	}
}

// Server wraps the MCP server with the script cache.
type Server struct {
	cfg    Config
	cache  *ScriptCache
	logger *zap.Logger
	mcp    *mcpserver.MCPServer
}

// New creates and configures an MCP server with the narrator tools.
func New(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Format == "" {
		cfg.Format = output.FormatYAML
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	s := &Server{
		cfg:    cfg,
		cache:  NewScriptCache(cfg.CacheTTL),
		logger: logger,
	}
	s.mcp = mcpserver.NewMCPServer(
		"desktop-narrator",
		version.Version,
		mcpserver.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Cache returns the script cache.
func (s *Server) Cache() *ScriptCache { return s.cache }

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve() error {
	s.logger.Info("serving", zap.String("transport", s.cfg.Transport), zap.String("addr", s.cfg.Addr))
	switch s.cfg.Transport {
	case config.TransportStdio, "":
		return mcpserver.ServeStdio(s.mcp)
	case config.TransportHTTP:
		return mcpserver.NewStreamableHTTPServer(s.mcp).Start(s.cfg.Addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or http)", s.cfg.Transport)
	}
}

func (s *Server) registerTools() {
	scriptArgs := []mcp.ToolOption{
		mcp.WithString("script", mcp.Description("Path to a YAML or JSON replay script")),
		mcp.WithString("source", mcp.Description("Inline YAML script, used when script is empty")),
		mcp.WithString("format", mcp.Description("Output format: yaml, json (default: server setting)")),
	}

	// replay
	s.mcp.AddTool(
		mcp.NewTool("replay", append([]mcp.ToolOption{
			mcp.WithDescription("Replay a script of accessibility notifications and return every spoken output job"),
			mcp.WithBoolean("stop-on-error", mcp.Description("Stop on first failing step (default: true)")),
		}, scriptArgs...)...),
		s.handleReplay,
	)

	// describe
	s.mcp.AddTool(
		mcp.NewTool("describe", append([]mcp.ToolOption{
			mcp.WithDescription("Describe an element the way focusing it would be announced"),
			mcp.WithString("id", mcp.Description("Element ID"), mcp.Required()),
			mcp.WithBoolean("after-replay", mcp.Description("Replay the script steps before describing")),
		}, scriptArgs...)...),
		s.handleDescribe,
	)

	// tree
	s.mcp.AddTool(
		mcp.NewTool("tree", append([]mcp.ToolOption{
			mcp.WithDescription("List the flattened element tree of every application in a script"),
		}, scriptArgs...)...),
		s.handleTree,
	)
}
