package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-narrator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing replay tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes replay, describe
and tree as tools. Agents can replay scripts without shell overhead.

Supported transports:
  stdio   Standard I/O (default, for MCP clients)
  http    Streamable HTTP transport (for remote agents)

Examples:
  desktop-narrator serve
  desktop-narrator serve --transport http --addr :8080
  desktop-narrator serve --cache-ttl 0`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "", "Transport: stdio, http (default: config)")
	serveCmd.Flags().String("addr", "", "Listen address for the http transport (default: config)")
	serveCmd.Flags().Int("cache-ttl", -1, "Script cache TTL in seconds, 0 to disable (default: config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	addr, _ := cmd.Flags().GetString("addr")
	cacheTTL, _ := cmd.Flags().GetInt("cache-ttl")

	c := *cfg
	if transport != "" {
		c.Server.Transport = transport
	}
	if addr != "" {
		c.Server.Addr = addr
	}
	if cacheTTL >= 0 {
		c.Server.CacheTTLSec = cacheTTL
	}
	if err := c.Validate(); err != nil {
		return err
	}
	srv := server.New(server.FromConfig(&c), logger.Named("server"))
	if err := srv.Serve(); err != nil {
		return fmt.Errorf("serve %s: %w", c.Server.Transport, err)
	}
	return nil
}
