package main

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/config"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/logger"
	"github.com/leonardcser/college-api/internal/tools"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting college catalog MCP server")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		panic(err)
	}

	// The tools only read, so several sessions can share the file.
	store, err := docstore.Open(cfg.Store.Path, docstore.Options{Timeout: cfg.Store.OpenTimeout, ReadOnly: true})
	if err != nil {
		logger.Errorf("Failed to open document store at %s: %v", cfg.Store.Path, err)
		panic(err)
	}
	defer store.Close()
	logger.Infof("Opened document store at %s", cfg.Store.Path)

	s := server.NewMCPServer(
		"College Catalog",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	logger.Infof("Created MCP server instance")

	tools.Register(s, catalog.NewService(store))

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}
