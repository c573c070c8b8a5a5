// Package app wires configuration, storage, clients, and services into
// the shared application core used by cmd/papertrade-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/4rankng/paper-trading-sub001/internal/clients/gemini"
	"github.com/4rankng/paper-trading-sub001/internal/common"
	"github.com/4rankng/paper-trading-sub001/internal/interfaces"
	"github.com/4rankng/paper-trading-sub001/internal/services/chat"
	"github.com/4rankng/paper-trading-sub001/internal/storage/vizlog"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	VizLog       interfaces.VizLogStore
	GeminiClient interfaces.GeminiClient
	ChatService  interfaces.ChatService
	MCPServer    *server.MCPServer
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, services, and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, PAPERTRADE_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("PAPERTRADE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "papertrade.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/papertrade.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.VizLog.Path != "" && !filepath.IsAbs(config.Storage.VizLog.Path) {
		config.Storage.VizLog.Path = filepath.Join(binDir, config.Storage.VizLog.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := vizlog.NewStore(logger, config.Storage.VizLog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vizlog storage: %w", err)
	}

	var geminiClient interfaces.GeminiClient
	if config.Clients.Gemini.APIKey != "" {
		client, err := gemini.NewClient(context.Background(), config.Clients.Gemini.APIKey,
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithRateLimit(config.Clients.Gemini.RateLimit),
			gemini.WithLogger(logger),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini client unavailable - advice streaming disabled")
		} else {
			geminiClient = client
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - advice streaming disabled")
	}

	chatService := chat.NewService(store, geminiClient, logger, config.Viz)

	mcpServer := server.NewMCPServer(
		"papertrade",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		VizLog:       store,
		GeminiClient: geminiClient,
		ChatService:  chatService,
		MCPServer:    mcpServer,
		StartupTime:  time.Now(),
	}

	a.registerTools()

	return a, nil
}

// Close releases all resources.
func (a *App) Close() {
	if a.GeminiClient != nil {
		if err := a.GeminiClient.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close Gemini client")
		}
	}
	if a.VizLog != nil {
		if err := a.VizLog.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close vizlog storage")
		}
	}
}
