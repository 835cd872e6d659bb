// Package mcp implements the MCP (Model Context Protocol) server for hygienectl.
// Agents get scores, advice and per-item metadata; plaintext passwords never
// leave the vault.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/forest6511/hygienectl/pkg/vault"
)

// PasswordEnv is read for the master password when none is passed in.
const PasswordEnv = "HYGIENECTL_PASSWORD"

// ErrNoPassword is returned when neither the options nor the environment
// carry a master password.
var ErrNoPassword = errors.New("no password provided: set " + PasswordEnv + " environment variable")

// Server represents the MCP server for hygienectl.
type Server struct {
	server *mcp.Server
	vault  *vault.Vault
	log    zerolog.Logger
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// Vault is the locked vault to serve. Required.
	Vault *vault.Vault

	// Password is the master password for the vault.
	// If empty, the server reads HYGIENECTL_PASSWORD and clears it.
	Password string

	Logger  zerolog.Logger
	Version string
}

// NewServer unlocks the vault and registers the tools.
func NewServer(ctx context.Context, opts *ServerOptions) (*Server, error) {
	if opts == nil || opts.Vault == nil {
		return nil, errors.New("mcp: vault is required")
	}

	password := opts.Password
	if password == "" {
		password = os.Getenv(PasswordEnv)
		// Clear the environment variable after reading
		os.Unsetenv(PasswordEnv)
	}
	if password == "" {
		return nil, ErrNoPassword
	}

	exists, err := opts.Vault.IsSetup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !exists {
		return nil, vault.ErrVaultNotFound
	}
	if !opts.Vault.Login(ctx, password) {
		return nil, errors.New("failed to unlock vault: invalid master password")
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "hygienectl",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server: mcpServer,
		vault:  opts.Vault,
		log:    opts.Logger,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_list",
		Description: "List vault items with hygiene metadata: title, site, masked username, entropy, strength, reuse and age. Does NOT return passwords.",
	}, s.handleVaultList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "password_analyze",
		Description: "Analyze a password's entropy, strength, crack time and weaknesses. Pass either a candidate password or the id of a stored item; stored passwords are never echoed.",
	}, s.handlePasswordAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hygiene_score",
		Description: "Return the vault health score (0-100), weak and reused counts, the five-axis radar profile and progression stats.",
	}, s.handleHygieneScore)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hygiene_tips",
		Description: "Return the prioritized list of hygiene tips for the vault.",
	}, s.handleHygieneTips)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hygiene_report",
		Description: "Return the narrative security report: risk summary, sentiment, top problems and recommended actions.",
	}, s.handleHygieneReport)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hygiene_timeline",
		Description: "Return daily health snapshots, oldest first, and the score trend over the window.",
	}, s.handleHygieneTimeline)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	defer s.vault.Logout()

	s.log.Info().Msg("mcp server started")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close closes the server and locks the vault.
func (s *Server) Close() error {
	s.vault.Logout()
	return nil
}
