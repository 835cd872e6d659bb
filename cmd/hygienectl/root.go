package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/hygienectl/internal/cli"
	"github.com/forest6511/hygienectl/internal/config"
	"github.com/forest6511/hygienectl/internal/logging"
	"github.com/forest6511/hygienectl/pkg/store"
	"github.com/forest6511/hygienectl/pkg/vault"
)

// passwordEnv supplies the master password for non-interactive use.
const passwordEnv = "HYGIENECTL_PASSWORD"

var (
	configPath string
	vaultDir   string

	cfg    *config.Config
	logger zerolog.Logger
	st     store.Store
	v      *vault.Vault
)

var rootCmd = &cobra.Command{
	Use:           "hygienectl",
	Short:         "hygienectl is a local password vault with hygiene analytics",
	Long:          `An encrypted password vault that scores password strength, reuse and age, and tells you what to fix first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE loads the configuration and logger. The store is
	// opened lazily by commands that need it.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if vaultDir != "" {
			cfg.VaultDir = vaultDir
		}
		logger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeVault()
	},
}

// Add flags
var (
	addTitle    string
	addUsername string
	addSite     string
	addGenerate bool

	rotateGenerate bool
	deleteForce    bool
	listShowIDs    bool
)

// Audit flags
var (
	auditLimit int
	auditSince string
	auditForce bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HYGIENECTL_DIR/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault-dir", "", "Vault directory (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCheckCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(panicCmd)
	rootCmd.AddCommand(auditCmd)

	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Item title (required)")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "Username or email")
	addCmd.Flags().StringVarP(&addSite, "site", "s", "", "Site or URL")
	addCmd.Flags().BoolVarP(&addGenerate, "generate", "g", false, "Generate a random password instead of prompting")
	_ = addCmd.MarkFlagRequired("title")

	rotateCmd.Flags().BoolVarP(&rotateGenerate, "generate", "g", false, "Generate a random password instead of prompting")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
	listCmd.Flags().BoolVar(&listShowIDs, "ids", false, "Show full item ids")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditClearCmd)
	auditCmd.AddCommand(auditVerifyCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum number of events to show (0 for all)")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "Show events since duration (e.g., 24h, 7d)")
	auditClearCmd.Flags().BoolVarP(&auditForce, "force", "f", false, "Skip confirmation prompt")
}

// openVault opens the configured store and wraps it in a locked vault.
func openVault(ctx context.Context) error {
	if v != nil {
		return nil
	}
	var err error
	st, err = store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open vault storage: %w", err)
	}
	opts := []vault.Option{}
	if cfg.Storage.Driver != store.DriverMemory {
		opts = append(opts, vault.WithDataPath(cfg.StoragePath()))
	}
	v = vault.New(st, logger, opts...)
	return nil
}

// closeVault locks the vault and closes the store.
func closeVault() error {
	if v != nil {
		v.Logout()
		v = nil
	}
	if st == nil {
		return nil
	}
	err := st.Close()
	st = nil
	return err
}

// ensureUnlocked opens the vault and unlocks it with the master password.
func ensureUnlocked(ctx context.Context) error {
	_, err := unlock(ctx)
	return err
}

// unlock is ensureUnlocked that also hands back the master password, for
// commands that reuse it as an encryption secret.
func unlock(ctx context.Context) (string, error) {
	if err := openVault(ctx); err != nil {
		return "", err
	}
	exists, err := v.IsSetup(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: run 'hygienectl init' first", vault.ErrVaultNotFound)
	}

	password, err := readPassword("Enter master password: ")
	if err != nil {
		return "", err
	}
	if !v.Login(ctx, password) {
		return "", errors.New("failed to unlock vault: invalid master password")
	}
	return password, nil
}

// readPassword returns HYGIENECTL_PASSWORD when set, otherwise prompts
// without echo. Piped input falls back to a plain line read.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	return promptSecret(prompt)
}

// promptSecret always prompts, ignoring the environment.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if isTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return readLine()
}

// isTerminal returns true if the file descriptor is a terminal
func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

var stdinReader = bufio.NewReader(os.Stdin)

// readLine reads a single line from stdin, trimming trailing newline
func readLine() (string, error) {
	line, err := stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// confirm asks a yes/no question; anything but y/Y is no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := readLine()
	if err != nil {
		return false
	}
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

// initCmd initializes a new vault
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes a new password vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := openVault(ctx); err != nil {
			return err
		}
		exists, err := v.IsSetup(ctx)
		if err != nil {
			return err
		}
		if exists {
			return vault.ErrVaultAlreadyExists
		}

		fmt.Println("Initializing new vault...")

		// 1. Prompt for master password
		password1, err := readPassword("Enter master password: ")
		if err != nil {
			return err
		}

		// 2. Confirm password unless it came from the environment
		if os.Getenv(passwordEnv) == "" {
			password2, err := promptSecret("Confirm master password: ")
			if err != nil {
				return err
			}
			if password1 != password2 {
				return errors.New("passwords do not match")
			}
		}

		// 3. Validate password strength
		result := vault.ValidateMasterPassword(password1)
		if !result.Valid {
			return fmt.Errorf("password validation failed: %s", result.Warnings[0])
		}
		fmt.Printf("Password strength: %s\n", result.Strength)
		for _, warning := range result.Warnings {
			fmt.Printf("Warning: %s\n", warning)
		}

		// 4. Initialize vault
		if err := v.Signup(ctx, password1); err != nil {
			return fmt.Errorf("failed to initialize vault: %w", err)
		}

		fmt.Printf("Vault initialized successfully at %s\n", cfg.StoragePath())
		return nil
	},
}

// loginCheckCmd verifies the master password without changing anything
var loginCheckCmd = &cobra.Command{
	Use:   "login-check",
	Short: "Verifies the master password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		items, err := v.Items()
		if err != nil {
			return err
		}
		fmt.Printf("Master password OK (%d items)\n", len(items))
		return nil
	},
}

// addCmd stores a new item
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Adds a password to the vault",
	Long: `Adds a password to the vault. The password is read from a hidden prompt,
or generated with --generate.

Examples:
  hygienectl add -t GitHub -u octocat -s github.com
  hygienectl add -t "Work Mail" -u me@example.com --generate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}

		password, err := itemPassword(addGenerate)
		if err != nil {
			return err
		}

		item, err := v.AddPassword(ctx, vault.NewItem{
			Title:    addTitle,
			Username: addUsername,
			Password: password,
			Site:     addSite,
		})
		if err != nil {
			return fmt.Errorf("failed to add password: %w", err)
		}

		fmt.Printf("Added '%s' (%s)\n", item.Title, item.ID)
		warnIfWeak(password)
		if addGenerate {
			fmt.Println(password)
		}
		return nil
	},
}

// rotateCmd replaces the password of an existing item
var rotateCmd = &cobra.Command{
	Use:   "rotate <id|title>",
	Short: "Replaces the password of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}

		item, err := resolve(args[0])
		if err != nil {
			return err
		}
		password, err := itemPassword(rotateGenerate)
		if err != nil {
			return err
		}

		updated, err := v.UpdatePassword(ctx, item.ID, vault.NewItem{
			Title:    item.Title,
			Username: item.Username,
			Password: password,
			Site:     item.Site,
		})
		if err != nil {
			return fmt.Errorf("failed to rotate password: %w", err)
		}

		fmt.Printf("Rotated '%s'\n", updated.Title)
		warnIfWeak(password)
		if rotateGenerate {
			fmt.Println(password)
		}
		return nil
	},
}

// deleteCmd deletes an item
var deleteCmd = &cobra.Command{
	Use:   "delete <id|title>",
	Short: "Deletes an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}

		item, err := resolve(args[0])
		if err != nil {
			return err
		}
		if !deleteForce && !confirm(fmt.Sprintf("Delete '%s'?", item.Title)) {
			fmt.Println("Aborted")
			return nil
		}

		if err := v.DeletePassword(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		fmt.Printf("Item '%s' deleted successfully\n", item.Title)
		return nil
	},
}

// listCmd lists items with their hygiene flags
var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "Lists items (passwords are never shown)",
	Long: `Lists items, newest first. Patterns match title or site, case-insensitively;
a pattern without * ? or [ matches as a substring.

Examples:
  hygienectl list
  hygienectl list mail "bank*"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}

		view, err := v.Analytics()
		if err != nil {
			return err
		}
		items, err := cli.FilterItems(args, view.Items)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No items found")
			return nil
		}

		printItemTable(os.Stdout, items, view, listShowIDs)
		return nil
	},
}

// panicCmd locks the vault immediately and records the event
var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Emergency lock: wipes the session key and records the event",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}
		v.PanicLock(ctx)
		fmt.Println("Vault locked")
		return nil
	},
}

// auditCmd is the parent command for audit operations
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
}

// auditListCmd lists audit log entries
var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}

		var since time.Time
		if auditSince != "" {
			duration, err := parseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid since format: %w", err)
			}
			since = time.Now().Add(-duration)
		}

		events, err := v.AuditEvents(ctx, auditLimit, since)
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		for _, event := range events {
			fmt.Printf("%s  %-7s  %s\n", event.TimeString, event.Type, event.Msg)
		}
		fmt.Printf("\nTotal: %d events\n", len(events))
		return nil
	},
}

// auditClearCmd empties the audit log
var auditClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the audit log (a warning event is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}
		if !auditForce && !confirm("This will delete every audit event. Continue?") {
			fmt.Println("Aborted")
			return nil
		}
		if err := v.ClearAudit(ctx); err != nil {
			return fmt.Errorf("failed to clear audit log: %w", err)
		}
		fmt.Println("Audit log cleared")
		return nil
	},
}

// auditVerifyCmd verifies audit log integrity
var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log HMAC chain integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := ensureUnlocked(ctx); err != nil {
			return err
		}

		fmt.Println("Verifying audit log integrity...")
		result, err := v.VerifyAudit(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify audit log: %w", err)
		}

		if !result.Valid {
			fmt.Printf("✗ Audit log verification FAILED\n")
			fmt.Printf("  Records total: %d\n", result.RecordsTotal)
			fmt.Println("  Errors:")
			for _, e := range result.Errors {
				fmt.Printf("    - %s\n", e)
			}
			return errors.New("audit log integrity check failed")
		}
		fmt.Printf("✓ Audit log verified: %d records, chain intact\n", result.RecordsTotal)
		return nil
	},
}

// resolve finds the item named by ref among the unlocked items.
func resolve(ref string) (*vault.VaultItem, error) {
	items, err := v.Items()
	if err != nil {
		return nil, err
	}
	return cli.ResolveItem(ref, items)
}

// parseDuration parses a duration string like "30d", "1y", "24h"
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("duration too short: %s", s)
	}

	unit := s[len(s)-1]
	valueStr := s[:len(s)-1]

	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", valueStr)
	}

	switch unit {
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		// Try standard time.ParseDuration
		return time.ParseDuration(s)
	}
}
