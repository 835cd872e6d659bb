package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forest6511/hygienectl/pkg/backup"
)

var (
	restoreDryRun     bool
	restoreVerifyOnly bool
	restoreOnConflict string
	restoreKeyFile    string
	restoreForce      bool
	restoreWithAudit  bool
)

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Show what would be restored without making changes")
	restoreCmd.Flags().BoolVar(&restoreVerifyOnly, "verify-only", false, "Only verify backup integrity")
	restoreCmd.Flags().StringVar(&restoreOnConflict, "on-conflict", "error", "Conflict resolution: overwrite, error")
	restoreCmd.Flags().StringVar(&restoreKeyFile, "key-file", "", "Decryption key file")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Skip confirmation prompt")
	restoreCmd.Flags().BoolVar(&restoreWithAudit, "with-audit", false, "Restore audit log (overwrites existing)")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore vault from encrypted backup",
	Long: `Restore the vault from an encrypted backup file.

The whole vault is replaced: items, master password and timeline all come
from the backup. Restoring over an existing vault requires
--on-conflict=overwrite.

Examples:
  # Dry run (preview only)
  hygienectl restore backup.enc --dry-run

  # Verify backup integrity without restoring
  hygienectl restore backup.enc --verify-only

  # Replace an existing vault
  hygienectl restore backup.enc --on-conflict=overwrite

  # Restore with audit log
  hygienectl restore backup.enc --with-audit

  # Use key file for decryption
  hygienectl restore backup.enc --key-file=backup.key`,
	Args: cobra.ExactArgs(1),
	RunE: executeRestore,
}

func executeRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backupPath := args[0]

	if err := validateRestoreFlags(); err != nil {
		return err
	}
	conflictMode, err := parseConflictMode(restoreOnConflict)
	if err != nil {
		return err
	}

	f, err := os.Open(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("backup file not found: %s", backupPath)
		}
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	var password string
	if restoreKeyFile == "" {
		password, err = promptSecret("Enter backup password (or master password): ")
		if err != nil {
			return err
		}
	}

	if restoreVerifyOnly {
		result, err := backup.Verify(f, password, restoreKeyFile)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !result.Valid {
			return fmt.Errorf("verification failed: %s", result.Error)
		}
		fmt.Printf("Backup verification successful!\n")
		fmt.Printf("  Version: %d\n", result.Version)
		fmt.Printf("  Created: %s\n", result.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  Items: %d\n", result.ItemCount)
		fmt.Printf("  Includes Audit: %v\n", result.IncludesAudit)
		return nil
	}

	if !restoreForce && !restoreDryRun {
		if !confirm("This will replace the vault with the backup. Continue?") {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := openVault(ctx); err != nil {
		return err
	}

	result, err := backup.Restore(ctx, st, f, backup.RestoreOptions{
		OnConflict: conflictMode,
		DryRun:     restoreDryRun,
		WithAudit:  restoreWithAudit,
		Password:   password,
		KeyFile:    restoreKeyFile,
	})
	if err != nil {
		if errors.Is(err, backup.ErrConflict) {
			return fmt.Errorf("%w (use --on-conflict=overwrite to replace it)", err)
		}
		return fmt.Errorf("restore failed: %w", err)
	}

	if result.DryRun {
		fmt.Printf("Dry run complete. Would restore:\n")
	} else {
		fmt.Printf("Restore complete!\n")
	}
	fmt.Printf("  Items restored: %d\n", result.ItemsRestored)
	fmt.Printf("  Snapshots restored: %d\n", result.SnapshotsRestored)
	if result.AuditRestored {
		fmt.Printf("  Audit log: restored\n")
	}
	return nil
}

func validateRestoreFlags() error {
	if _, err := parseConflictMode(restoreOnConflict); err != nil {
		return fmt.Errorf("invalid --on-conflict value: %s (valid: overwrite, error)", restoreOnConflict)
	}
	if restoreDryRun && restoreVerifyOnly {
		return fmt.Errorf("--dry-run and --verify-only are mutually exclusive")
	}
	return nil
}

func parseConflictMode(mode string) (backup.ConflictMode, error) {
	switch mode {
	case "overwrite":
		return backup.ConflictOverwrite, nil
	case "error":
		return backup.ConflictError, nil
	default:
		return backup.ConflictError, fmt.Errorf("unknown conflict mode: %s", mode)
	}
}
