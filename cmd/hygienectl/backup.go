package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/forest6511/hygienectl/pkg/backup"
)

var (
	backupOutput         string
	backupStdout         bool
	backupWithAudit      bool
	backupBackupPassword bool
	backupKeyFile        string
	backupForce          bool
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupStdout, "stdout", false, "Output to stdout (for piping)")
	backupCmd.Flags().BoolVar(&backupWithAudit, "with-audit", false, "Include audit log in backup")
	backupCmd.Flags().BoolVar(&backupBackupPassword, "backup-password", false, "Use separate backup password")
	backupCmd.Flags().StringVar(&backupKeyFile, "key-file", "", "Encryption key file (32 bytes)")
	backupCmd.Flags().BoolVarP(&backupForce, "force", "f", false, "Overwrite existing file")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create encrypted backup of the vault",
	Long: `Create an encrypted backup of the vault, including its health timeline.

Vault items stay encrypted under the vault key inside the backup. The
backup itself is encrypted with the master password unless a separate
backup password or key file is given.

Examples:
  # Backup to a file
  hygienectl backup -o vault-backup.enc

  # Backup with audit log
  hygienectl backup -o full-backup.enc --with-audit

  # Backup to stdout (for piping)
  hygienectl backup --stdout | gpg --encrypt > backup.gpg

  # Use separate backup password
  hygienectl backup -o backup.enc --backup-password

  # Use key file for encryption
  hygienectl backup -o backup.enc --key-file=backup.key`,
	RunE: executeBackup,
}

func executeBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateBackupFlags(); err != nil {
		return err
	}

	// The master password proves access and is the default backup secret.
	master, err := unlock(ctx)
	if err != nil {
		return err
	}

	opts := backup.BackupOptions{
		IncludeAudit: backupWithAudit,
		Password:     master,
		KeyFile:      backupKeyFile,
	}
	if backupBackupPassword {
		pwd, err := promptBackupPassword()
		if err != nil {
			return err
		}
		opts.Password = pwd
	}

	var output io.Writer = os.Stdout
	if !backupStdout {
		if !backupForce {
			if _, err := os.Stat(backupOutput); err == nil {
				return fmt.Errorf("output file already exists: %s (use --force to overwrite)", backupOutput)
			}
		}
		f, err := os.OpenFile(backupOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if err := backup.Backup(ctx, st, output, opts); err != nil {
		if !backupStdout {
			_ = os.Remove(backupOutput)
		}
		return fmt.Errorf("backup failed: %w", err)
	}

	if !backupStdout {
		fmt.Printf("Backup created successfully: %s\n", backupOutput)
	}
	return nil
}

func validateBackupFlags() error {
	if !backupStdout && backupOutput == "" {
		return fmt.Errorf("either --output or --stdout is required")
	}
	if backupStdout && backupOutput != "" {
		return fmt.Errorf("--output and --stdout are mutually exclusive")
	}
	if backupKeyFile != "" && backupBackupPassword {
		return fmt.Errorf("--key-file and --backup-password are mutually exclusive")
	}
	return nil
}

func promptBackupPassword() (string, error) {
	password1, err := promptSecret("Enter backup password: ")
	if err != nil {
		return "", err
	}
	password2, err := promptSecret("Confirm backup password: ")
	if err != nil {
		return "", err
	}
	if password1 != password2 {
		return "", fmt.Errorf("passwords do not match")
	}
	if password1 == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password1, nil
}
