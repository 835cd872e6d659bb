package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/hygienectl/internal/cli"
	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/importer"
	"github.com/forest6511/hygienectl/pkg/vault"
)

// maxImportFileSize bounds export files read into memory.
const maxImportFileSize = 50 << 20

var (
	importFrom      string
	importDryRun    bool
	importMatch     []string
	importKeepDupes bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFrom, "from", "", "Import source: "+strings.Join(importer.ValidSources(), ", ")+" (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without making changes")
	importCmd.Flags().StringSliceVarP(&importMatch, "match", "m", nil, "Only import entries whose title or site matches (glob pattern supported)")
	importCmd.Flags().BoolVar(&importKeepDupes, "keep-duplicates", false, "Import entries whose title and username already exist in the vault")
	_ = importCmd.MarkFlagRequired("from")
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import logins from another password manager",
	Long: `Import logins from a 1Password CSV, Bitwarden JSON or LastPass CSV export.

Only logins with a password are imported. Secure notes, cards, identities
and TOTP seeds are reported and skipped. Entries whose title and username
already exist in the vault are skipped unless --keep-duplicates is set.

Examples:
  # Preview a Bitwarden import
  hygienectl import bitwarden_export.json --from bitwarden --dry-run

  # Import only mail accounts from LastPass
  hygienectl import lastpass.csv --from lastpass -m "*mail*"`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	parser, err := importer.GetParser(importer.Source(strings.ToLower(importFrom)))
	if err != nil {
		return fmt.Errorf("invalid --from value '%s': must be one of %v", importFrom, importer.ValidSources())
	}

	data, err := readImportFile(args[0])
	if err != nil {
		return err
	}

	result, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s file: %w", importFrom, err)
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped: %s (%s)\n", skipped.OriginalName, skipped.Reason)
	}

	if len(importMatch) > 0 {
		result.Items, err = filterImported(result.Items, importMatch)
		if err != nil {
			return err
		}
	}
	if len(result.Items) == 0 {
		fmt.Println("No logins to import")
		return nil
	}

	if importDryRun {
		for _, it := range result.Items {
			fmt.Printf("[dry-run] Would import: %s\n", it.Item.Title)
		}
		fmt.Printf("\n%d logins would be imported\n", len(result.Items))
		return nil
	}

	if err := ensureUnlocked(ctx); err != nil {
		return err
	}

	if !importKeepDupes {
		existing, err := v.Items()
		if err != nil {
			return err
		}
		var dupes []*importer.ImportedItem
		result.Items, dupes = dropExisting(result.Items, existing)
		for _, d := range dupes {
			fmt.Printf("Skipped (exists): %s\n", d.Item.Title)
		}
	}

	sum, err := importer.Apply(ctx, v, result)
	if err != nil {
		return fmt.Errorf("import stopped after %d items: %w", sum.Added, err)
	}

	printImportSummary(sum, len(result.Skipped))
	if len(sum.Failed) > 0 {
		return fmt.Errorf("%d entries failed to import", len(sum.Failed))
	}
	return nil
}

// readImportFile reads and validates an export file.
func readImportFile(filePath string) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}

	// Security check: reject symlinks
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("security: refusing to read symlink: %s", absPath)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", filePath)
	}
	if info.Size() > maxImportFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxImportFileSize)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// filterImported keeps the entries whose title or site matches a pattern.
func filterImported(items []*importer.ImportedItem, patterns []string) ([]*importer.ImportedItem, error) {
	candidates := make([]credential.Item, len(items))
	for i, it := range items {
		candidates[i] = credential.Item{ID: strconv.Itoa(i), Title: it.Item.Title, Site: it.Item.Site}
	}

	matched, err := cli.FilterItems(patterns, candidates)
	if err != nil {
		return nil, err
	}

	out := make([]*importer.ImportedItem, 0, len(matched))
	for _, m := range matched {
		i, _ := strconv.Atoi(m.ID)
		out = append(out, items[i])
	}
	return out, nil
}

// dropExisting splits off entries whose title and username, compared
// case-insensitively, already exist among existing.
func dropExisting(items []*importer.ImportedItem, existing []vault.VaultItem) (keep, dupes []*importer.ImportedItem) {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[dedupeKey(e.Title, e.Username)] = true
	}
	for _, it := range items {
		k := dedupeKey(it.Item.Title, it.Item.Username)
		if seen[k] {
			dupes = append(dupes, it)
			continue
		}
		seen[k] = true
		keep = append(keep, it)
	}
	return keep, dupes
}

func dedupeKey(title, username string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(username))
}

// printImportSummary prints the import summary.
func printImportSummary(sum *importer.Summary, skipped int) {
	fmt.Printf("\nImport summary:\n")
	fmt.Printf("  Imported:  %d\n", sum.Added)
	if skipped > 0 {
		fmt.Printf("  Skipped:   %d\n", skipped)
	}
	if len(sum.Failed) > 0 {
		fmt.Printf("  Failed:    %d\n", len(sum.Failed))
		for _, f := range sum.Failed {
			fmt.Printf("    - %s: %s\n", f.OriginalName, f.Reason)
		}
	}
}
