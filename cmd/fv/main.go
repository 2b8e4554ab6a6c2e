package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"fv-go/internal/app"
	"fv-go/internal/config"
	"fv-go/internal/fv"
	"fv-go/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config (run 'fv config init' first?): %w", err)
	}
	return cfg, defaults.ConfigPath, nil
}

// newApp reads the config and creates an FVApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "import", "list").
func newApp(cmd *cobra.Command, operation string) (*app.FVApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewFVApp(cmd.Context(), cfg, operation, app.WithVerbose(verbose))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", raw)
	}
	return id, nil
}

// recordErr names the id when it matches no file.
func recordErr(id int64, err error) error {
	if fv.IsNotFound(err) {
		return fmt.Errorf("no file with id %d", id)
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:          "fv",
	Short:        "Local file vault with a searchable catalog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Vault:    %s\n", cfg.Vault.Root)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		switch cfg.Vault.Type {
		case "s3":
			fmt.Printf("Vault:      s3://%s/%s (region %s)\n", cfg.Vault.S3Bucket, cfg.Vault.S3Prefix, cfg.Vault.S3Region)
		case "memory":
			fmt.Printf("Vault:      memory\n")
		default:
			fmt.Printf("Vault:      %s\n", cfg.Vault.Root)
		}
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Category:   %s\n", cfg.Import.DefaultCategory)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		if len(cfg.Filesystem.Ignore) > 0 {
			fmt.Printf("Ignore:     %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		}
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import SOURCE",
	Short: "Copy every matching file under SOURCE into the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		preset, _ := cmd.Flags().GetString("type")
		exts, _ := cmd.Flags().GetStringSlice("ext")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		description, _ := cmd.Flags().GetString("description")

		filter, err := buildFilter(preset, exts)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "import")
		if err != nil {
			return err
		}
		defer a.Close()

		progress := app.NewTerminalProgress(os.Stderr, 0)
		result, err := a.Import(cmd.Context(), fv.ImportRequest{
			SourceDir:   args[0],
			Category:    category,
			Tags:        tags,
			Description: description,
			Filter:      filter,
		}, progress)
		progress.Finish()
		if err != nil {
			return err
		}

		for _, f := range result.Failures {
			fmt.Fprintf(os.Stderr, "failed: %v\n", f)
		}
		for _, u := range result.Unrecorded {
			fmt.Fprintf(os.Stderr, "not recorded: %v\n", u)
		}

		switch result.Outcome {
		case fv.StateFailed:
			return result.Err
		case fv.StateCancelled:
			fmt.Printf("Import cancelled: %d file(s) imported before stopping\n", len(result.Records))
		default:
			fmt.Printf("Imported %d file(s) from %s\n", len(result.Records), result.SourceDir)
		}
		if n := len(result.Failures) + len(result.Unrecorded); n > 0 {
			return fmt.Errorf("%d file(s) could not be imported", n)
		}
		return nil
	},
}

func buildFilter(preset string, exts []string) (*fv.ExtensionFilter, error) {
	if preset != "" && len(exts) > 0 {
		return nil, errors.New("--type and --ext cannot be combined")
	}
	if preset != "" {
		return fv.FilterPreset(preset)
	}
	if len(exts) > 0 {
		return fv.ParseExtensionFilter(exts)
	}
	return fv.AllFiles(), nil
}

// list and search commands
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every file in the catalog, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "list")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ListFiles()
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Find files by name, category, tags or description",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "search")
		if err != nil {
			return err
		}
		defer a.Close()

		term := ""
		if len(args) > 0 {
			term = args[0]
		}
		records, err := a.SearchFiles(term)
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

func printRecords(records []*model.FileRecord) {
	if len(records) == 0 {
		fmt.Println("No files found.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tTYPE\tSIZE\tADDED\tTAGS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.OriginalName, r.Category, r.TypeLabel, app.FormatSize(r.Size),
			app.FormatTime(r.DateAdded), strings.Join(r.Tags, ","))
	}
	tw.Flush()
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info ID",
	Short: "Show every detail of one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "info")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.GetFile(id)
		if err != nil {
			return recordErr(id, err)
		}
		printRecord(r)
		return nil
	},
}

func printRecord(r *model.FileRecord) {
	lastAccessed := "never"
	if r.LastAccessed.Valid {
		lastAccessed = fmt.Sprintf("%s (%s)", app.FormatTime(r.LastAccessed.Time), app.FormatAge(r.LastAccessed.Time))
	}
	fmt.Printf("ID:            %d\n", r.ID)
	fmt.Printf("Name:          %s\n", r.OriginalName)
	fmt.Printf("Stored as:     %s\n", r.StoredPath)
	fmt.Printf("Size:          %s (%d bytes)\n", app.FormatSize(r.Size), r.Size)
	fmt.Printf("Type:          %s\n", r.TypeLabel)
	if r.MimeType != "" {
		fmt.Printf("MIME type:     %s\n", r.MimeType)
	}
	fmt.Printf("Category:      %s\n", r.Category)
	fmt.Printf("Tags:          %s\n", strings.Join(r.Tags, ", "))
	fmt.Printf("Description:   %s\n", r.Description)
	fmt.Printf("Added:         %s\n", app.FormatTime(r.DateAdded))
	fmt.Printf("Last accessed: %s\n", lastAccessed)
}

// open command
var openCmd = &cobra.Command{
	Use:   "open ID",
	Short: "Open the stored copy of a file with the default application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printOnly, _ := cmd.Flags().GetBool("print")
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "open")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.OpenFile(id, !printOnly)
		if err != nil {
			return recordErr(id, err)
		}
		if printOnly {
			fmt.Println(path)
		} else {
			fmt.Printf("Opened %s\n", path)
		}
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change the category, tags or description of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var upd fv.FileUpdate
		if cmd.Flags().Changed("category") {
			c, _ := cmd.Flags().GetString("category")
			upd.Category = &c
		}
		if cmd.Flags().Changed("tag") {
			upd.Tags, _ = cmd.Flags().GetStringSlice("tag")
			upd.SetTags = true
		}
		if cmd.Flags().Changed("description") {
			d, _ := cmd.Flags().GetString("description")
			upd.Description = &d
		}
		if upd.Category == nil && !upd.SetTags && upd.Description == nil {
			return errors.New("nothing to change: pass --category, --tag or --description")
		}

		a, err := newApp(cmd, "edit")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.UpdateFile(id, upd)
		if err != nil {
			return recordErr(id, err)
		}
		printRecord(r)
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a file from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetBool("purge")
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFile(id, purge); err != nil {
			return recordErr(id, err)
		}
		if purge {
			fmt.Printf("Deleted file %d and its stored copy\n", id)
		} else {
			fmt.Printf("Deleted file %d (stored copy kept)\n", id)
		}
		return nil
	},
}

// download command
var downloadCmd = &cobra.Command{
	Use:   "download ID DEST",
	Short: "Copy a stored file out of the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd, "download")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.GetFile(id)
		if err != nil {
			return recordErr(id, err)
		}

		progress := app.NewTerminalProgress(os.Stderr, r.Size)
		result, err := a.Download(cmd.Context(), id, args[1], force, progress)
		progress.Finish()
		if err != nil {
			return err
		}

		switch result.Outcome {
		case fv.StateFailed:
			return result.Err
		case fv.StateCancelled:
			fmt.Println("Download cancelled.")
		default:
			fmt.Printf("Downloaded %s (%s) to %s\n", r.OriginalName, app.FormatSize(result.Bytes), result.Destination)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View import history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No imports recorded.")
			return nil
		}

		for _, e := range entries {
			duration := ""
			if e.FinishedAt.Valid {
				d := e.FinishedAt.Time.Sub(e.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %s  %-10s  %3d ok  %3d failed  %-12s  %s  %s\n",
				shortID(e.ID),
				app.FormatTime(e.StartedAt),
				e.Outcome,
				e.IngestedCount,
				e.FailedCount,
				e.Category,
				e.SourceDir,
				duration,
			)
		}
		return nil
	},
}

// shortID keeps the first block of a batch UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Export or restore encrypted catalog snapshots",
}

var catalogExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write an encrypted snapshot of the catalog to FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		a, err := newApp(cmd, "catalog-export")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if a.NeedsPassphrase() {
			passphrase, err = app.ReadPassphrase("Passphrase: ", true)
			if err != nil {
				return err
			}
		}

		if err := a.ExportCatalog(args[0], passphrase, force); err != nil {
			return err
		}
		fmt.Printf("Catalog exported to %s\n", args[0])
		return nil
	},
}

var catalogRestoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Replace the catalog with a snapshot written by 'fv catalog export'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening snapshot: %w", err)
		}
		defer f.Close()

		var passphrase string
		if cfg.Encryption.Type != "none" {
			passphrase, err = app.ReadPassphrase("Passphrase: ", false)
			if err != nil {
				return err
			}
		}

		version, err := app.RestoreCatalog(cfg, f, passphrase, force)
		if err != nil {
			return err
		}
		fmt.Printf("Catalog restored from %s (schema version %d)\n", args[0], version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Also log info and debug messages to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// catalog subcommands
	catalogCmd.AddCommand(catalogExportCmd)
	catalogExportCmd.Flags().Bool("force", false, "Overwrite FILE if it exists")
	catalogCmd.AddCommand(catalogRestoreCmd)
	catalogRestoreCmd.Flags().Bool("force", false, "Replace an existing catalog")

	importCmd.Flags().StringP("category", "c", "", "Category for the imported files (default from config)")
	importCmd.Flags().StringP("type", "t", "", "Import only one kind of file: "+strings.Join(fv.FilterPresetNames(), ", "))
	importCmd.Flags().StringSliceP("ext", "e", nil, "Import only these extensions (e.g. .pdf,.txt)")
	importCmd.Flags().StringSlice("tag", nil, "Tag to attach (repeatable)")
	importCmd.Flags().StringP("description", "d", "", "Description for the imported files")

	editCmd.Flags().StringP("category", "c", "", "New category")
	editCmd.Flags().StringSlice("tag", nil, "Replace tags (repeatable; pass --tag= to clear)")
	editCmd.Flags().StringP("description", "d", "", "New description")

	openCmd.Flags().Bool("print", false, "Print the stored path instead of opening it")
	deleteCmd.Flags().Bool("purge", false, "Also remove the stored copy from the vault")
	downloadCmd.Flags().BoolP("force", "f", false, "Overwrite DEST if it exists")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of imports to show")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(catalogCmd)
}
