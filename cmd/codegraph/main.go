package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"codegraph/internal/config"
	"codegraph/internal/crawler"
	"codegraph/internal/extractor"
	"codegraph/internal/index"
	"codegraph/internal/metrics"
	"codegraph/internal/migrate"
	"codegraph/internal/pipeline"
	"codegraph/internal/resolver"
	"codegraph/internal/schema"
	"codegraph/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:                "codegraph",
		Short:              "Shared code graph for many codebases",
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: writeMetrics,
	}
	configPath  string
	metricsFile string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	migrateCmd.Flags().String("from", "", "Migrate only entities tagged with this version")
	migrateCmd.Flags().String("to", schema.CurrentVersion, "Target schema version; requires --from or --unversioned")
	migrateCmd.Flags().Bool("unversioned", false, "Migrate only entities without a version tag")
	migrateCmd.MarkFlagsMutuallyExclusive("from", "unversioned")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(reportCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func writeMetrics(cmd *cobra.Command, args []string) error {
	if metricsFile == "" {
		return nil
	}
	return metrics.WriteTextfile(metricsFile)
}

// openStore connects to the configured backend.
func openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.Store.Driver,
		SQLitePath:    cfg.Store.SQLite.Path,
		Neo4jURI:      cfg.Store.Neo4j.URI,
		Neo4jUser:     cfg.Store.Neo4j.User,
		Neo4jPassword: cfg.Store.Neo4j.Password,
		Neo4jDatabase: cfg.Store.Neo4j.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	return store, nil
}

func migrationConfig() migrate.Config {
	return migrate.Config{
		AutoMigrate:           cfg.Migration.AutoMigrate,
		BackupBeforeMigration: cfg.Migration.BackupBeforeMigration,
		BackupDir:             cfg.Migration.BackupDir,
	}
}

var importCmd = &cobra.Command{
	Use:   "import [codebase-id...]",
	Short: "Analyze configured codebases and write them into the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(cfg.Codebases) == 0 {
			return fmt.Errorf("no codebases configured in %s", configPath)
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ext, err := extractor.NewExtractor("go")
		if err != nil {
			return fmt.Errorf("failed to create extractor: %w", err)
		}
		codebases := make([]index.Codebase, 0, len(cfg.Codebases))
		for _, cb := range cfg.Codebases {
			codebases = append(codebases, index.Codebase{ID: cb.ID, Root: cb.Root, Module: cb.Module})
		}
		idx := index.NewIndexer(crawler.NewCrawler(ext, cfg.Analyzer.Exclude, nil), codebases, nil)

		fmt.Println("🚀 Importing codebases...")
		res, err := pipeline.NewImporter(store, idx, migrationConfig(), nil).Run(ctx, args...)
		printMigrations(res.Migrations)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Import complete in %v. Nodes=%d Relationships=%d Skipped=%d\n",
			res.Duration, res.Stats.Nodes, res.Stats.Relationships, res.Stats.Skipped)
		for reason, n := range res.Unresolved {
			fmt.Printf("  -> unresolved (%s): %d\n", reason, n)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade stored entities to the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		unversioned, _ := cmd.Flags().GetBool("unversioned")
		if err := checkMigrateFlags(from, unversioned, cmd.Flags().Changed("to")); err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := migrate.NewEngine(store, migrationConfig(), nil)

		if cfg.Migration.BackupBeforeMigration && !engine.CreateBackup(ctx) {
			return pipeline.ErrBackupFailed
		}

		var results []migrate.Result
		switch {
		case unversioned:
			results = append(results, engine.MigrateSchema(ctx, schema.Unversioned, to))
		case from != "":
			results = append(results, engine.MigrateSchema(ctx, from, to))
		default:
			results = engine.MigrateAllToCurrentVersion(ctx)
			has, err := engine.HasUnversioned(ctx)
			if err != nil {
				return err
			}
			if has {
				results = append(results, engine.MigrateSchema(ctx, schema.Unversioned, schema.CurrentVersion))
			}
		}

		if len(results) == 0 {
			fmt.Println("✅ Store is already at schema", schema.CurrentVersion)
			return nil
		}
		printMigrations(results)
		for _, r := range results {
			if !r.Success {
				return pipeline.ErrMigrationFailed
			}
		}
		return nil
	},
}

var errTargetWithoutSource = errors.New("--to requires --from or --unversioned; a full migration always targets " + schema.CurrentVersion)

// checkMigrateFlags rejects an explicit target when no source is selected.
func checkMigrateFlags(from string, unversioned, toSet bool) error {
	if toSet && from == "" && !unversioned {
		return errTargetWithoutSource
	}
	return nil
}

func printMigrations(results []migrate.Result) {
	for _, r := range results {
		from := r.From
		if from == schema.Unversioned {
			from = "(unversioned)"
		}
		if r.Success {
			fmt.Printf("✅ %s -> %s: %d nodes, %d relationships (%v)\n", from, r.To, r.NodesMigrated, r.RelationshipsMigrated, r.Duration)
		} else {
			fmt.Printf("❌ %s -> %s: %s\n", from, r.To, r.Error)
		}
	}
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the schema versions present in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := migrate.NewEngine(store, migrationConfig(), nil)
		versions, err := engine.GetCurrentVersions(ctx)
		if err != nil {
			return err
		}
		unversioned, err := engine.HasUnversioned(ctx)
		if err != nil {
			return err
		}
		needed, err := engine.IsMigrationNeeded(ctx)
		if err != nil {
			return err
		}

		for _, v := range versions {
			marker := ""
			if v == schema.CurrentVersion {
				marker = " (current)"
			}
			fmt.Printf("%s%s\n", v, marker)
		}
		if unversioned {
			fmt.Println("(unversioned entities present)")
		}
		fmt.Printf("migration needed: %t\n", needed || unversioned)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a compressed snapshot of the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		path, err := migrate.NewEngine(store, migrationConfig(), nil).Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("💾 Backup written to %s\n", path)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize how codebases in the graph depend on each other",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		rep := resolver.New(store, resolver.Config{FileTopN: cfg.Report.FileTopN}, nil).Report(ctx)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		printReport(rep)
		return nil
	},
}

func printReport(rep *resolver.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "## Codebases")
	fmt.Fprintln(w, "CODEBASE\tNODES")
	for _, c := range rep.Codebases {
		fmt.Fprintf(w, "%s\t%d\n", c.CodebaseID, c.NodeCount)
	}

	fmt.Fprintln(w, "\n## Kinds")
	fmt.Fprintln(w, "CODEBASE\tKIND\tNODES")
	for _, k := range rep.Kinds {
		fmt.Fprintf(w, "%s\t%s\t%d\n", k.CodebaseID, k.Kind, k.NodeCount)
	}

	fmt.Fprintln(w, "\n## Cross-codebase relationships")
	if len(rep.CrossEdges) == 0 {
		fmt.Fprintln(w, "none found")
	} else {
		fmt.Fprintln(w, "TYPE\tFROM\tTO\tCOUNT")
	}
	for _, e := range rep.CrossEdges {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.RelType, e.SourceCodebaseID, e.TargetCodebaseID, e.RelCount)
	}

	fmt.Fprintln(w, "\n## Dependency matrix")
	if len(rep.Matrix) == 0 {
		fmt.Fprintln(w, "none found")
	} else {
		fmt.Fprintln(w, "FROM\tTO\tWEIGHT")
	}
	for _, d := range rep.Matrix {
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.SourceCodebaseID, d.TargetCodebaseID, d.Weight)
	}

	fmt.Fprintln(w, "\n## File dependencies")
	if len(rep.Files) == 0 {
		fmt.Fprintln(w, "none found")
	} else {
		fmt.Fprintln(w, "FROM\tFILE\tTO\tFILE\tCOUNT")
	}
	for _, f := range rep.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", f.SourceCodebaseID, f.SourceFile, f.TargetCodebaseID, f.TargetFile, f.RelCount)
	}

	for _, warning := range rep.Warnings {
		fmt.Fprintf(w, "\n⚠️  %s\n", warning)
	}
}
