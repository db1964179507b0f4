package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrhappynice/bplus-searchrs/internal/cli"
	"github.com/mrhappynice/bplus-searchrs/internal/config"
	"github.com/mrhappynice/bplus-searchrs/internal/history"
	"github.com/mrhappynice/bplus-searchrs/internal/logger"
	"github.com/mrhappynice/bplus-searchrs/internal/search"
)

var (
	version = "0.1.0"
)

func initLogger() {
	err := logger.Init(logger.Config{
		LogDir:  config.LogDir(),
		Level:   logger.INFO,
		MaxDays: 7,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
		return
	}
	logger.Info("bplus v%s starting", version)
}

// newAggregator builds the search pipeline from loaded configuration
func newAggregator(cfg *config.Config) *search.Aggregator {
	client := search.NewClient(&http.Client{}, cfg.Search.UserAgent)
	return search.NewAggregator(client, time.Duration(cfg.Search.TimeoutSeconds)*time.Second)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "bplus",
		Short: "bplus - Local Research Assistant",
		Long: `bplus is a local-first research assistant that fans a query out to
multiple search providers and merges the results into one cited list.

It can:
  • Query SearXNG, Reddit, Stack Exchange and Hacker News in parallel
  • Pull results from any JSON search API via a declarative provider spec
  • Suggest query completions while you type
  • Keep a searchable history of past research sessions`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return cli.Run(cfg)
		},
	}

	var searchJSON bool
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a one-shot search and print the merged results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			specs, err := cfg.ActiveSpecs()
			if err != nil {
				return fmt.Errorf("failed to load providers: %w", err)
			}

			query := strings.Join(args, " ")
			rs := newAggregator(cfg).Search(context.Background(), query, specs)
			rs.Truncate(cfg.Search.MaxResults)

			if searchJSON {
				out, err := json.MarshalIndent(rs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			} else {
				printResults(&rs)
			}

			store, err := history.NewSQLiteStore(cfg.History.DBPath)
			if err != nil {
				logger.Warn("Failed to open history store: %v", err)
				return nil
			}
			defer store.Close()
			if err := store.Record(query, &rs, time.Now()); err != nil {
				logger.Warn("Failed to record search in history: %v", err)
			}
			return nil
		},
	}
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the result set as JSON")

	suggestCmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Print query completions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			suggester := search.NewSuggester(&http.Client{}, cfg.Search.UserAgent)
			for _, s := range suggester.Suggest(context.Background(), strings.Join(args, " ")) {
				fmt.Println(s)
			}
			return nil
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List active search providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			specs, err := cfg.ActiveSpecs()
			if err != nil {
				return fmt.Errorf("failed to load providers: %w", err)
			}
			for _, spec := range specs {
				status := "enabled"
				if !spec.Enabled {
					status = "disabled"
				}
				fmt.Printf("%-16s %-8s %s\n", spec.Name, status, spec.URLTemplate)
			}
			return nil
		},
	}

	var addSpec search.ProviderSpec
	var addHeaders []string
	providersAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom provider from a declarative spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			addSpec.Enabled = true
			for _, h := range addHeaders {
				key, value, ok := strings.Cut(h, "=")
				if !ok {
					return fmt.Errorf("invalid header %q, expected key=value", h)
				}
				if addSpec.Headers == nil {
					addSpec.Headers = map[string]string{}
				}
				addSpec.Headers[key] = value
			}
			if err := config.AddProvider(addSpec); err != nil {
				return fmt.Errorf("failed to add provider: %w", err)
			}
			fmt.Printf("Provider %q added\n", addSpec.Name)
			return nil
		},
	}
	providersAddCmd.Flags().StringVar(&addSpec.Name, "name", "", "Provider name (required)")
	providersAddCmd.Flags().StringVar(&addSpec.URLTemplate, "url", "", "URL template containing {query} (required)")
	providersAddCmd.Flags().StringVar(&addSpec.ResultsPath, "results-path", "", "Dot path to the results array")
	providersAddCmd.Flags().StringVar(&addSpec.TitlePath, "title-path", "", "Dot path to an item's title")
	providersAddCmd.Flags().StringVar(&addSpec.URLPath, "url-path", "", "Dot path to an item's URL")
	providersAddCmd.Flags().StringVar(&addSpec.ContentPath, "content-path", "", "Dot path to an item's snippet")
	providersAddCmd.Flags().StringArrayVar(&addHeaders, "header", nil, "Extra request header as key=value (repeatable)")
	providersAddCmd.MarkFlagRequired("name")
	providersAddCmd.MarkFlagRequired("url")

	providersRemoveCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a custom provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RemoveProvider(args[0]); err != nil {
				return fmt.Errorf("failed to remove provider: %w", err)
			}
			fmt.Printf("Provider %q removed\n", args[0])
			return nil
		},
	}
	providersCmd.AddCommand(providersAddCmd)
	providersCmd.AddCommand(providersRemoveCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past research sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			conversations, err := store.ListConversations()
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			for _, conv := range conversations {
				fmt.Printf("%s  %s  %s\n", conv.ID, conv.CreatedAt.Format("2006-01-02 15:04"), conv.Title)
			}
			return nil
		},
	}

	historySearchCmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Full-text search across past sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			messages, err := store.SearchMessages(strings.Join(args, " "), 20)
			if err != nil {
				return fmt.Errorf("failed to search history: %w", err)
			}
			for _, msg := range messages {
				fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04"), msg.Role, msg.Content)
			}
			return nil
		},
	}

	historyBackupCmd := &cobra.Command{
		Use:   "backup <name>",
		Short: "Snapshot the history database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveTo(args[0]); err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			fmt.Printf("Backup %s.db created\n", args[0])
			return nil
		},
	}
	historyRestoreCmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Switch the active history database to a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.LoadFrom(args[0]); err != nil {
				return fmt.Errorf("failed to restore backup: %w", err)
			}
			fmt.Printf("Restored history from %s\n", args[0])
			return nil
		},
	}

	historyBackupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "List available history snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			files, err := store.ListBackupFiles()
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		},
	}

	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyBackupCmd)
	historyCmd.AddCommand(historyRestoreCmd)
	historyCmd.AddCommand(historyBackupsCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bplus v%s\n", version)
		},
	}

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the history store at the configured path
func openStore() (*history.SQLiteStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return store, nil
}

// printResults prints a plain-text result listing
func printResults(rs *search.ResultSet) {
	if len(rs.Results) == 0 {
		fmt.Println("No results found.")
	}
	for i, r := range rs.Results {
		fmt.Printf("%d. %s [%s]\n   %s\n", i+1, r.Title, r.Source, r.URL)
		if r.Content != "" {
			fmt.Printf("   %s\n", r.Content)
		}
		fmt.Println()
	}
	if len(rs.Failures) > 0 {
		fmt.Println("Provider failures:")
		for name, reason := range rs.Failures {
			fmt.Printf("  %s: %s\n", name, reason)
		}
	}
}
