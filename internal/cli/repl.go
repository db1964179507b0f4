package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/mrhappynice/bplus-searchrs/internal/config"
	"github.com/mrhappynice/bplus-searchrs/internal/history"
	"github.com/mrhappynice/bplus-searchrs/internal/logger"
	"github.com/mrhappynice/bplus-searchrs/internal/search"
)

const (
	Version = "0.1.0"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// session bundles the components the REPL operates on.
type session struct {
	cfg       *config.Config
	agg       *search.Aggregator
	suggester *search.Suggester
	store     history.Store
}

// Run starts the interactive research interface
func Run(cfg *config.Config) error {
	printWelcome()

	httpClient := &http.Client{}
	client := search.NewClient(httpClient, cfg.Search.UserAgent)
	agg := search.NewAggregator(client, time.Duration(cfg.Search.TimeoutSeconds)*time.Second)
	suggester := search.NewSuggester(httpClient, cfg.Search.UserAgent)

	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}
	defer store.Close()

	s := &session{
		cfg:       cfg,
		agg:       agg,
		suggester: suggester,
		store:     store,
	}

	return runREPL(s)
}

// printWelcome prints welcome message
func printWelcome() {
	fmt.Printf("\n%s🔎 bplus v%s%s - Local Research Assistant\n", colorCyan, Version, colorReset)
	fmt.Printf("%sType a query to search, /help for commands, /exit to quit%s\n\n", colorGray, colorReset)
}

// getHistoryFilePath returns the readline history file path
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	historyDir := filepath.Join(homeDir, ".bplus")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(historyDir, "history")
}

// runREPL runs the interactive loop with readline support
func runREPL(s *session) error {
	rlConfig := &readline.Config{
		Prompt:          fmt.Sprintf("%ssearch> %s", colorGreen, colorReset),
		HistoryFile:     getHistoryFilePath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Printf("\n\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
		cancel()
		rl.Close()
		os.Exit(0)
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("\n%sPress Ctrl+C again or type /exit to quit%s\n", colorYellow, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Printf("\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		// Handle built-in commands
		if strings.HasPrefix(input, "/") {
			if handleCommand(ctx, input, s) {
				continue
			}
			return nil // /exit command
		}

		runSearch(ctx, s, input)
	}
}

// runSearch performs a search for the query and prints the merged results
func runSearch(ctx context.Context, s *session, query string) {
	specs, err := s.cfg.ActiveSpecs()
	if err != nil {
		fmt.Printf("%s❌ Provider configuration error: %v%s\n", colorRed, err, colorReset)
		return
	}

	enabled := 0
	for _, spec := range specs {
		if spec.Enabled {
			enabled++
		}
	}
	fmt.Printf("%sSearching %d providers...%s\n\n", colorGray, enabled, colorReset)

	logger.Info("search: %q across %d providers", query, enabled)
	rs := s.agg.Search(ctx, query, specs)
	rs.Truncate(s.cfg.Search.MaxResults)

	printResultSet(&rs)

	if err := s.store.Record(query, &rs, time.Now()); err != nil {
		logger.Warn("Failed to record search in history: %v", err)
		fmt.Printf("%s⚠️  Could not save to history: %v%s\n", colorYellow, err, colorReset)
	}
}

// printResultSet prints results and per-provider failures
func printResultSet(rs *search.ResultSet) {
	if len(rs.Results) == 0 {
		fmt.Printf("%sNo results found.%s\n", colorYellow, colorReset)
	}

	for i, r := range rs.Results {
		fmt.Printf("%s%d. %s%s %s[%s]%s\n", colorBlue, i+1, r.Title, colorReset, colorGray, r.Source, colorReset)
		fmt.Printf("   %s%s%s\n", colorCyan, r.URL, colorReset)
		if snippet := trimSnippet(r.Content, 200); snippet != "" {
			fmt.Printf("   %s\n", snippet)
		}
		fmt.Println()
	}

	if len(rs.Failures) > 0 {
		fmt.Printf("%sProvider failures:%s\n", colorYellow, colorReset)
		for name, reason := range rs.Failures {
			fmt.Printf("  %s%s: %s%s\n", colorGray, name, reason, colorReset)
		}
		fmt.Println()
	}
}

// trimSnippet collapses whitespace and truncates long snippets for display
func trimSnippet(content string, max int) string {
	snippet := strings.Join(strings.Fields(content), " ")
	if len(snippet) <= max {
		return snippet
	}
	return snippet[:max] + "..."
}

// handleCommand handles built-in commands, returns true to continue loop, false to exit
func handleCommand(ctx context.Context, cmd string, s *session) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true
	}

	command := strings.ToLower(parts[0])

	switch command {
	case "/help":
		printHelp()
		return true

	case "/exit", "/quit", "/q":
		fmt.Printf("%sGoodbye! 👋%s\n", colorCyan, colorReset)
		return false

	case "/providers":
		listProviders(s)
		return true

	case "/describe":
		if len(parts) < 2 {
			fmt.Printf("%sUsage: /describe <provider>%s\n", colorYellow, colorReset)
			return true
		}
		describeProvider(s, parts[1])
		return true

	case "/suggest":
		if len(parts) < 2 {
			fmt.Printf("%sUsage: /suggest <partial query>%s\n", colorYellow, colorReset)
			return true
		}
		printSuggestions(ctx, s, strings.Join(parts[1:], " "))
		return true

	case "/new":
		if _, err := s.store.CreateConversation(""); err != nil {
			fmt.Printf("%s❌ Failed to create new session: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Printf("%s✅ New research session started%s\n", colorGreen, colorReset)
		}
		return true

	case "/note":
		if len(parts) < 2 {
			fmt.Printf("%sUsage: /note <text>%s\n", colorYellow, colorReset)
			return true
		}
		saveNote(s, strings.Join(parts[1:], " "))
		return true

	case "/history":
		listConversations(s)
		return true

	case "/config":
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("%s❌ Failed to load config: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Println(cfg.String())
		}
		return true

	default:
		fmt.Printf("%s❓ Unknown command: %s%s\n", colorYellow, cmd, colorReset)
		fmt.Println("Type /help for available commands")
		return true
	}
}

// listProviders prints every active provider spec
func listProviders(s *session) {
	specs, err := s.cfg.ActiveSpecs()
	if err != nil {
		fmt.Printf("%s❌ Provider configuration error: %v%s\n", colorRed, err, colorReset)
		return
	}
	if len(specs) == 0 {
		fmt.Printf("%sNo providers configured%s\n", colorYellow, colorReset)
		return
	}
	for _, spec := range specs {
		status := fmt.Sprintf("%senabled%s", colorGreen, colorReset)
		if !spec.Enabled {
			status = fmt.Sprintf("%sdisabled%s", colorGray, colorReset)
		}
		fmt.Printf("  %s%-16s%s %s  %s%s%s\n", colorBlue, spec.Name, colorReset, status, colorGray, spec.URLTemplate, colorReset)
	}
}

// describeProvider prints the first-item keys from the provider's last response
func describeProvider(s *session, name string) {
	keys := s.agg.DescribeProvider(name)
	if keys == nil {
		fmt.Printf("%sNo captured response for %q. Run a search first.%s\n", colorYellow, name, colorReset)
		return
	}
	if len(keys) == 0 {
		fmt.Printf("%sLast response from %q had no usable item object%s\n", colorYellow, name, colorReset)
		return
	}
	fmt.Printf("First result item keys for %s%s%s:\n", colorBlue, name, colorReset)
	for _, k := range keys {
		fmt.Printf("  %s\n", k)
	}
}

// printSuggestions prints query completions
func printSuggestions(ctx context.Context, s *session, query string) {
	suggestions := s.suggester.Suggest(ctx, query)
	if len(suggestions) == 0 {
		fmt.Printf("%sNo suggestions%s\n", colorYellow, colorReset)
		return
	}
	for _, sug := range suggestions {
		fmt.Printf("  %s\n", sug)
	}
}

// saveNote attaches a note to the latest conversation
func saveNote(s *session, text string) {
	conv, err := s.store.GetLatestConversation()
	if err != nil {
		fmt.Printf("%s❌ Failed to load session: %v%s\n", colorRed, err, colorReset)
		return
	}
	if conv == nil {
		fmt.Printf("%sNo active session. Run a search or /new first.%s\n", colorYellow, colorReset)
		return
	}
	if err := s.store.SaveNote(conv.ID, text); err != nil {
		fmt.Printf("%s❌ Failed to save note: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Printf("%s✅ Note saved%s\n", colorGreen, colorReset)
}

// listConversations prints recent research sessions
func listConversations(s *session) {
	conversations, err := s.store.ListConversations()
	if err != nil {
		fmt.Printf("%s❌ Failed to list sessions: %v%s\n", colorRed, err, colorReset)
		return
	}
	if len(conversations) == 0 {
		fmt.Printf("%sNo research sessions yet%s\n", colorYellow, colorReset)
		return
	}
	for _, conv := range conversations {
		fmt.Printf("  %s%s%s  %s%s%s\n", colorGray, conv.CreatedAt.Format("2006-01-02 15:04"), colorReset, colorBlue, conv.Title, colorReset)
	}
}

// printHelp prints help information
func printHelp() {
	fmt.Printf(`
%s📚 bplus Help%s

%sBuilt-in Commands:%s
  /help               - Show this help message
  /providers          - List active search providers
  /describe <name>    - Show first-item keys from a provider's last response
  /suggest <query>    - Show query completions
  /new                - Start a new research session
  /note <text>        - Attach a note to the current session
  /history            - List past research sessions
  /config             - Show current configuration
  /exit               - Exit program

%sInput Tips:%s
  • Any other input is treated as a search query
  • Use Up/Down arrow keys to browse command history
  • Use Ctrl+A/Ctrl+E to jump to start/end of line
  • Press Ctrl+C to cancel current input

%sExamples:%s
  "raft leader election"
  /suggest how does raft
  /describe reddit

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}
