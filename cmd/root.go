package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fdtorres1/felix-tools/internal/config"
	"github.com/fdtorres1/felix-tools/internal/logging"
)

var (
	envFile string
	verbose bool
	logJSON bool
)

// rootCmd represents the base command for the felix tools
var rootCmd = &cobra.Command{
	Use:   "felix",
	Short: "Command-line clients for the team's SaaS back offices",
	Long: `felix bundles the team's operational command-line clients: ClickUp task
management (listing, search and bulk cleanup with name-based resolution of
teams, spaces, lists and users) and a durable Gmail outbox for scheduled
sends.

Credentials are read from the shared agents env file (~/AGENTS.env by
default, override with --env or AGENTS_ENV_PATH).`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "felix version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to the agents env file (default: $AGENTS_ENV_PATH, then ~/AGENTS.env)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON instead of text")

	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newQueueCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(level, logJSON)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load agents env file: %w", err)
	}
	return cfg, nil
}

// printJSON writes v to stdout as indented JSON; results always go to
// stdout while logs go to stderr.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// promptConfirm asks the operator to approve acting on n items.
func promptConfirm(n int) bool {
	fmt.Fprintf(os.Stderr, "Close %d tasks? [y/N]: ", n)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// parseISOTime accepts RFC 3339 timestamps, with the space-for-T shorthand,
// and naive timestamps which are taken as UTC.
func parseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	s = strings.Replace(s, " ", "T", 1)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use ISO 8601, e.g. 2026-08-29T17:30:00Z", s)
}
