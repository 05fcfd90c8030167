package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/gradplan/internal/app"
	"github.com/vk/gradplan/internal/planner"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envFallbacks maps flags to the environment variables that fill them
// when they are not given on the command line.
var envFallbacks = map[string]string{
	"catalog":    "GRADPLAN_CATALOG",
	"db":         "GRADPLAN_DB",
	"addr":       "GRADPLAN_ADDR",
	"log-level":  "GRADPLAN_LOG_LEVEL",
	"log-format": "GRADPLAN_LOG_FORMAT",
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gradplan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gradplan - Curriculum prerequisite graph and semester planner.

Usage:
  gradplan [options] [CATALOG_PATH]

Arguments:
  CATALOG_PATH
    A .hcl file or a directory of .hcl files, a .csv export or a .snapshot file.

Examples:
  gradplan -program Software -completed CS101,CS102 catalog/
  gradplan -db sqlite:gradplan.db -addr :8080 catalog/
  gradplan -remote http://localhost:8080 -program Software -completed CS101

Options:
`)
		flagSet.PrintDefaults()
	}

	catalogFlag := flagSet.String("catalog", "", "Path to the course catalog.")
	cFlag := flagSet.String("c", "", "Path to the course catalog (shorthand).")
	dbFlag := flagSet.String("db", "", "Database URL: sqlite:PATH or postgres://... Empty keeps everything in memory.")
	addrFlag := flagSet.String("addr", "", "Address to serve the HTTP API and socket.io on, e.g. :8080.")
	programFlag := flagSet.String("program", "", "Program to plan for.")
	completedFlag := flagSet.String("completed", "", "Comma-separated completed course codes.")
	maxCreditsFlag := flagSet.Float64("max-credits", planner.DefaultMaxCredits, "Credit cap for the recommended selection.")
	exportFlag := flagSet.String("export-snapshot", "", "Write the loaded catalog as a snapshot to this path.")
	remoteFlag := flagSet.String("remote", "", "socket.io URL of a running server to plan against.")
	envFileFlag := flagSet.String("env-file", ".env", "Environment file with GRADPLAN_* defaults.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if err := applyEnv(flagSet, *envFileFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := *catalogFlag
	if path == "" {
		path = *cFlag
	}
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Catalog path determined.", "path", path)

	if *addrFlag == "" && *programFlag == "" && *exportFlag == "" {
		slog.Debug("Nothing to do, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		CatalogPath:    path,
		DatabaseURL:    *dbFlag,
		Addr:           *addrFlag,
		Program:        *programFlag,
		Completed:      splitList(*completedFlag),
		MaxCredits:     maxCreditsFlag,
		ExportSnapshot: *exportFlag,
		RemoteURL:      *remoteFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// applyEnv loads envFile when it exists and fills every flag that was not
// set on the command line from its GRADPLAN_* variable. Variables already
// present in the environment win over the file. A positional catalog path
// counts as set.
func applyEnv(flagSet *flag.FlagSet, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
			slog.Debug("Environment file loaded.", "path", envFile)
		}
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for name, key := range envFallbacks {
		if explicit[name] || (name == "catalog" && (explicit["c"] || flagSet.NArg() > 0)) {
			continue
		}
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := flagSet.Set(name, value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
