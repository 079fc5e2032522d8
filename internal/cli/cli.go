package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/livespan/internal/app"
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

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("livespan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
livespan - Live evaluation of code fragments embedded in markdown.

Usage:
  livespan [options] render FILE
  livespan [options] attach URL

Commands:
  render FILE
    Evaluate every fragment of a markdown file and print the HTML.
  attach URL
    Connect to an editor host over socket.io and serve live documents.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths stringList
	flagSet.Var(&configPaths, "config", "Path to a CUE configuration file. May be repeated; later files win.")
	componentsFlag := flagSet.String("components", "", "Directory of *.tpl component files.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server in attach mode. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'. Default 'text'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Default 'info'.")
	journalFlag := flagSet.Bool("journal", false, "Also send logs to the systemd journal.")
	debounceFlag := flagSet.Duration("debounce", 0, "Delay before re-evaluating an edited document. Default 10ms.")
	namespaceFlag := flagSet.String("namespace", "", "socket.io namespace of the editor host.")
	insecureFlag := flagSet.Bool("insecure", false, "Skip TLS certificate verification when attaching.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() != 2 {
		return nil, false, &ExitError{Code: 2, Message: "expected a command and one argument, e.g. 'render page.md'"}
	}
	command, target := app.Command(flagSet.Arg(0)), flagSet.Arg(1)

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *debounceFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid debounce: must not be negative"}
	}
	if *healthPortFlag < 0 || *healthPortFlag > 65535 {
		return nil, false, &ExitError{Code: 2, Message: "invalid healthcheck-port: must be between 0 and 65535"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg := app.Config{
		Command:         command,
		ConfigPaths:     configPaths,
		ComponentsPath:  *componentsFlag,
		BridgeNamespace: *namespaceFlag,
		Insecure:        *insecureFlag,
		Debounce:        *debounceFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Journal:         *journalFlag,
		HealthcheckPort: *healthPortFlag,
	}
	switch command {
	case app.CommandRender:
		cfg.Input = target
	case app.CommandAttach:
		cfg.BridgeURL = target
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
