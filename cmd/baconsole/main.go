// BA Console - building automation operator console
//
// This is the main entry point for the BA console. The binary runs the
// local console server (session gate, Modbus proxy, WebSocket events and
// the optional point poller) and also exposes a few scripting commands
// that share the console's persisted session:
//
//	baconsole [-config path] serve
//	baconsole [-config path] login -username u -password p
//	baconsole [-config path] logout | whoami
//	baconsole [-config path] modbus read|write|health|devices [flags]
//	baconsole [-config path] rtsp status|start|stop [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable that overrides the config path.
const configEnv = "BACONSOLE_CONFIG"

// errUsage is returned for malformed command lines.
var errUsage = errors.New("usage: baconsole [-config path] [-version] serve|login|logout|whoami|modbus|rtsp")

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line without the program name
//   - stdout: Destination for command output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("baconsole", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to the YAML configuration file")
	showVersion := fs.Bool("version", false, "print the build version and exit")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if *showVersion {
		fmt.Fprintf(stdout, "baconsole %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	command, rest := "serve", fs.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	configPath := getConfigPath(*configFlag)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	switch command {
	case "serve":
		log := logging.New(cfg.Logging, version)
		log.Info("starting BA console",
			"version", version,
			"commit", commit,
			"build_date", date,
			"config", configPath,
		)
		return serve(ctx, cfg, log)
	case "login", "logout", "whoami", "modbus", "rtsp":
		// Scripting commands keep stdout for their own output.
		logCfg := cfg.Logging
		logCfg.Output = "stderr"
		if logCfg.Level == "info" || logCfg.Level == "" {
			logCfg.Level = "warn"
		}
		return runCommand(ctx, command, rest, cfg, logging.New(logCfg, version), stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// getConfigPath returns the configuration file path: the -config flag,
// then the BACONSOLE_CONFIG environment variable, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}
