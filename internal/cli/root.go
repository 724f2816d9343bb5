// Package cli wires configuration, logging and the services into the
// switchtube command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/switchtube/internal/config"
	"github.com/mmcdole/switchtube/internal/log"
	"github.com/mmcdole/switchtube/internal/switchtube"
)

const (
	// flag name -> config key, stored on each command
	annotationPrefix = "config:"
	// commands talking to the API carry this annotation
	annotationAuth = "auth"
)

// app holds what PersistentPreRunE resolved for the running command.
type app struct {
	configFile string
	plain      bool
	stdin      *os.File

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, os.Stdin)
}

func newRootCmd(version string, stdin *os.File) *cobra.Command {
	a := &app{stdin: stdin}

	root := &cobra.Command{
		Use:           "switchtube",
		Short:         "Download and upload SWITCHtube videos",
		Long:          "Mirror SWITCHtube channels to local storage and upload videos with resumable transfers.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "config file (default "+config.DefaultConfigPath()+"/config.yaml)")
	pf.BoolVar(&a.plain, "plain", false, "print plain progress lines instead of the interactive view")
	pf.String("server", config.DefaultServerURL, "SWITCHtube origin")
	pf.String("token", "", "access token from your SWITCHtube profile")
	pf.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", `log file, "-" for stderr`)
	bindFlag(root, "server", "server.url")
	bindFlag(root, "token", "server.token")
	bindFlag(root, "log-level", "logging.level")
	bindFlag(root, "log-file", "logging.file")

	root.AddCommand(
		newChannelsCmd(a),
		newDownloadCmd(a),
		newUploadCmd(a),
		newSessionsCmd(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

// bindFlag records that flag name overrides config key for cmd and its children.
func bindFlag(cmd *cobra.Command, name, key string) {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[annotationPrefix+name] = key
}

func requireAuth(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[annotationAuth] = "true"
	return cmd
}

// flagKeys collects flag bindings from cmd up to the root.
func flagKeys(cmd *cobra.Command) map[string]string {
	keys := make(map[string]string)
	for c := cmd; c != nil; c = c.Parent() {
		for k, v := range c.Annotations {
			name, ok := strings.CutPrefix(k, annotationPrefix)
			if !ok {
				continue
			}
			if _, seen := keys[name]; !seen {
				keys[name] = v
			}
		}
	}
	return keys
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(config.LoadOptions{
		File:     a.configFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys(cmd),
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if a.interactive(cmd.OutOrStdout()) && (cfg.Logging.File == "" || cfg.Logging.File == "-") {
		// stderr shares the terminal with the progress view
		cfg.Logging.Level = quieterLevel(cfg.Logging.Level)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to stderr if file logging fails
		logger = log.NewTextLogger(cmd.ErrOrStderr(), slog.LevelWarn)
		logger.Warn("failed to set up log file", "file", cfg.Logging.File, "error", err)
	}
	slog.SetDefault(logger)
	a.logger = logger

	if cmd.Annotations[annotationAuth] == "true" && cfg.Server.Token == "" {
		token, err := a.promptToken(cmd)
		if err != nil {
			return err
		}
		cfg.Server.Token = token
	}

	if cmd.Annotations[annotationAuth] == "true" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	a.cfg = cfg
	logger.Debug("configuration loaded", "server", cfg.Server.URL, "command", cmd.Name())
	return nil
}

// newClient creates the API client from the loaded configuration.
func (a *app) newClient() (*switchtube.Client, error) {
	return switchtube.NewClient(a.cfg.Server.URL, a.cfg.Server.Token, a.logger,
		switchtube.WithTimeout(a.cfg.Server.Timeout))
}

// interactive reports whether the progress view can take over w.
func (a *app) interactive(w io.Writer) bool {
	if a.plain {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func quieterLevel(level string) string {
	switch strings.ToUpper(level) {
	case "INFO", "":
		return "WARN"
	}
	return level
}

var errNoToken = errors.New("no access token: set server.token in the config file, SWITCHTUBE_SERVER_TOKEN or --token")
