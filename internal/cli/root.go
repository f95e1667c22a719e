package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"wordcast/internal/bootstrap"
	"wordcast/internal/config"
	"wordcast/internal/logging"
	"wordcast/internal/ports"
	"wordcast/internal/version"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	logger *zap.Logger
	in     io.Reader
	out    io.Writer

	loadConfig func() (config.Config, error)
	build      func(cfg config.Config, sink ports.EventSink, log *zap.Logger) (bootstrap.Services, error)
	isTerminal func(fd int) bool
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		in:         os.Stdin,
		out:        os.Stdout,
		loadConfig: config.Load,
		build:      bootstrap.BuildWithConfig,
		isTerminal: term.IsTerminal,
	}

	cmd := &cobra.Command{
		Use:           "wordcast",
		Short:         "Live dictation with a running word count",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{
				Verbose: app.verbose,
				JSON:    app.jsonLogs,
				Host:    logging.HostCLI,
				NoColor: !app.terminal(os.Stderr.Fd()),
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")

	cmd.AddCommand(newListenCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *appState) terminal(fd uintptr) bool {
	if a.isTerminal == nil {
		return false
	}
	return a.isTerminal(int(fd))
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return a.terminal(os.Stderr.Fd())
}

// liveOutput reports whether stdout is a terminal that can be redrawn in place.
func (a *appState) liveOutput() (bool, int) {
	file, ok := a.outWriter().(*os.File)
	if !ok || !a.terminal(file.Fd()) {
		return false, 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return true, 0
	}
	return true, width
}
