package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wordcast/internal/config"
)

const stopWait = 10 * time.Second

type listenOptions struct {
	locale         string
	engine         string
	continuous     bool
	partialResults bool
	staleAfter     time.Duration
}

func newListenCmd(app *appState) *cobra.Command {
	defaults := config.Default()
	opts := &listenOptions{
		locale:         defaults.Recognition.Locale,
		engine:         defaults.Engine.Provider,
		continuous:     defaults.Session.Continuous,
		partialResults: defaults.Recognition.PartialResults,
		staleAfter:     defaults.Session.StaleAfter,
	}

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Dictate with a live transcript and word count",
		Long: "Start listening on the microphone and show the transcript as it is recognized.\n" +
			"Press Enter to stop; Ctrl+C tears the session down.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runListen(cmd.Context(), cmd.Flags().Changed, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.locale, "locale", opts.locale, "Recognition locale, e.g. en-US")
	cmd.Flags().StringVar(&opts.engine, "engine", opts.engine, "Recognition engine: deepgram|azure")
	cmd.Flags().BoolVar(&opts.continuous, "continuous", opts.continuous, "Keep listening after a final result")
	cmd.Flags().BoolVar(&opts.partialResults, "partial-results", opts.partialResults, "Show partial results while speaking")
	cmd.Flags().DurationVar(&opts.staleAfter, "stale-after", opts.staleAfter, "Clear the transcript after this long without partial results; 0 disables")

	return cmd
}

// apply overrides loaded configuration with flags the user set explicitly.
func (o listenOptions) apply(cfg *config.Config, changed func(name string) bool) {
	if changed("locale") {
		cfg.Recognition.Locale = o.locale
	}
	if changed("engine") {
		cfg.Engine.Provider = o.engine
	}
	if changed("continuous") {
		cfg.Session.Continuous = o.continuous
	}
	if changed("partial-results") {
		cfg.Recognition.PartialResults = o.partialResults
	}
	if changed("stale-after") {
		cfg.Session.StaleAfter = o.staleAfter
	}
}

func (a *appState) runListen(ctx context.Context, changed func(name string) bool, opts listenOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	opts.apply(&cfg, changed)

	live, width := a.liveOutput()
	stopSpinner := startSpinner(a.progressEnabled(), "Connecting")
	defer stopSpinner()

	renderer := newTranscriptRenderer(a.outWriter(), live, width, a.log(), stopSpinner)
	services, err := a.build(cfg, renderer, a.log())
	if err != nil {
		return err
	}
	controller := services.Controller
	defer func() {
		if err := controller.Teardown(context.Background()); err != nil {
			a.log().Warn("teardown failed", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := controller.Start(ctx, services.Locale(), services.RecognitionOptions()); err != nil {
		return err
	}
	a.log().Info("listening; press Enter to stop",
		zap.String("engine", cfg.Engine.Provider),
		zap.String("locale", services.Locale()),
	)

	select {
	case <-renderer.Ended():
	case <-ctx.Done():
		a.log().Debug("interrupted")
	case <-waitForEnter(a.in):
		if err := controller.Stop(ctx); err != nil {
			return err
		}
		select {
		case <-renderer.Ended():
		case <-ctx.Done():
		case <-time.After(stopWait):
			a.log().Warn("engine did not report the end of the session in time")
		}
	}

	stopSpinner()
	renderer.Finish()
	return nil
}

// waitForEnter closes the returned channel when a line is read. It never fires
// when the input is closed or unreadable.
func waitForEnter(in io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	if in == nil {
		return ch
	}
	go func() {
		if _, err := bufio.NewReader(in).ReadString('\n'); err == nil {
			close(ch)
		}
	}()
	return ch
}
