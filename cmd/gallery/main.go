package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-gallery/internal/cli"
	"github.com/fpang/photo-gallery/internal/config"
	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/logging"
	"github.com/fpang/photo-gallery/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

const metricsNamespace = "PhotoGallery"

// app carries the resolved configuration and the lazily opened session
// for one command invocation.
type app struct {
	envFile   string
	apiURL    string
	token     string
	handleDir string
	logLevel  string
	metrics   bool

	cfg   config.Config
	fs    afero.Fs
	sess  *gallery.Session
	start time.Time
	in    io.Reader
}

func newApp() *app {
	return &app{fs: afero.NewOsFs(), in: os.Stdin}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gallery",
		Short: "Browse, tag, edit and export photos in a remote photo gallery",
		Long: `Gallery is a command-line client for a photo service. It lists and filters
the collection, uploads local images, manages tags, saves edited copies,
and exports photos to a directory, a ZIP archive or an S3 bucket.

Configuration comes from flags, GALLERY_* environment variables and an
optional .env file. The API token is read from GALLERY_TOKEN or from
~/.photo-gallery/token (see "gallery login").

Examples:
  gallery list --tag beach --tag sunset
  gallery upload ~/Pictures/trip
  gallery edit 42 --brightness 120 --saturation 80
  gallery export --tag beach --to beach.zip
  gallery export --to s3://my-bucket/backups`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "Optional .env file to load")
	pf.StringVar(&a.apiURL, "api-url", "", "Photo service base URL (overrides GALLERY_API_URL)")
	pf.StringVar(&a.token, "token", "", "API token (overrides GALLERY_TOKEN)")
	pf.StringVar(&a.handleDir, "handle-dir", "", "Directory for downloaded photo bytes (default: OS temp dir)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides GALLERY_LOG_LEVEL)")
	pf.BoolVar(&a.metrics, "metrics", false, "Write cache and latency metrics to stderr as EMF JSON")

	root.AddCommand(
		a.listCmd(),
		a.tagsCmd(),
		a.uploadCmd(),
		a.inspectCmd(),
		a.deleteCmd(),
		a.tagCmd(),
		a.recommendCmd(),
		a.fetchCmd(),
		a.editCmd(),
		a.exportCmd(),
		a.slideshowCmd(),
		a.loginCmd(),
		a.logoutCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup resolves configuration once per invocation. Flags win over the
// environment, which wins over the .env file.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.start = time.Now()

	level := a.logLevel
	if level == "" {
		level = os.Getenv("GALLERY_LOG_LEVEL")
	}
	logging.InitWithLevel(level, cmd.ErrOrStderr())

	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = strings.TrimRight(a.apiURL, "/")
	}
	if a.token != "" {
		cfg.Token, cfg.TokenSource = a.token, config.TokenFromFlag
	}
	if a.handleDir != "" {
		cfg.HandleDir = a.handleDir
	}
	a.cfg = cfg

	logging.NewStartupLogger("gallery").
		Version(version).
		Endpoint("photoService", cfg.APIURL).
		Feature("metrics", a.metrics).
		Feature("token", cfg.Token != "").
		Config("tokenSource", string(cfg.TokenSource)).
		Config("handleDir", cfg.HandleDir).
		Config("command", cmd.Name()).
		InitDuration(time.Since(a.start)).
		Log()
	return nil
}

// session opens the gallery on first use.
func (a *app) session(cmd *cobra.Command) (*gallery.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	sess, err := cli.InitSession(cmd.Context(), a.cfg)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	return sess, nil
}

// close records metrics and releases every handle. Safe to call twice.
func (a *app) close(cmd *cobra.Command) {
	if a.sess == nil {
		return
	}
	sess := a.sess
	a.sess = nil

	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Msg("Some photo handles could not be released")
	}
	if a.metrics {
		stats := sess.Cache.Stats()
		err := metrics.New(metricsNamespace, cmd.ErrOrStderr()).
			Dimension("Command", cmd.Name()).
			Metric("CacheHits", float64(stats.Hits), metrics.UnitCount).
			Metric("CacheJoins", float64(stats.Joins), metrics.UnitCount).
			Metric("CacheFetches", float64(stats.Fetches), metrics.UnitCount).
			Metric("CacheFailures", float64(stats.Failures), metrics.UnitCount).
			Metric("HandlesReleased", float64(stats.Releases), metrics.UnitCount).
			Duration("CommandLatency", time.Since(a.start)).
			Property("version", version).
			Flush()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics")
		}
	}
}

// withSession runs fn against an open session and closes it afterwards.
func (a *app) withSession(fn func(cmd *cobra.Command, sess *gallery.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess, err := a.session(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd)
		return cli.HandleAPIError(fn(cmd, sess, args), a.cfg.TokenSource)
	}
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
