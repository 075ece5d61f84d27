package collect

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/internal/common"
	"github.com/dtnitsch/corpus-collector/models"
)

func CollectAction(c *cli.Context) error {
	logger, err := common.NewLogger(c.Bool("quiet"), c.Bool("verbose"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build logger: %v", err), common.ExitFailure)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := ConfigFromContext(c)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return cli.Exit(err.Error(), common.ExitNoWork)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := Collect(ctx, cfg, logger)
	if errors.Is(err, ErrNoWork) {
		fmt.Fprintln(os.Stderr, "Error: nothing to collect")
		fmt.Fprintln(os.Stderr, "Set --base-url and --pages (or base_url and pages in the config file)")
		return cli.Exit("", common.ExitNoWork)
	}
	if result == nil {
		logger.Error("collect failed", zap.Error(err))
		return cli.Exit(err.Error(), common.ExitFailure)
	}

	if werr := common.WriteFormatted(c.App.Writer, c.String("format"), result); werr != nil {
		return cli.Exit(werr.Error(), common.ExitFailure)
	}
	if err != nil {
		logger.Error("run finished with errors", zap.Error(err))
		return cli.Exit("", common.ExitFailure)
	}
	return nil
}

// ConfigFromContext loads the config file and applies the flags set on c over it.
// Only flags that were set (on the command line or through their environment
// variable) override the file.
func ConfigFromContext(c *cli.Context) (models.Config, error) {
	path := c.String("config")
	cfg, err := models.LoadConfig(path, !c.IsSet("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("pages") {
		cfg.Pages = c.String("pages")
	}
	if c.IsSet("pages-file") {
		cfg.PagesFile = c.String("pages-file")
	}
	if c.IsSet("ruleset") {
		cfg.Ruleset = c.String("ruleset")
	}
	if c.IsSet("wait") {
		cfg.Wait = c.String("wait")
	}
	if c.IsSet("retry-on-error") {
		cfg.RetryOnError = c.Bool("retry-on-error")
	}
	if c.IsSet("bridge-url") {
		cfg.BridgeURL = c.String("bridge-url")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("db") {
		cfg.Database = c.String("db")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("page-timeout") {
		cfg.PageTimeout = c.Duration("page-timeout")
	}
	return cfg, nil
}

// Flags are the collect command's flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: models.DefaultConfigPath, Usage: "YAML config file", EnvVars: []string{"CORPUS_CONFIG"}},
		&cli.StringFlag{Name: "base-url", Usage: "prefix joined to every page", EnvVars: []string{"CORPUS_BASE_URL"}},
		&cli.StringFlag{Name: "pages", Usage: "newline separated page list", EnvVars: []string{"CORPUS_PAGES"}},
		&cli.StringFlag{Name: "pages-file", Usage: "file holding one page per line", EnvVars: []string{"CORPUS_PAGES_FILE"}},
		&cli.StringFlag{Name: "ruleset", Aliases: []string{"r"}, Usage: "trainee ID vectorizing the pages", EnvVars: []string{"CORPUS_RULESET"}},
		&cli.StringFlag{Name: "wait", Aliases: []string{"w"}, Usage: "seconds to let each page settle before vectorizing", EnvVars: []string{"CORPUS_WAIT"}},
		&cli.BoolFlag{Name: "retry-on-error", Usage: "retry failed vectorize requests", EnvVars: []string{"CORPUS_RETRY_ON_ERROR"}},
		&cli.StringFlag{Name: "bridge-url", Usage: "websocket URL of the browser bridge", EnvVars: []string{"CORPUS_BRIDGE_URL"}},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "directory the corpus document is written to", EnvVars: []string{"CORPUS_OUTPUT_DIR"}},
		&cli.StringFlag{Name: "db", Usage: "run log database path", EnvVars: []string{"CORPUS_DB"}},
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address during the run", EnvVars: []string{"CORPUS_METRICS_ADDR"}},
		&cli.DurationFlag{Name: "page-timeout", Usage: "per page time limit", EnvVars: []string{"CORPUS_PAGE_TIMEOUT"}},
		&cli.StringFlag{Name: "format", Value: "yaml", Usage: "result format: yaml or json"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "log errors only"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every status update"},
	}
}
