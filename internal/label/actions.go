package label

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/internal/common"
	"github.com/dtnitsch/corpus-collector/pkg/fetcher"
	"github.com/dtnitsch/corpus-collector/pkg/labeler"
	"github.com/dtnitsch/corpus-collector/pkg/messaging"
)

const userAgent = "corpus-collector"

func LabelAction(c *cli.Context) error {
	logger, err := common.NewLogger(c.Bool("quiet"), c.Bool("verbose"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build logger: %v", err), common.ExitFailure)
	}
	defer func() { _ = logger.Sync() }()

	params := Params{
		URL:      c.String("url"),
		Selector: c.String("selector"),
		Label:    c.String("label"),
		HTMLFile: c.String("html-file"),
		TabID:    c.Int("tab"),
	}

	bridge, err := messaging.Dial(c.Context, c.String("bridge-url"), logger)
	if err != nil {
		logger.Error("failed to connect to bridge", zap.Error(err))
		return cli.Exit(err.Error(), common.ExitFailure)
	}
	defer bridge.Close()

	result, err := Label(c.Context, params, bridge, fetcher.NewFetcher(userAgent), logger)
	if errors.Is(err, errMissingParams) || errors.Is(err, labeler.ErrNoElement) {
		return cli.Exit(err.Error(), common.ExitNoWork)
	}
	if err != nil {
		logger.Error("label failed", zap.Error(err))
		return cli.Exit(err.Error(), common.ExitFailure)
	}
	return common.WriteFormatted(c.App.Writer, c.String("format"), result)
}

// Flags are the label command's flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "page containing the element", Required: true},
		&cli.StringFlag{Name: "selector", Aliases: []string{"s"}, Usage: "CSS selector of the element", Required: true},
		&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "label to attach", Required: true},
		&cli.StringFlag{Name: "html-file", Usage: "parse this file instead of fetching the page"},
		&cli.IntFlag{Name: "tab", Usage: "tab already showing the page"},
		&cli.StringFlag{Name: "bridge-url", Value: "ws://127.0.0.1:8765/bridge", Usage: "websocket URL of the browser bridge", EnvVars: []string{"CORPUS_BRIDGE_URL"}},
		&cli.StringFlag{Name: "format", Value: "yaml", Usage: "result format: yaml or json"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "log errors only"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
	}
}
