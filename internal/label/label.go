// Package label implements the label command: it marks an element of a page
// loaded in a tab so the trainee can learn from it.
package label

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/models"
	"github.com/dtnitsch/corpus-collector/pkg/fetcher"
	"github.com/dtnitsch/corpus-collector/pkg/labeler"
	"github.com/dtnitsch/corpus-collector/pkg/messaging"
	"github.com/dtnitsch/corpus-collector/pkg/tabs"
)

var errMissingParams = errors.New("url, selector and label are required")

// Params selects the element to label.
type Params struct {
	URL      string
	Selector string
	Label    string
	// HTMLFile, when set, is parsed instead of fetching URL.
	HTMLFile string
	// TabID is the tab already showing URL. Zero opens a new tab.
	TabID int
}

// Result is printed once the label is sent.
type Result struct {
	URL         string `json:"url" yaml:"url"`
	Selector    string `json:"selector" yaml:"selector"`
	Label       string `json:"label" yaml:"label"`
	TabID       int    `json:"tab_id" yaml:"tab_id"`
	ElementPath []int  `json:"element_path" yaml:"element_path,flow"`
}

// Label resolves p.Selector to an element path and sends the label through bridge.
func Label(ctx context.Context, p Params, bridge messaging.Requester, f *fetcher.Fetcher, logger *zap.Logger) (*Result, error) {
	if p.URL == "" || p.Selector == "" || p.Label == "" {
		return nil, errMissingParams
	}

	doc, err := loadDocument(ctx, p, f)
	if err != nil {
		return nil, err
	}
	path, err := labeler.ElementPath(doc, p.Selector)
	if err != nil {
		return nil, err
	}
	logger.Debug("element resolved", zap.String("selector", p.Selector), zap.Ints("element_path", path))

	tabID := p.TabID
	if tabID == 0 {
		tab, err := tabs.NewClient(bridge).Open(ctx, p.URL, models.ViewportSize{})
		if err != nil {
			return nil, err
		}
		tabID = tab.ID
		logger.Info("opened tab for labeling", zap.Int("tab_id", tabID), zap.String("url", p.URL))
	}

	if err := labeler.NewClient(bridge).Label(ctx, tabID, path, p.Label); err != nil {
		return nil, err
	}
	return &Result{URL: p.URL, Selector: p.Selector, Label: p.Label, TabID: tabID, ElementPath: path}, nil
}

func loadDocument(ctx context.Context, p Params, f *fetcher.Fetcher) (*goquery.Document, error) {
	if p.HTMLFile == "" {
		return f.GetHtml(ctx, p.URL)
	}
	data, err := os.ReadFile(p.HTMLFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.HTMLFile, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
