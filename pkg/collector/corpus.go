package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dtnitsch/corpus-collector/models"
)

// ErrIncompleteHeader is returned by EndRun when the corpus was downloaded
// without feature names because the ruleset metadata could not be fetched.
var ErrIncompleteHeader = errors.New("collector: feature names unavailable")

// Corpus is the ordered, append-only list of vectors gathered in one run.
type Corpus struct {
	pages []models.FeatureVector
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{pages: []models.FeatureVector{}}
}

// Append adds a page's vector at the end.
func (c *Corpus) Append(vector models.FeatureVector) {
	c.pages = append(c.pages, vector)
}

// Len returns the number of pages collected.
func (c *Corpus) Len() int {
	return len(c.pages)
}

// Pages returns a copy of the collected vectors in visit order. Never nil.
func (c *Corpus) Pages() []models.FeatureVector {
	out := make([]models.FeatureVector, len(c.pages))
	copy(out, c.pages)
	return out
}

// Document wraps the corpus with a header naming each feature position.
func (c *Corpus) Document(featureNames []string) models.OutputDocument {
	if featureNames == nil {
		featureNames = []string{}
	}
	return models.OutputDocument{
		Header: models.OutputHeader{
			Version:      models.OutputVersion,
			FeatureNames: featureNames,
		},
		Pages: c.Pages(),
	}
}

// EndRun fetches the feature names once more and downloads the corpus as
// OutputFilename. The document is written even when the metadata request
// fails; the header's feature names are then empty and ErrIncompleteHeader
// is returned alongside.
func (c *Collector) EndRun(ctx context.Context) error {
	if c.run == nil {
		return ErrRunNotStarted
	}
	r := c.run

	var headerErr error
	var featureNames []string
	meta, err := c.trainees.Trainee(ctx, r.options.TraineeID)
	if err != nil {
		headerErr = fmt.Errorf("%w: %v", ErrIncompleteHeader, err)
		c.logger.Error("failed to fetch feature names for output header", zap.Error(err))
	} else {
		featureNames = meta.Coeffs.Names()
	}

	data, err := json.Marshal(r.corpus.Document(featureNames))
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if err := c.sink.Download(ctx, data, OutputFilename); err != nil {
		return fmt.Errorf("failed to download corpus: %w", err)
	}
	c.recorder.Downloaded(len(data))

	c.logger.Info("corpus downloaded",
		zap.String("filename", OutputFilename),
		zap.Int("page_count", r.corpus.Len()),
		zap.Int("feature_count", len(featureNames)),
		zap.Int("bytes", len(data)))
	return headerErr
}
