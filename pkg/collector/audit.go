package collector

import (
	"context"
	"strconv"
	"strings"

	"github.com/dtnitsch/corpus-collector/models"
)

// nullReport lists the absent feature positions of the first node that has any,
// with their names when they could be resolved.
type nullReport struct {
	positions []int
	names     []string
}

// auditVector scans nodes in order and stops at the first one with a null
// feature. Only then is the ruleset's metadata fetched, to name the features.
// A zero report means the vector is complete.
func (c *Collector) auditVector(ctx context.Context, vector models.FeatureVector, traineeID string) (nullReport, error) {
	for _, node := range vector.Nodes {
		positions := node.NullPositions()
		if len(positions) == 0 {
			continue
		}

		report := nullReport{positions: positions}
		meta, err := c.trainees.Trainee(ctx, traineeID)
		if err != nil {
			return report, err
		}
		featureNames := meta.Coeffs.Names()
		for _, pos := range positions {
			if pos < len(featureNames) {
				report.names = append(report.names, featureNames[pos])
			} else {
				report.names = append(report.names, "#"+strconv.Itoa(pos))
			}
		}
		return report, nil
	}
	return nullReport{}, nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
