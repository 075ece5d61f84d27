// Package trainee talks to the trainee service: the sibling component that
// owns rulesets and computes feature vectors for loaded tabs.
package trainee

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtnitsch/corpus-collector/models"
	"github.com/dtnitsch/corpus-collector/pkg/messaging"
)

var (
	// ErrUnknownTrainee is returned when the service has no ruleset by that ID.
	ErrUnknownTrainee = errors.New("trainee: unknown ruleset")
	// ErrEmptyVector is returned when vectorizeTab answers without a vector.
	ErrEmptyVector = errors.New("trainee: no vector returned")
)

// Message types understood by the service.
const (
	TypeTrainee      = "trainee"
	TypeVectorizeTab = "vectorizeTab"
)

// Service is the trainee service as seen by the collector.
type Service interface {
	Trainee(ctx context.Context, traineeID string) (*models.TraineeMetadata, error)
	VectorizeTab(ctx context.Context, tabID int, traineeID string) (*models.FeatureVector, error)
}

// TraineeRequest asks for a ruleset's metadata.
type TraineeRequest struct {
	Type      string `json:"type"`
	TraineeID string `json:"traineeId"`
}

// VectorizeTabRequest asks for the feature vector of the page loaded in a tab.
type VectorizeTabRequest struct {
	Type      string `json:"type"`
	TabID     int    `json:"tabId"`
	TraineeID string `json:"traineeId"`
}

// Client implements Service over a messaging channel.
type Client struct {
	requester messaging.Requester
}

// NewClient returns a Client sending through r.
func NewClient(r messaging.Requester) *Client {
	return &Client{requester: r}
}

// Trainee fetches ruleset metadata. Nothing is cached.
func (c *Client) Trainee(ctx context.Context, traineeID string) (*models.TraineeMetadata, error) {
	var meta *models.TraineeMetadata
	err := c.requester.Request(ctx, TraineeRequest{Type: TypeTrainee, TraineeID: traineeID}, &meta)
	if err != nil {
		return nil, fmt.Errorf("trainee %q: %w", traineeID, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrainee, traineeID)
	}
	return meta, nil
}

// VectorizeTab asks the service to vectorize the page in tabID with the given ruleset.
func (c *Client) VectorizeTab(ctx context.Context, tabID int, traineeID string) (*models.FeatureVector, error) {
	var vector *models.FeatureVector
	req := VectorizeTabRequest{Type: TypeVectorizeTab, TabID: tabID, TraineeID: traineeID}
	if err := c.requester.Request(ctx, req, &vector); err != nil {
		return nil, err
	}
	if vector == nil {
		return nil, ErrEmptyVector
	}
	return vector, nil
}
