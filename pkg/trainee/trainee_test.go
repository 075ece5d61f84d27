package trainee

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/corpus-collector/models"
)

// stubRequester answers each request by JSON round-tripping a canned reply.
type stubRequester struct {
	reply string
	err   error
	sent  []any
}

func (s *stubRequester) Request(_ context.Context, msg any, out any) error {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.reply), out)
}

func TestClient_Trainee(t *testing.T) {
	stub := &stubRequester{reply: `{"viewportSize":{"width":1024,"height":768},"coeffs":[["big",1.5],["red",-2]]}`}
	meta, err := NewClient(stub).Trainee(context.Background(), "overlay")
	require.NoError(t, err)

	assert.Equal(t, models.ViewportSize{Width: 1024, Height: 768}, meta.ViewportSize)
	assert.Equal(t, []string{"big", "red"}, meta.Coeffs.Names())
	assert.Equal(t, []any{TraineeRequest{Type: "trainee", TraineeID: "overlay"}}, stub.sent)
}

func TestClient_TraineeUnknown(t *testing.T) {
	stub := &stubRequester{reply: `null`}
	_, err := NewClient(stub).Trainee(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownTrainee)
}

func TestClient_VectorizeTab(t *testing.T) {
	stub := &stubRequester{reply: `{"nodes":[{"features":[1,null,0.5]}]}`}
	vector, err := NewClient(stub).VectorizeTab(context.Background(), 7, "overlay")
	require.NoError(t, err)

	require.Len(t, vector.Nodes, 1)
	assert.Equal(t, []int{1}, vector.Nodes[0].NullPositions())
	assert.Equal(t, []any{VectorizeTabRequest{Type: "vectorizeTab", TabID: 7, TraineeID: "overlay"}}, stub.sent)
}

func TestClient_VectorizeTabErrors(t *testing.T) {
	transportErr := errors.New("receiving end does not exist")
	_, err := NewClient(&stubRequester{err: transportErr}).VectorizeTab(context.Background(), 1, "x")
	assert.ErrorIs(t, err, transportErr)

	_, err = NewClient(&stubRequester{reply: `null`}).VectorizeTab(context.Background(), 1, "x")
	assert.ErrorIs(t, err, ErrEmptyVector)
}
