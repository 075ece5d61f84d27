package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/dtnitsch/corpus-collector/models"
)

var errNoReceiver = errors.New("could not establish connection. Receiving end does not exist.")

// fakeTrainees fails each tab's first failures[tabID] vectorize calls, then
// answers with vectors[tabID] (or a single complete one-node vector).
type fakeTrainees struct {
	meta    *models.TraineeMetadata
	metaErr error

	failures  map[int]int
	alwaysErr error
	vectors   map[int]*models.FeatureVector

	attempts     map[int]int
	traineeCalls int
}

func newFakeTrainees(names ...string) *fakeTrainees {
	meta := &models.TraineeMetadata{ViewportSize: models.ViewportSize{Width: 1024, Height: 768}}
	for i, name := range names {
		meta.Coeffs = append(meta.Coeffs, models.Coeff{Name: name, Value: float64(i)})
	}
	return &fakeTrainees{
		meta:     meta,
		failures: map[int]int{},
		vectors:  map[int]*models.FeatureVector{},
		attempts: map[int]int{},
	}
}

func (f *fakeTrainees) Trainee(_ context.Context, _ string) (*models.TraineeMetadata, error) {
	f.traineeCalls++
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeTrainees) VectorizeTab(_ context.Context, tabID int, _ string) (*models.FeatureVector, error) {
	f.attempts[tabID]++
	if f.alwaysErr != nil {
		return nil, f.alwaysErr
	}
	if f.attempts[tabID] <= f.failures[tabID] {
		return nil, errNoReceiver
	}
	if v, ok := f.vectors[tabID]; ok {
		return v, nil
	}
	return &models.FeatureVector{Nodes: []models.Node{{Features: values(float64(tabID))}}}, nil
}

type fakeSink struct {
	data     []byte
	filename string
	calls    int
	err      error
}

func (s *fakeSink) Download(_ context.Context, data []byte, filename string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.data = append([]byte(nil), data...)
	s.filename = filename
	return nil
}

func (s *fakeSink) document(t *testing.T) models.OutputDocument {
	t.Helper()
	var doc models.OutputDocument
	require.NoError(t, json.Unmarshal(s.data, &doc))
	return doc
}

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type countingRecorder struct {
	attempts  map[bool]int
	outcomes  map[models.Outcome]int
	downloads []int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: map[bool]int{}, outcomes: map[models.Outcome]int{}}
}

func (r *countingRecorder) Attempt(success bool)        { r.attempts[success]++ }
func (r *countingRecorder) Page(outcome models.Outcome) { r.outcomes[outcome]++ }
func (r *countingRecorder) Downloaded(bytes int)        { r.downloads = append(r.downloads, bytes) }

func values(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		v := vs[i]
		out[i] = &v
	}
	return out
}

func runOptions(wait int, retry bool, pages ...string) models.RunOptions {
	opts := models.RunOptions{
		Timeout:      time.Hour,
		OtherOptions: models.OtherOptions{TraineeID: "overlay", WaitSeconds: wait, RetryOnError: retry},
	}
	for _, p := range pages {
		opts.URLs = append(opts.URLs, models.URLEntry{URL: p})
	}
	return opts
}

func newTestCollector(trainees *fakeTrainees, sink *fakeSink, sleeper *sleepRecorder) *Collector {
	return New(trainees, sink, WithSleep(sleeper.sleep), WithLogger(zap.NewNop()))
}

func TestVisitPage_NoRetryMakesOneAttempt(t *testing.T) {
	trainees := newFakeTrainees("a")
	trainees.alwaysErr = errNoReceiver
	sleeper := &sleepRecorder{}
	c := newTestCollector(trainees, &fakeSink{}, sleeper)

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1, URL: "a"})

	assert.Equal(t, 1, trainees.attempts[1])
	assert.Equal(t, models.Status{
		Message: "failed: " + errNoReceiver.Error(),
		IsError: true,
		IsFinal: true,
		Outcome: models.OutcomeFailed,
	}, status)
	assert.Equal(t, 0, c.Corpus().Len())
	assert.Equal(t, []time.Duration{0}, sleeper.waits, "no backoff after the final attempt")
}

func TestVisitPage_RetryExhaustsTenAttempts(t *testing.T) {
	trainees := newFakeTrainees("a")
	trainees.alwaysErr = errNoReceiver
	sleeper := &sleepRecorder{}
	c := newTestCollector(trainees, &fakeSink{}, sleeper)

	require.NoError(t, c.BeginRun(context.Background(), runOptions(2, true, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1, URL: "a"})

	assert.Equal(t, 10, trainees.attempts[1])
	assert.True(t, status.IsError)
	assert.Equal(t, models.OutcomeFailed, status.Outcome)
	assert.Equal(t, 0, c.Corpus().Len())

	// settle before every attempt, backoff between attempts only
	require.Len(t, sleeper.waits, 19)
	for i, d := range sleeper.waits {
		if i%2 == 0 {
			assert.Equal(t, 2*time.Second, d, "wait %d", i)
		} else {
			assert.Equal(t, FailureBackoff, d, "wait %d", i)
		}
	}
}

func TestVisitPage_SucceedsAfterRetries(t *testing.T) {
	trainees := newFakeTrainees("a")
	trainees.failures[3] = 2
	sleeper := &sleepRecorder{}
	c := newTestCollector(trainees, &fakeSink{}, sleeper)

	require.NoError(t, c.BeginRun(context.Background(), runOptions(1, true, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 3, URL: "a"})

	assert.Equal(t, models.Status{Message: "vectorized", IsFinal: true, Outcome: models.OutcomeVectorized}, status)
	assert.Equal(t, 3, trainees.attempts[3], "no attempts after success")
	assert.Equal(t, 1, c.Corpus().Len(), "vector appended exactly once")
	assert.Equal(t, []time.Duration{time.Second, FailureBackoff, time.Second, FailureBackoff, time.Second}, sleeper.waits)
}

func TestVisitPage_NegativeWaitMeansNoSettle(t *testing.T) {
	sleeper := &sleepRecorder{}
	c := newTestCollector(newFakeTrainees("a"), &fakeSink{}, sleeper)

	require.NoError(t, c.BeginRun(context.Background(), runOptions(-5, false, "a")))
	c.VisitPage(context.Background(), models.Tab{ID: 1})
	assert.Equal(t, []time.Duration{0}, sleeper.waits)
}

func TestVisitPage_CompleteVectorSkipsMetadata(t *testing.T) {
	trainees := newFakeTrainees("a", "b")
	trainees.vectors[1] = &models.FeatureVector{Nodes: []models.Node{
		{Features: values(1, 2)},
		{Features: values(3, 4)},
	}}
	c := newTestCollector(trainees, &fakeSink{}, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1})

	assert.Equal(t, "vectorized", status.Message)
	assert.Equal(t, 0, trainees.traineeCalls)
}

func TestVisitPage_NullFeatureWarning(t *testing.T) {
	trainees := newFakeTrainees("big", "red", "round")
	one := 1.0
	trainees.vectors[1] = &models.FeatureVector{Nodes: []models.Node{
		{Features: values(1, 2, 3)},
		{Features: []*float64{&one, nil, nil}},
		{Features: []*float64{nil, &one, &one}},
	}}
	c := newTestCollector(trainees, &fakeSink{}, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1})

	assert.Equal(t, models.Status{
		Message: "warning: rule(s) red,round returned null values",
		IsFinal: true,
		Outcome: models.OutcomeWarning,
	}, status)
	assert.False(t, status.IsError)
	assert.Equal(t, 1, trainees.traineeCalls, "only the first node with nulls is audited")
	assert.Equal(t, 1, c.Corpus().Len(), "incomplete vectors stay in the corpus")
}

func TestVisitPage_NullFeatureNamesUnavailable(t *testing.T) {
	trainees := newFakeTrainees("a", "b")
	trainees.metaErr = errors.New("bridge gone")
	trainees.vectors[1] = &models.FeatureVector{Nodes: []models.Node{{Features: []*float64{nil, nil}}}}
	c := newTestCollector(trainees, &fakeSink{}, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1})

	assert.Equal(t, models.OutcomeWarning, status.Outcome)
	assert.Contains(t, status.Message, "position(s) 0,1")
	assert.Contains(t, status.Message, "bridge gone")
	assert.Equal(t, 1, c.Corpus().Len())
}

func TestVisitPage_ContextCanceledDuringSettle(t *testing.T) {
	trainees := newFakeTrainees("a")
	c := New(trainees, &fakeSink{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(60, true, "a")))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status := c.VisitPage(ctx, models.Tab{ID: 1})
	assert.True(t, status.IsError)
	assert.Contains(t, status.Message, context.DeadlineExceeded.Error())
	assert.Equal(t, 0, trainees.attempts[1])
}

func TestHooksBeforeBeginRun(t *testing.T) {
	c := New(newFakeTrainees(), &fakeSink{})

	status := c.VisitPage(context.Background(), models.Tab{ID: 1})
	assert.True(t, status.IsError)
	assert.ErrorIs(t, c.EndRun(context.Background()), ErrRunNotStarted)
	_, err := c.Viewport(context.Background())
	assert.ErrorIs(t, err, ErrRunNotStarted)
	assert.Nil(t, c.Corpus())
}

func TestViewport(t *testing.T) {
	c := New(newFakeTrainees("a"), &fakeSink{})
	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))

	size, err := c.Viewport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ViewportSize{Width: 1024, Height: 768}, size)
}

func TestRun_TwoPagesEndToEnd(t *testing.T) {
	trainees := newFakeTrainees("only")
	sink := &fakeSink{}
	recorder := newCountingRecorder()
	c := New(trainees, sink, WithSleep((&sleepRecorder{}).sleep), WithRecorder(recorder))

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a", "b")))
	for i, url := range []string{"a", "b"} {
		status := c.VisitPage(context.Background(), models.Tab{ID: i + 1, URL: url})
		require.Equal(t, "vectorized", status.Message)
	}
	require.NoError(t, c.EndRun(context.Background()))

	assert.Equal(t, OutputFilename, sink.filename)
	doc := sink.document(t)
	assert.Equal(t, 1, doc.Header.Version)
	assert.Equal(t, []string{"only"}, doc.Header.FeatureNames)
	require.Len(t, doc.Pages, 2)
	for _, page := range doc.Pages {
		assert.Len(t, page.Nodes, 1)
	}

	assert.Equal(t, 2, recorder.attempts[true])
	assert.Equal(t, 2, recorder.outcomes[models.OutcomeVectorized])
	assert.Equal(t, []int{len(sink.data)}, recorder.downloads)
}

func TestRun_AllFailuresStillDownloads(t *testing.T) {
	trainees := newFakeTrainees("only")
	trainees.alwaysErr = errNoReceiver
	sink := &fakeSink{}
	c := newTestCollector(trainees, sink, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	status := c.VisitPage(context.Background(), models.Tab{ID: 1, URL: "a"})
	require.NoError(t, c.EndRun(context.Background()))

	assert.True(t, status.IsError)
	assert.JSONEq(t, `{"header":{"version":1,"featureNames":["only"]},"pages":[]}`, string(sink.data))
}

func TestEndRun_MetadataFailureStillDownloads(t *testing.T) {
	trainees := newFakeTrainees("only")
	sink := &fakeSink{}
	c := newTestCollector(trainees, sink, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	c.VisitPage(context.Background(), models.Tab{ID: 1})
	trainees.metaErr = errors.New("bridge gone")

	err := c.EndRun(context.Background())
	assert.ErrorIs(t, err, ErrIncompleteHeader)
	doc := sink.document(t)
	assert.Empty(t, doc.Header.FeatureNames)
	assert.Len(t, doc.Pages, 1)
}

func TestEndRun_DownloadFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	c := newTestCollector(newFakeTrainees("a"), sink, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	err := c.EndRun(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestBeginRun_ResetsCorpus(t *testing.T) {
	c := newTestCollector(newFakeTrainees("a"), &fakeSink{}, &sleepRecorder{})

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	c.VisitPage(context.Background(), models.Tab{ID: 1})
	require.Equal(t, 1, c.Corpus().Len())

	require.NoError(t, c.BeginRun(context.Background(), runOptions(0, false, "a")))
	assert.Equal(t, 0, c.Corpus().Len())
}

func TestRun_CorpusKeepsVisitOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pageCount := rapid.IntRange(1, 6).Draw(t, "pages")
		trainees := newFakeTrainees("f")
		for tab := 1; tab <= pageCount; tab++ {
			trainees.failures[tab] = rapid.IntRange(0, maxTriesWithRetry-1).Draw(t, fmt.Sprintf("failures_%d", tab))
		}
		c := New(trainees, &fakeSink{}, WithSleep((&sleepRecorder{}).sleep))

		if err := c.BeginRun(context.Background(), runOptions(0, true)); err != nil {
			t.Fatal(err)
		}
		for tab := 1; tab <= pageCount; tab++ {
			if status := c.VisitPage(context.Background(), models.Tab{ID: tab}); status.IsError {
				t.Fatalf("tab %d failed: %s", tab, status.Message)
			}
			if got, want := trainees.attempts[tab], trainees.failures[tab]+1; got != want {
				t.Fatalf("tab %d made %d attempts, want %d", tab, got, want)
			}
		}

		pages := c.Corpus().Pages()
		if len(pages) != pageCount {
			t.Fatalf("corpus has %d pages, want %d", len(pages), pageCount)
		}
		for i, page := range pages {
			if got := *page.Nodes[0].Features[0]; got != float64(i+1) {
				t.Fatalf("page %d holds tab %v", i, got)
			}
		}
	})
}
