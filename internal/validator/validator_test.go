package validator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kimeltech/mcp-chat/internal/catalog"
	"github.com/kimeltech/mcp-chat/internal/registry"
	"github.com/kimeltech/mcp-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	models []catalog.Model
	err    error
	calls  int
}

func (f *fakeCatalog) Fetch(_ context.Context, _ bool) ([]catalog.Model, error) {
	f.calls++
	return f.models, f.err
}

type fakeProber struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeProber) Probe(ctx context.Context, modelID string) (string, error) {
	f.calls = append(f.calls, modelID)
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("probe called without a deadline")
	}
	if err, ok := f.errs[modelID]; ok {
		return "", err
	}
	return f.replies[modelID], nil
}

// hangingProber never answers on its own and returns only when ctx is done
type hangingProber struct{}

func (hangingProber) Probe(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{models: []catalog.Model{
		{ID: "openai/gpt-4o", Name: "GPT-4o"},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"},
		{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet"},
		{ID: "openai/gpt-4-turbo", Name: "GPT-4 Turbo"},
		{ID: "openai/gpt-4", Name: "GPT-4"},
		{ID: "openai/gpt-4-0314", Name: "GPT-4 (older)"},
		{ID: "openai/gpt-4-32k", Name: "GPT-4 32k"},
	}}
}

func entry(id, modelID string) registry.ModelEntry {
	return registry.ModelEntry{ID: id, Name: id + " name", ModelID: modelID, Provider: "Test"}
}

func TestRun_OneOfEachState(t *testing.T) {
	source := testCatalog()
	prober := &fakeProber{
		replies: map[string]string{"openai/gpt-4o": "OK"},
		errs:    map[string]error{"anthropic/claude-3.5-sonnet": errors.New("Error code: 402 - insufficient credits")},
	}
	v := New(source, prober, time.Second, testutil.CreateTestLogger())

	entries := []registry.ModelEntry{
		entry("a", "openai/gpt-5-ultra"),
		entry("b", "anthropic/claude-3.5-sonnet"),
		entry("c", "openai/gpt-4o"),
	}

	var streamed []string
	results, err := v.Run(context.Background(), entries, func(r Result) {
		streamed = append(streamed, r.ID)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, streamed)

	assert.Equal(t, StatusAbsent, results[0].Status)
	assert.False(t, results[0].Exists)
	assert.Nil(t, results[0].ModelInfo)

	assert.Equal(t, StatusUncallable, results[1].Status)
	assert.True(t, results[1].Exists)
	assert.False(t, results[1].Callable)
	assert.Equal(t, "Error code: 402 - insufficient credits", results[1].Error)
	require.NotNil(t, results[1].ModelInfo)
	assert.Equal(t, "Claude 3.5 Sonnet", results[1].ModelInfo.Name)

	assert.Equal(t, StatusCallable, results[2].Status)
	assert.True(t, results[2].Callable)
	assert.Equal(t, "OK", results[2].Response)

	assert.Equal(t, 1, source.calls, "the catalog is fetched once per run")
	assert.Equal(t, []string{"anthropic/claude-3.5-sonnet", "openai/gpt-4o"}, prober.calls, "absent models are never probed")

	assert.False(t, AllPassed(results))
	assert.Equal(t, Summary{Total: 3, Exists: 2, Callable: 1, Absent: 1, Uncallable: 1}, Summarise(results))

	path := filepath.Join(t.TempDir(), "model_validation_report.json")
	report := BuildReport(results, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), "run-1")
	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		Timestamp    string           `json:"timestamp"`
		RunID        string           `json:"run_id"`
		TotalTested  int              `json:"total_tested"`
		FailedModels []map[string]any `json:"failed_models"`
		SuccessRate  string           `json:"success_rate"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2025-01-02T03:04:05Z", decoded.Timestamp)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 3, decoded.TotalTested)
	assert.Len(t, decoded.FailedModels, 2)
	assert.Equal(t, "33.3%", decoded.SuccessRate)
	assert.Equal(t, "absent", decoded.FailedModels[0]["status"])
	assert.Equal(t, "exists_but_uncallable", decoded.FailedModels[1]["status"])
}

func TestValidate_SimilarModelsAndSuggestion(t *testing.T) {
	v := New(testCatalog(), &fakeProber{}, time.Second, testutil.CreateTestLogger())

	result := v.Validate(context.Background(), entry("gpt4", "OpenAI/GPT-4"))

	assert.Equal(t, StatusAbsent, result.Status)
	assert.Equal(t, []string{
		"openai/gpt-4o",
		"openai/gpt-4o-mini",
		"openai/gpt-4-turbo",
		"openai/gpt-4",
		"openai/gpt-4-0314",
	}, result.SimilarModels, "case-insensitive containment, catalog order, at most five")
	assert.Equal(t, "Try one of: openai/gpt-4o, openai/gpt-4o-mini, openai/gpt-4-turbo", result.Suggestion)
	assert.Empty(t, result.ClosestMatches)
}

func TestValidate_ClosestMatchesWhenNothingContainsTheID(t *testing.T) {
	v := New(testCatalog(), &fakeProber{}, time.Second, testutil.CreateTestLogger())

	result := v.Validate(context.Background(), entry("claude", "anthropic/claude-35-sonnet"))

	assert.Equal(t, StatusAbsent, result.Status)
	assert.Empty(t, result.SimilarModels)
	assert.Empty(t, result.Suggestion)
	require.NotEmpty(t, result.ClosestMatches)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", result.ClosestMatches[0])
}

func TestValidate_EmptyReplyIsSuccess(t *testing.T) {
	prober := &fakeProber{replies: map[string]string{"openai/gpt-4": ""}}
	v := New(testCatalog(), prober, time.Second, testutil.CreateTestLogger())

	result := v.Validate(context.Background(), entry("gpt4", "openai/gpt-4"))
	assert.Equal(t, StatusCallable, result.Status)
	assert.Equal(t, "Success", result.Response)
}

func TestValidate_TimedOutCallIsUncallable(t *testing.T) {
	v := New(testCatalog(), hangingProber{}, 50*time.Millisecond, testutil.CreateTestLogger())

	start := time.Now()
	result := v.Validate(context.Background(), entry("gpt4o", "openai/gpt-4o"))
	elapsed := time.Since(start)

	assert.Equal(t, StatusUncallable, result.Status)
	assert.True(t, result.Exists)
	assert.False(t, result.Callable)
	require.NotEmpty(t, result.Error)
	assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
	assert.Less(t, elapsed, time.Second, "the per-call bound cuts the call short")
}

func TestRun_TimedOutCallDoesNotStopTheRun(t *testing.T) {
	v := New(testCatalog(), hangingProber{}, 20*time.Millisecond, testutil.CreateTestLogger())

	results, err := v.Run(context.Background(), []registry.ModelEntry{
		entry("a", "openai/gpt-4o"),
		entry("b", "openai/gpt-4"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, StatusUncallable, r.Status)
	}
}

func TestValidate_CatalogFailureIsLenient(t *testing.T) {
	source := &fakeCatalog{err: errors.New("connection refused")}
	prober := &fakeProber{}
	v := New(source, prober, time.Second, testutil.CreateTestLogger())

	results, err := v.Run(context.Background(), []registry.ModelEntry{
		entry("a", "openai/gpt-4o"),
		entry("b", "anthropic/claude-3.5-sonnet"),
	}, nil)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, StatusAbsent, r.Status)
		assert.Empty(t, r.SimilarModels)
		assert.Empty(t, r.ClosestMatches)
		assert.Empty(t, r.Suggestion)
	}
	assert.Equal(t, 1, source.calls, "a failed fetch is not retried within the run")
	assert.Empty(t, prober.calls)
}

func TestRun_EmptyRegistry(t *testing.T) {
	source := testCatalog()
	v := New(source, &fakeProber{}, 0, nil)

	results, err := v.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, AllPassed(results))
	assert.Zero(t, source.calls, "nothing to validate means no catalog access")

	report := BuildReport(results, time.Now(), "")
	assert.Equal(t, 0, report.TotalTested)
	assert.Empty(t, report.FailedModels)
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	v := New(testCatalog(), &fakeProber{}, time.Second, testutil.CreateTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := v.Run(ctx, []registry.ModelEntry{entry("a", "openai/gpt-4o")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "75.0%", Percent(3, 4))
	assert.Equal(t, "66.7%", Percent(2, 3))
	assert.Equal(t, "0.0%", Percent(0, 5))
	assert.Equal(t, "100.0%", Percent(0, 0))
}

func TestBuildReport_SuccessRate(t *testing.T) {
	results := []Result{
		{ID: "a", Status: StatusCallable, Exists: true, Callable: true},
		{ID: "b", Status: StatusCallable, Exists: true, Callable: true},
		{ID: "c", Status: StatusCallable, Exists: true, Callable: true},
		{ID: "d", Status: StatusUncallable, Exists: true, Error: "boom"},
	}

	report := BuildReport(results, time.Now(), "run")
	assert.Equal(t, "75.0%", report.SuccessRate)
	assert.Equal(t, 4, report.TotalTested)
	require.Len(t, report.FailedModels, 1)
	assert.Equal(t, "d", report.FailedModels[0].ID)
}
