package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselight/caselight/errors"
)

func sidecarConfig(url string) HTTPConfig {
	return HTTPConfig{
		URL:           url,
		RatePerMinute: 6000,
		MaxRetries:    2,
		Timeout:       5 * time.Second,
		AllowLoopback: true,
	}
}

func TestHTTPSourceExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sidecarRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Text)

		json.NewEncoder(w).Encode(sidecarResponse{
			Mentions: []Mention{
				{Text: "Jeffrey Epstein", SpacyLabel: "PERSON", StartChar: 19, EndChar: 34, Position: 19},
				{Text: "Paris", SpacyLabel: "GPE", StartChar: 48, EndChar: 53, Position: 48},
				{Text: "Monday", SpacyLabel: "DATE", StartChar: 60, EndChar: 66, Position: 60},
				{Text: "Paris", SpacyLabel: "GPE", StartChar: 48, EndChar: 53, Position: 48},
			},
		})
	}))
	defer server.Close()

	docs := []DocumentText{
		{Dataset: "depositions", Filepath: "docs/day1.txt", Filename: "day1.txt",
			Text: "The deposition of Jeffrey Epstein was taken in Paris on Monday."},
		{Dataset: "depositions", Filepath: "docs/empty.txt", Filename: "empty.txt", Text: "   "},
	}

	src := NewHTTPSource(sidecarConfig(server.URL), docs, nil)
	result, err := src.Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.TotalFiles)
	assert.Equal(t, 1, result.Stats.Processed)
	assert.Equal(t, 1, result.Stats.SkippedNoText)
	assert.Equal(t, 4, result.Stats.TotalMentionsRaw)
	assert.Equal(t, 2, result.Stats.TotalMentionsDeduped, "DATE dropped, duplicate Paris deduped")

	require.Len(t, result.Files, 1)
	file := result.Files[0]
	assert.Equal(t, 1, file.CountsByType["PERSON"])
	assert.Equal(t, 1, file.CountsByType["LOCATION"])

	require.Len(t, file.Mentions, 2)
	assert.Equal(t, "PERSON", file.Mentions[0].Type, "spaCy label mapped")
	assert.Equal(t, "jeffrey epstein", file.Mentions[0].NormalizedText)
	assert.Contains(t, file.Mentions[0].Context, "Jeffrey Epstein", "snippet filled from span")
}

func TestHTTPSourceExtract_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(sidecarResponse{
			Mentions: []Mention{{Text: "Acme Corp", SpacyLabel: "ORG", StartChar: 0, EndChar: 9}},
		})
	}))
	defer server.Close()

	docs := []DocumentText{{Filepath: "docs/a.txt", Text: "Acme Corp announced earnings."}}
	src := NewHTTPSource(sidecarConfig(server.URL), docs, nil)

	result, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, result.Files, 1)
	assert.Equal(t, "ORGANIZATION", result.Files[0].Mentions[0].Type)
}

func TestHTTPSourceExtract_ClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	docs := []DocumentText{{Filepath: "docs/a.txt", Text: "some text"}}
	src := NewHTTPSource(sidecarConfig(server.URL), docs, nil)

	_, err := src.Extract(context.Background())
	require.Error(t, err)
	assert.False(t, errors.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}
