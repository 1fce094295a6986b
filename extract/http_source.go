package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/caselight/caselight/entity/types"
	"github.com/caselight/caselight/errors"
	"github.com/caselight/caselight/internal/httpclient"
)

// DocumentText is one document to send to the NER sidecar.
type DocumentText struct {
	Dataset  string
	Filepath string
	Filename string
	Text     string
}

// HTTPConfig configures the NER sidecar client.
type HTTPConfig struct {
	URL           string
	RatePerMinute int
	MaxRetries    int
	Timeout       time.Duration
	AllowLoopback bool
}

// HTTPSource extracts mentions by POSTing document text to an NER sidecar.
// Requests are rate limited and transient failures retried with backoff.
type HTTPSource struct {
	cfg     HTTPConfig
	docs    []DocumentText
	client  *httpclient.SaferClient
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// NewHTTPSource creates a sidecar-backed source over the given documents.
// logger may be nil.
func NewHTTPSource(cfg HTTPConfig, docs []DocumentText, logger *zap.SugaredLogger) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &HTTPSource{
		cfg:  cfg,
		docs: docs,
		client: httpclient.New(cfg.Timeout, httpclient.Options{
			AllowLoopback: cfg.AllowLoopback,
		}),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1),
		log:     logger,
	}
}

type sidecarRequest struct {
	Text string `json:"text"`
}

type sidecarResponse struct {
	Mentions []Mention `json:"mentions"`
	Model    string    `json:"model,omitempty"`
}

// Extract runs every document through the sidecar and assembles a Result.
// A document that still fails after retries aborts the extraction; nothing
// has been written, so the caller can rerun the whole batch.
func (s *HTTPSource) Extract(ctx context.Context) (*Result, error) {
	result := &Result{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      "sidecar",
		Stats: Stats{
			TotalFiles: len(s.docs),
			ByType:     map[string]int{},
		},
	}

	for _, doc := range s.docs {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			result.Stats.SkippedNoText++
			continue
		}

		var fr *FileResult
		err := WithRetry(ctx, s.cfg.MaxRetries, func() error {
			var attemptErr error
			fr, attemptErr = s.extractOne(ctx, doc, text)
			return attemptErr
		})
		if err != nil {
			return nil, errors.Wrapf(err, "extract %s", doc.Filepath)
		}

		result.Stats.Processed++
		result.Stats.TotalMentionsRaw += fr.MentionsRawCount
		result.Stats.TotalMentionsDeduped += fr.MentionsDedupedCount
		for k, v := range fr.CountsByType {
			result.Stats.ByType[k] += v
		}
		result.Files = append(result.Files, *fr)
	}

	return result, nil
}

func (s *HTTPSource) extractOne(ctx context.Context, doc DocumentText, text string) (*FileResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	body, err := json.Marshal(sidecarRequest{Text: text})
	if err != nil {
		return nil, errors.Wrap(err, "marshal sidecar request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build sidecar request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network-level failures are worth retrying.
		return nil, errors.NewRetryablef("sidecar request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.NewRetryablef("sidecar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return nil, errors.Newf("sidecar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var sr sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, "decode sidecar response")
	}

	fr := s.buildFileResult(doc, text, sr.Mentions)
	if s.log != nil {
		s.log.Debugw("Extracted document",
			"filepath", doc.Filepath,
			"mentions_raw", fr.MentionsRawCount,
			"mentions_deduped", fr.MentionsDedupedCount,
		)
	}
	return fr, nil
}

// buildFileResult normalizes sidecar output: maps spaCy labels, fills
// missing context snippets from the span, and dedups by
// (type, normalized text, position).
func (s *HTTPSource) buildFileResult(doc DocumentText, text string, raw []Mention) *FileResult {
	fr := &FileResult{
		Dataset:          doc.Dataset,
		Filepath:         doc.Filepath,
		Filename:         doc.Filename,
		TextChars:        len(text),
		MentionsRawCount: len(raw),
		CountsByType:     map[string]int{},
	}

	seen := make(map[string]bool, len(raw))
	for _, m := range raw {
		if !types.EntityType(m.Type).IsValid() {
			et, ok := MapLabel(m.Type)
			if !ok {
				if et, ok = MapLabel(m.SpacyLabel); !ok {
					continue
				}
			}
			m.Type = string(et)
		}

		m.Text = strings.TrimSpace(m.Text)
		if m.Text == "" {
			continue
		}

		if m.Position == 0 && m.StartChar > 0 {
			m.Position = m.StartChar
		}
		if m.NormalizedText == "" {
			m.NormalizedText = strings.ToLower(m.Text)
		}
		if m.Context == "" && m.EndChar > m.StartChar {
			m.Context = BuildContextSnippet(text, m.StartChar, m.EndChar)
		}

		key := fmt.Sprintf("%s\x00%s\x00%d", m.Type, m.NormalizedText, m.Position)
		if seen[key] {
			continue
		}
		seen[key] = true

		fr.CountsByType[m.Type]++
		fr.Mentions = append(fr.Mentions, m)
	}

	fr.MentionsDedupedCount = len(fr.Mentions)
	return fr
}
