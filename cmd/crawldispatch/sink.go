/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/acronis/go-crawldispatch/dispatch"
)

// resultRecord is a line of the crawl output.
type resultRecord struct {
	Seq          uint64    `json:"seq"`
	URL          string    `json:"url"`
	StartedAt    time.Time `json:"startedAt"`
	StartDelayMs int64     `json:"startDelayMs"`
	ElapsedMs    int64     `json:"elapsedMs"`
	Status       int       `json:"status,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	BodySize     int       `json:"bodySize"`
	Error        string    `json:"error,omitempty"`
}

// jsonLinesSink writes every delivered result as a single JSON object per line.
// Bodies are not written, only their sizes.
type jsonLinesSink struct {
	encoder *json.Encoder
}

var _ dispatch.ResultSink = (*jsonLinesSink)(nil)

func newJSONLinesSink(w io.Writer) *jsonLinesSink {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return &jsonLinesSink{encoder: encoder}
}

// Deliver is called sequentially by the dispatcher, so no locking is needed.
func (s *jsonLinesSink) Deliver(_ context.Context, result *dispatch.RequestResult) error {
	rec := resultRecord{
		Seq:          result.Seq,
		URL:          result.Target.String(),
		StartedAt:    result.StartedAt,
		StartDelayMs: result.StartDelay.Milliseconds(),
		ElapsedMs:    result.Elapsed.Milliseconds(),
		Status:       result.StatusCode,
		BodySize:     len(result.Body),
	}
	if result.Header != nil {
		rec.ContentType = result.Header.Get("Content-Type")
	}
	if result.Failed() {
		rec.Error = result.Err.Error()
	}
	if err := s.encoder.Encode(rec); err != nil {
		return fmt.Errorf("write result #%d: %w", result.Seq, err)
	}
	return nil
}
