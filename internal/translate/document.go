package translate

import (
	"context"
	"strings"

	"subburn/internal/logging"
	"subburn/internal/services"
	"subburn/internal/subtitles"
)

// Report summarizes a document translation.
type Report struct {
	Batches         int
	Lines           int
	TranslatedLines int
	FallbackLines   int
	FallbackBatches int
	CacheHits       int
	Attempts        int
}

// Degraded reports whether any batch fell back to source text.
func (r Report) Degraded() bool {
	return r.FallbackBatches > 0
}

// TranslateDocument translates every dialogue line of doc in batches of
// Options.BatchSize and returns a new document. Structural lines pass through
// unchanged; each translated line is trimmed and terminated with "\n".
// Once ctx is done no further batches are sent and the remaining lines keep
// their source text.
func (t *Translator) TranslateDocument(ctx context.Context, doc subtitles.Document) (subtitles.Document, Report) {
	out := make(subtitles.Document, len(doc))
	copy(out, doc)

	total := 0
	for _, line := range doc {
		if subtitles.IsTranslatable(line) {
			total++
		}
	}
	batchCount := (total + t.opts.BatchSize - 1) / t.opts.BatchSize

	var report Report
	batch := make([]string, 0, t.opts.BatchSize)
	positions := make([]int, 0, t.opts.BatchSize)

	dispatch := func() {
		report.Batches++
		batchCtx := services.WithBatchIndex(ctx, report.Batches)
		outcome := t.TranslateBatch(batchCtx, batch, t.opts.MaxRetries)
		for i, pos := range positions {
			out[pos] = outcome.Lines[i] + "\n"
		}

		report.Lines += len(batch)
		report.CacheHits += outcome.CacheHits
		report.Attempts += outcome.Attempts
		if outcome.Fallback {
			report.FallbackBatches++
			report.FallbackLines += len(batch) - outcome.CacheHits
			report.TranslatedLines += outcome.CacheHits
		} else {
			report.TranslatedLines += len(batch)
		}

		logging.WithContext(batchCtx, t.logger).Info("batch processed",
			logging.Int(logging.FieldBatchCount, batchCount),
			logging.Int("lines", len(batch)),
			logging.Bool("fallback", outcome.Fallback),
			logging.Int("cache_hits", outcome.CacheHits),
			logging.Int("attempts", outcome.Attempts),
		)
		batch = batch[:0]
		positions = positions[:0]
	}

	for idx, line := range doc {
		if !subtitles.IsTranslatable(line) {
			continue
		}
		batch = append(batch, strings.TrimSpace(line))
		positions = append(positions, idx)
		if len(batch) == t.opts.BatchSize {
			dispatch()
			if ctx.Err() != nil {
				return out, report
			}
		}
	}
	if len(batch) > 0 && ctx.Err() == nil {
		dispatch()
	}
	return out, report
}
