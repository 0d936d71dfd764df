package ledger

import (
	"context"
	"io"

	"github.com/rustyeddy/tradelog/ingest"
	"github.com/rustyeddy/tradelog/trade"
)

// Batch is one import: raw records from a file or a broker sync.
type Batch struct {
	Records []trade.Raw
	Source  trade.Source

	// Ignored counts non-trade rows the reader dropped (deposits,
	// dividends) so they are reported with the batch.
	Ignored int
}

// ImportResult always reports both outcomes: Saved and Skipped count rows
// that made it through validation, Rejected lists the rows that did not.
// Unmatched lists the SELLs, across the symbols this batch touched, that
// exceed the known open quantity after matching.
type ImportResult struct {
	Saved     int
	Skipped   int
	Ignored   int
	Rejected  []*trade.ValidationError
	Unmatched []*trade.UnmatchedSellError
}

// Import normalizes, deduplicates and appends a batch, then rematches every
// symbol in the batch, including those whose rows were all duplicates, so
// retrying a batch whose rematch failed repairs the match state. Row-level
// problems are collected in the result; the error is reserved for storage
// failures.
func (l *Ledger) Import(ctx context.Context, b Batch) (ImportResult, error) {
	for i := range b.Records {
		if b.Records[i].Source == "" {
			b.Records[i].Source = b.Source
		}
	}
	valid, rejected := l.norm.Normalize(b.Records)
	res := ImportResult{Ignored: b.Ignored, Rejected: rejected}

	for _, r := range rejected {
		l.log.Debug().Int("row", r.Row).Str("field", r.Field).Str("reason", r.Reason).Msg("row rejected")
	}
	if len(valid) == 0 {
		l.logImport(b, res)
		return res, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ins, err := l.repo.InsertIfAbsent(ctx, valid)
	if err != nil {
		l.log.Error().Err(err).Int("rows", len(valid)).Msg("import failed")
		return res, err
	}
	res.Saved = len(ins.Inserted)
	res.Skipped = ins.Skipped

	seen := map[string]bool{}
	var symbols []string
	for _, t := range valid {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	res.Unmatched, err = l.rematchSymbols(ctx, symbols)
	if err != nil {
		l.log.Error().Err(err).Strs("symbols", symbols).Msg("rematch after import failed")
		return res, err
	}

	l.logImport(b, res)
	return res, nil
}

func (l *Ledger) logImport(b Batch, res ImportResult) {
	l.log.Info().
		Str("source", string(b.Source)).
		Int("saved", res.Saved).
		Int("skipped", res.Skipped).
		Int("rejected", len(res.Rejected)).
		Int("ignored", res.Ignored).
		Int("unmatched", len(res.Unmatched)).
		Msg("import complete")
}

// ImportCSV parses r with ingest.ReadCSV and imports the records.
func (l *Ledger) ImportCSV(ctx context.Context, r io.Reader, source trade.Source) (ImportResult, error) {
	parsed, err := ingest.ReadCSV(r, source)
	if err != nil {
		return ImportResult{}, err
	}
	return l.Import(ctx, Batch{Records: parsed.Records, Source: source, Ignored: parsed.Ignored})
}
