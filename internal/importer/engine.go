package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
)

// Options configure one engine.
type Options struct {
	BatchSize       int
	Delimiter       rune
	Quote           byte
	Encoding        string
	HeaderMap       map[string]string
	KeyIndex        string
	PreloadMaxKeys  int
	Taxonomies      []string
	TermSeparators  string
	ImageSeparators string
}

func OptionsFromConfig(c config.ImportConfig) Options {
	return Options{
		BatchSize:       c.BatchSize,
		Delimiter:       c.DelimiterRune(),
		Quote:           c.QuoteByte(),
		Encoding:        c.Encoding,
		HeaderMap:       c.HeaderMap,
		KeyIndex:        c.KeyIndex,
		PreloadMaxKeys:  c.PreloadMaxKeys,
		Taxonomies:      c.ManagedTaxonomies,
		TermSeparators:  c.TermSeparators,
		ImageSeparators: c.ImageSeparators,
	}
}

// Engine reconciles a catalog file against the store batch by batch.
type Engine struct {
	store       Store
	terms       TermResolver
	media       MediaResolver
	checkpoints Checkpointer
	opts        Options
	logger      *zap.Logger
}

// NewEngine wires the engine. media and checkpoints may be nil to disable
// image handling and resume.
func NewEngine(store Store, terms TermResolver, media MediaResolver, checkpoints Checkpointer, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 500
	}
	return &Engine{
		store:       store,
		terms:       terms,
		media:       media,
		checkpoints: checkpoints,
		opts:        opts,
		logger:      logger,
	}
}

// Run imports r. Cancelling ctx stops the run after the batch in flight; the
// run is then reported as interrupted and its checkpoint kept. A non-nil error
// means the run aborted; the returned stats are final either way.
func (e *Engine) Run(ctx context.Context, r io.Reader, rep *Reporter) (Stats, error) {
	if err := e.run(ctx, r, rep); err != nil {
		rep.Fatal(err)
		return rep.Finalize(), err
	}
	return rep.Finalize(), nil
}

func (e *Engine) run(ctx context.Context, r io.Reader, rep *Reporter) error {
	logger := e.logger.With(zap.String("run_id", rep.RunID()))

	var offset int64
	if e.checkpoints != nil {
		saved, ok, err := e.checkpoints.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			offset = saved
		}
	}

	dec, err := NewDecoder(r, DecoderOptions{
		Delimiter: e.opts.Delimiter,
		Quote:     e.opts.Quote,
		Encoding:  e.opts.Encoding,
		HeaderMap: e.opts.HeaderMap,
	})
	if err != nil {
		return err
	}

	if offset > 0 {
		skipped, err := dec.Skip(offset)
		if err != nil {
			return err
		}
		if skipped < offset {
			logger.Warn("checkpoint is past the end of the file", zap.Int64("checkpoint", offset), zap.Int64("rows", skipped))
		}
		rep.Resumed(offset)
		logger.Info("resuming from checkpoint", zap.Int64("offset", offset))
	}

	idx, err := NewKeyIndex(ctx, e.store, e.opts.KeyIndex, e.opts.PreloadMaxKeys, logger)
	if err != nil {
		return err
	}

	taxonomies := presentTaxonomies(e.opts.Taxonomies, dec.Header())
	parser := RowParser{
		Taxonomies:      taxonomies,
		TermSeparators:  e.opts.TermSeparators,
		ImageSeparators: e.opts.ImageSeparators,
	}
	writer := NewBulkWriter(e.store, logger)
	batcher := NewBatcher(dec, e.opts.BatchSize, rep.Malformed)

	for {
		if ctx.Err() != nil {
			rep.Interrupted()
			logger.Warn("import interrupted", zap.Int64("offset", dec.Consumed()))
			return nil
		}
		batch, err := batcher.Next()
		rep.Consumed(dec.Consumed() - offset)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		// The batch in flight always finishes.
		bctx := context.WithoutCancel(ctx)
		if err := e.processBatch(bctx, batch, idx, parser, writer, taxonomies, rep); err != nil {
			return err
		}
	}

	if e.checkpoints != nil {
		if err := e.checkpoints.Clear(ctx); err != nil {
			return fmt.Errorf("clear checkpoint: %w", err)
		}
	}
	rep.Completed()
	return nil
}

// processBatch returns an error only when the run must stop.
func (e *Engine) processBatch(ctx context.Context, batch *Batch, idx KeyIndex, parser RowParser, writer *BulkWriter, taxonomies []string, rep *Reporter) error {
	parsed := make([]ParsedRow, len(batch.Rows))
	keys := make([]string, 0, len(batch.Rows))
	for i, row := range batch.Rows {
		parsed[i] = parser.Parse(row)
		for _, w := range parsed[i].Warnings {
			rep.Warning(w)
		}
		if sku := parsed[i].Product.SKU; sku != "" {
			keys = append(keys, sku)
		}
	}

	if err := idx.Prepare(ctx, keys); err != nil {
		rep.BatchFailed(batch, len(keys), &BatchTransactionError{Seq: batch.Seq, Rows: len(keys), Err: err})
		return nil
	}

	part := PartitionRows(parsed, idx)
	rep.Skipped(part.Skipped...)
	if len(part.Create)+len(part.Update) == 0 {
		return e.advance(ctx, batch)
	}

	refs, urls := references(part)
	termIDs := map[domain.TermRef]int64{}
	if len(refs) > 0 && e.terms != nil {
		var errs []error
		termIDs, errs = e.terms.Resolve(ctx, refs)
		for _, err := range errs {
			rep.TermFailure(err)
		}
	}
	var mediaIDs map[string]int64
	if len(urls) > 0 && e.media != nil {
		var errs []error
		mediaIDs, errs = e.media.Resolve(ctx, urls)
		for _, err := range errs {
			rep.MediaFailure(err)
		}
	}

	created, err := writer.Write(ctx, WriteInput{
		Seq:        batch.Seq,
		Partition:  part,
		TermIDs:    termIDs,
		MediaIDs:   mediaIDs,
		Taxonomies: taxonomies,
	})
	if err != nil {
		rep.BatchFailed(batch, len(part.Create)+len(part.Update), err)
		return nil
	}
	for sku, id := range created {
		idx.Insert(sku, id)
	}
	rep.BatchDone(batch, len(part.Create), len(part.Update))
	return e.advance(ctx, batch)
}

func (e *Engine) advance(ctx context.Context, batch *Batch) error {
	if e.checkpoints == nil {
		return nil
	}
	if err := e.checkpoints.Save(ctx, batch.EndOffset); err != nil {
		return fmt.Errorf("save checkpoint after batch %d: %w", batch.Seq, err)
	}
	return nil
}

// references returns the distinct term references and image URLs of the
// rows that will be written, in first-seen order.
func references(part Partition) ([]domain.TermRef, []string) {
	var (
		refs []domain.TermRef
		urls []string
	)
	seenRef := map[domain.TermRef]bool{}
	seenURL := map[string]bool{}
	for _, rows := range [][]ParsedRow{part.Create, part.Update} {
		for _, r := range rows {
			for _, ref := range r.Product.Terms {
				if !seenRef[ref] {
					seenRef[ref] = true
					refs = append(refs, ref)
				}
			}
			for _, u := range r.Product.ImageURLs {
				if !seenURL[u] {
					seenURL[u] = true
					urls = append(urls, u)
				}
			}
		}
	}
	return refs, urls
}

func presentTaxonomies(managed, header []string) []string {
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[h] = true
	}
	var out []string
	for _, t := range managed {
		if cols[t] {
			out = append(out, t)
		}
	}
	return out
}
