package importer

import (
	"errors"
	"io"
)

// Batch is a contiguous run of valid rows. StartOffset and EndOffset are data
// record offsets (Decoder.Consumed) before the first and after the last row.
type Batch struct {
	Seq         int
	Rows        []SourceRow
	StartOffset int64
	EndOffset   int64
}

// Batcher groups decoded rows into batches of at most Size rows.
type Batcher struct {
	dec         *Decoder
	size        int
	seq         int
	onMalformed func(*MalformedRowError)
	done        bool
}

// NewBatcher wraps dec. onMalformed receives every malformed record consumed
// while a batch is being filled; it may be nil.
func NewBatcher(dec *Decoder, size int, onMalformed func(*MalformedRowError)) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{dec: dec, size: size, onMalformed: onMalformed}
}

// Next returns the next batch, or io.EOF once no valid row is left.
func (b *Batcher) Next() (*Batch, error) {
	if b.done {
		return nil, io.EOF
	}
	batch := &Batch{
		Seq:         b.seq + 1,
		Rows:        make([]SourceRow, 0, b.size),
		StartOffset: b.dec.Consumed(),
	}
	for len(batch.Rows) < b.size {
		row, err := b.dec.Next()
		if errors.Is(err, io.EOF) {
			b.done = true
			break
		}
		var merr *MalformedRowError
		if errors.As(err, &merr) {
			if b.onMalformed != nil {
				b.onMalformed(merr)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		batch.Rows = append(batch.Rows, row)
	}
	batch.EndOffset = b.dec.Consumed()
	if len(batch.Rows) == 0 {
		return nil, io.EOF
	}
	b.seq = batch.Seq
	return batch, nil
}
