package dbf

import (
	"context"
)

// Stream is the lazy row sequence of a table. Rows are emitted in on-disk
// order, the configured Skip, MaxRecords and IncludeDeleted options are
// applied to the sequence. The context is consulted at every record
// boundary, a row is never surfaced partially.
type Stream struct {
	file     *File
	ctx      context.Context
	position uint32
	skipped  int
	emitted  int
	row      *Row
	err      error
	done     bool
}

// Stream starts a lazy scan over the rows of the table.
func (file *File) Stream(ctx context.Context) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Stream{file: file, ctx: ctx}
}

// Next advances the stream by one emitted row and reports whether one is
// available. After Next returns false, Err separates exhaustion from
// failure.
func (stream *Stream) Next() bool {
	if stream.done {
		return false
	}
	config := stream.file.config
	for {
		if err := stream.ctx.Err(); err != nil {
			stream.fail(newError("dbf-stream-next-1", err))
			return false
		}
		if config.MaxRecords > 0 && stream.emitted >= config.MaxRecords {
			stream.stop()
			return false
		}
		if stream.position >= stream.file.header.RowsCount {
			stream.stop()
			return false
		}
		data, err := stream.file.ReadRow(stream.position)
		if err != nil {
			if isEOF(err) {
				stream.stop()
			} else {
				stream.fail(err)
			}
			return false
		}
		row, err := stream.file.BytesToRow(data, stream.position)
		stream.position++
		if err != nil {
			if isEOF(err) {
				stream.stop()
			} else {
				stream.fail(err)
			}
			return false
		}
		if row.Deleted && !config.IncludeDeleted {
			continue
		}
		if stream.skipped < config.Skip {
			stream.skipped++
			continue
		}
		stream.row = row
		stream.emitted++
		return true
	}
}

// Row returns the last row read by Next.
func (stream *Stream) Row() *Row {
	return stream.row
}

// Err returns the error that terminated the stream, nil on clean
// exhaustion.
func (stream *Stream) Err() error {
	return stream.err
}

func (stream *Stream) stop() {
	stream.done = true
	stream.row = nil
}

func (stream *Stream) fail(err error) {
	stream.done = true
	stream.row = nil
	stream.err = err
}

// Rows collects the streamed rows into a slice.
func (file *File) Rows(ctx context.Context) ([]*Row, error) {
	rows := make([]*Row, 0)
	stream := file.Stream(ctx)
	for stream.Next() {
		rows = append(rows, stream.Row())
	}
	if err := stream.Err(); err != nil {
		return nil, newError("dbf-stream-rows-1", err)
	}
	return rows, nil
}
