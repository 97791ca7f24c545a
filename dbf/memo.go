package dbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
)

// MemoType tags the payload of a memo entry.
type MemoType byte

const (
	MemoBinary MemoType = 0 // picture / binary payload
	MemoText   MemoType = 1
	MemoObject MemoType = 2
)

// MemoRecord is one entry of the sibling memo container, retrieved by the
// integer address stored in the table row.
type MemoRecord struct {
	Type MemoType
	Data []byte
}

// MemoReader resolves integer memo addresses to their payload.
// Readers are stateless across calls, block positions are computed from
// the address and block size alone.
type MemoReader interface {
	Read(index uint32) (*MemoRecord, error)
	Close() error
}

// The raw header of the block oriented memo file dialects.
type MemoHeader struct {
	NextFree  uint32  // Location of next free block
	Unused    [2]byte // Unused
	BlockSize uint16  // Block size (bytes per block)
}

const legacyMemoBlockSize = 512

// OpenMemo decodes the memo container header and returns the reader for
// the detected dialect. The dialect is chosen by file extension and by
// inspection of the first block: .fpt files and dBase IV .dbt files carry
// a big endian block size at offset 6 and length prefixed entries, the
// legacy .dbt dialect uses fixed 512 byte blocks terminated by 0x1A.
func OpenMemo(source Source, path string, variant FileType) (MemoReader, error) {
	raw := make([]byte, 8)
	if err := readFull(source, raw); err != nil {
		return nil, newError("dbf-memo-open-1", err)
	}
	header := &MemoHeader{}
	if err := binary.Read(bytes.NewReader(raw), binary.BigEndian, header); err != nil {
		return nil, newError("dbf-memo-open-2", err)
	}
	ext := strings.ToUpper(filepath.Ext(path))
	modern := ext == string(MemoFileExtension)
	if ext == string(LegacyMemoExtension) {
		// dBase IV writes the length prefixed layout into .dbt as well,
		// a plausible block size in the header gives it away.
		modern = variant == DBaseMemo && header.BlockSize >= 32 && header.BlockSize <= 1<<14
	}
	debugf("Memo file %s: dialect=%s block size=%d next free=%d", path, memoDialect(modern), header.BlockSize, header.NextFree)
	if modern {
		if header.BlockSize == 0 {
			return nil, newError("dbf-memo-open-3", MalformedHeaderError{Reason: "memo block size is zero"})
		}
		return &fptReader{source: source, header: header}, nil
	}
	return &dbtReader{source: source}, nil
}

func memoDialect(modern bool) string {
	if modern {
		return "length-prefixed"
	}
	return "fixed-block"
}

// fptReader decodes the length prefixed dialect (.fpt, dBase IV .dbt).
// Each entry starts with a big endian type and length pair, the payload
// spans as many blocks as the length requires.
type fptReader struct {
	source Source
	header *MemoHeader
}

func (r *fptReader) Read(index uint32) (*MemoRecord, error) {
	if index == 0 {
		return nil, nil
	}
	position := int64(index) * int64(r.header.BlockSize)
	head := make([]byte, 8)
	if _, err := r.source.ReadAt(head, position); err != nil {
		return nil, newError("dbf-memo-read-1", fmt.Errorf("memo block %d at %d: %w", index, position, ErrIncomplete))
	}
	kind := binary.BigEndian.Uint32(head[:4])
	length := binary.BigEndian.Uint32(head[4:])
	debugf("Memo block %d => type: %d, length: %d", index, kind, length)
	if kind > uint32(MemoObject) {
		return nil, newError("dbf-memo-read-2", fmt.Errorf("invalid memo entry type %d in block %d", kind, index))
	}
	if length == 0 {
		return &MemoRecord{Type: MemoType(kind)}, nil
	}
	if size, err := r.source.Size(); err == nil && position+8+int64(length) > size {
		return nil, newError("dbf-memo-read-3", fmt.Errorf("memo block %d length %d exceeds file: %w", index, length, ErrIncomplete))
	}
	data := make([]byte, length)
	if _, err := r.source.ReadAt(data, position+8); err != nil {
		return nil, newError("dbf-memo-read-4", fmt.Errorf("memo block %d: %w", index, ErrIncomplete))
	}
	return &MemoRecord{Type: MemoType(kind), Data: data}, nil
}

func (r *fptReader) Close() error {
	return r.source.Close()
}

// dbtReader decodes the legacy fixed block dialect: 512 byte blocks, text
// terminated by 0x1A with no explicit length.
type dbtReader struct {
	source Source
}

func (r *dbtReader) Read(index uint32) (*MemoRecord, error) {
	if index == 0 {
		return nil, nil
	}
	position := int64(index) * legacyMemoBlockSize
	data := make([]byte, 0, legacyMemoBlockSize)
	block := make([]byte, legacyMemoBlockSize)
	for {
		n, err := r.source.ReadAt(block, position)
		if n == 0 && err != nil {
			if len(data) == 0 {
				return nil, newError("dbf-memo-read-5", fmt.Errorf("memo block %d at %d: %w", index, position, ErrIncomplete))
			}
			// Unterminated trailing block, the file simply ends here.
			break
		}
		if end := bytes.IndexByte(block[:n], byte(EOFMarker)); end >= 0 {
			data = append(data, block[:end]...)
			break
		}
		data = append(data, block[:n]...)
		if n < legacyMemoBlockSize {
			break
		}
		position += legacyMemoBlockSize
	}
	return &MemoRecord{Type: MemoText, Data: data}, nil
}

func (r *dbtReader) Close() error {
	return r.source.Close()
}
