package dbf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Files of at least this size are memory mapped by OpenFile instead of read
// through plain file I/O.
const mmapThreshold = 16 << 20

// File is the reader facade over one table: it owns the byte source, the
// decoded header and descriptors, the attached memo reader and the
// selected encoding converter. Rows borrow from the file and stay valid
// until the file is closed or the loaded set is discarded.
type File struct {
	config    *Config
	source    Source
	path      string
	header    *Header
	columns   []*Column
	converter EncodingConverter
	memo      MemoReader

	rowPointer uint32 // internal row pointer, can be moved
	seqRow     uint32 // next row the sequential cursor will yield
	loaded     []*Row // materialized rows, nil unless Load was called
	stats      *Statistics
}

// OpenFile opens a table from disk together with its sidecar files: the
// memo container (.fpt/.dbt) is attached when the table carries memo
// columns, a .cpg sidecar overrides the header's language driver byte.
// Large files are memory mapped.
func OpenFile(path string, config *Config) (*File, error) {
	config = config.clone()
	path = filepath.Clean(path)
	path, err := findFile(path)
	if err != nil {
		return nil, newError("dbf-file-openfile-1", err)
	}
	handle, err := os.Open(path)
	if err != nil {
		return nil, newError("dbf-file-openfile-2", err)
	}
	var source Source
	if stat, err := handle.Stat(); err == nil && stat.Size() >= mmapThreshold {
		source, err = NewMappedSource(handle)
		if err != nil {
			return nil, newError("dbf-file-openfile-3", err)
		}
	} else {
		source = NewFileSource(handle)
	}
	file, err := open(source, config, path)
	if err != nil {
		source.Close()
		return nil, err
	}
	if err := file.attachSidecars(); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// Open decodes a table from an arbitrary byte source. No sidecar files
// are attached, use AttachMemo for memo resolution.
func Open(source Source, config *Config) (*File, error) {
	return open(source, config.clone(), "")
}

// NewStream decodes a table from a forward only reader. Rows can only be
// read sequentially, random access operations report ErrRequiresSeek.
// Use Spool to turn a large stream into a seekable source instead.
func NewStream(reader io.Reader, config *Config) (*File, error) {
	return open(NewStreamSource(reader), config.clone(), "")
}

func open(source Source, config *Config, path string) (*File, error) {
	debugf("Opening table %q - Trim spaces: %v - Validate fields: %v - Raw mode: %v", path, config.TrimSpaces, config.ValidateFields, config.RawMode)
	raw := make([]byte, headerLength)
	if err := readFull(source, raw); err != nil {
		return nil, newError("dbf-file-open-1", err)
	}
	header, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	size := int64(-1)
	if source.Seekable() {
		if size, err = source.Size(); err != nil {
			return nil, newError("dbf-file-open-2", err)
		}
	}
	if err := header.Validate(size); err != nil {
		return nil, err
	}
	// The descriptor area spans up to the first row, reading it in one
	// piece keeps the cursor aligned with the record area on sequential
	// sources.
	area := make([]byte, int(header.FirstRow)-headerLength)
	if err := readFull(source, area); err != nil {
		return nil, newError("dbf-file-open-3", err)
	}
	columns, err := parseColumns(area, FileType(header.FileType))
	if err != nil {
		return nil, err
	}
	for _, column := range columns {
		if err := column.Validate(FileType(header.FileType)); err != nil {
			return nil, err
		}
	}
	file := &File{
		config:  config,
		source:  source,
		path:    path,
		header:  header,
		columns: columns,
	}
	file.converter = file.selectConverter("")
	debugf("Opened table with %d columns, %d rows, variant %s", len(columns), header.RowsCount, file.variant())
	return file, nil
}

// Converter precedence: explicit override, .cpg sidecar, language driver
// byte, UTF-8 pass through.
func (file *File) selectConverter(sidecar string) EncodingConverter {
	if file.config.Converter != nil {
		return file.config.Converter
	}
	if len(sidecar) > 0 {
		if converter, err := ConverterFromName(sidecar); err == nil {
			debugf("Code page sidecar overrides language driver: %s", sidecar)
			return converter
		}
		debugf("Ignoring unknown code page sidecar value %q", sidecar)
	}
	return ConverterFromCodePage(file.header.CodePage)
}

// attachSidecars resolves the .cpg and memo siblings of a table opened
// from disk.
func (file *File) attachSidecars() error {
	if cpg, err := findSibling(file.path, string(CodePageExtension)); err == nil && len(cpg) > 0 {
		if raw, err := os.ReadFile(cpg); err == nil {
			file.converter = file.selectConverter(strings.TrimSpace(string(raw)))
		}
	}
	if !file.hasMemoColumns() {
		return nil
	}
	path, err := findSibling(file.path, string(MemoFileExtension), string(LegacyMemoExtension))
	if err != nil || len(path) == 0 {
		if file.config.IgnoreMissingMemo {
			debugf("Memo file for %q missing, memo values resolve to nil", file.path)
			return nil
		}
		return newError("dbf-file-attachsidecars-1", MissingMemoError{TablePath: file.path, MemoPath: memoPath(file.path, file.variant())})
	}
	handle, err := os.Open(path)
	if err != nil {
		if file.config.IgnoreMissingMemo {
			return nil
		}
		return newError("dbf-file-attachsidecars-2", MissingMemoError{TablePath: file.path, MemoPath: path})
	}
	memo, err := OpenMemo(NewFileSource(handle), path, file.variant())
	if err != nil {
		handle.Close()
		if file.config.IgnoreMissingMemo {
			debugf("Memo file %q unreadable (%v), memo values resolve to nil", path, err)
			return nil
		}
		return newError("dbf-file-attachsidecars-3", err)
	}
	file.memo = memo
	return nil
}

// AttachMemo attaches an already opened memo reader, used when the table
// was opened from a raw source instead of a path.
func (file *File) AttachMemo(memo MemoReader) {
	file.memo = memo
}

// Closes the byte source and the attached memo reader.
func (file *File) Close() error {
	var first error
	if file.memo != nil {
		if err := file.memo.Close(); err != nil {
			first = err
		}
		file.memo = nil
	}
	if file.source != nil {
		if err := file.source.Close(); err != nil && first == nil {
			first = err
		}
		file.source = nil
	}
	return first
}

func (file *File) variant() FileType {
	return FileType(file.header.FileType)
}

func (file *File) hasMemoColumns() bool {
	for _, column := range file.columns {
		if DataType(column.DataType).MemoType(file.variant()) {
			return true
		}
	}
	return false
}

// Returns the dBase table file header struct for inspecting
func (file *File) Header() *Header {
	return file.header
}

// Returns the detected file format variant
func (file *File) Variant() FileType {
	return file.variant()
}

// Returns the active encoding converter
func (file *File) Converter() EncodingConverter {
	return file.converter
}

// returns the number of rows
func (file *File) RowsCount() uint32 {
	return file.header.RowsCount
}

// Returns all columns
func (file *File) Columns() []*Column {
	return file.columns
}

// Returns the requested column
func (file *File) Column(pos int) *Column {
	if pos < 0 || pos >= len(file.columns) {
		return nil
	}
	return file.columns[pos]
}

// Returns the number of columns
func (file *File) ColumnsCount() uint16 {
	return uint16(len(file.columns))
}

// Returns a slice of all the column names, lowercased when configured
func (file *File) ColumnNames() []string {
	names := make([]string, len(file.columns))
	for i := range file.columns {
		names[i] = file.columnName(file.columns[i])
	}
	return names
}

func (file *File) columnName(column *Column) string {
	name := column.Name()
	if decoded, err := file.converter.Decode([]byte(name)); err == nil {
		name = string(decoded)
	}
	if file.config.LowercaseFieldNames {
		name = strings.ToLower(name)
	}
	return name
}

// Returns the column position of a column by name or -1 if not found.
// Matching is case insensitive unless configured otherwise.
func (file *File) ColumnPosByName(name string) int {
	for i := range file.columns {
		candidate := file.columnName(file.columns[i])
		if candidate == name {
			return i
		}
		if file.config.IgnoreCase && strings.EqualFold(candidate, name) {
			return i
		}
	}
	return -1
}

/**
 *	################################################################
 *	#					row access
 *	################################################################
 */

// Reads raw row data of one row at position. On a seekable source any row
// can be addressed, a sequential source only yields rows at or after its
// cursor.
func (file *File) ReadRow(position uint32) ([]byte, error) {
	if position >= file.header.RowsCount {
		return nil, newError("dbf-file-readrow-1", ErrEOF)
	}
	buf := make([]byte, file.header.RowLength)
	if file.source.Seekable() {
		offset := int64(file.header.FirstRow) + int64(position)*int64(file.header.RowLength)
		n, err := file.source.ReadAt(buf, offset)
		return file.checkRowRead(buf, n, err)
	}
	if position < file.seqRow {
		return nil, newError("dbf-file-readrow-2", ErrRequiresSeek)
	}
	// Skip forward to the requested row.
	for file.seqRow < position {
		if err := readFull(file.source, buf); err != nil {
			return nil, newError("dbf-file-readrow-3", err)
		}
		file.seqRow++
	}
	n, err := io.ReadFull(file.source, buf)
	if err == nil {
		file.seqRow++
	}
	return file.checkRowRead(buf, n, err)
}

// checkRowRead maps short reads at a record boundary to a clean EOF, a
// partial record to ErrIncomplete. A record starting with the end of data
// marker terminates the record area as well.
func (file *File) checkRowRead(buf []byte, n int, err error) ([]byte, error) {
	if n == 0 && err != nil {
		return nil, newError("dbf-file-checkrow-1", ErrEOF)
	}
	if n >= 1 && buf[0] == byte(EOFMarker) {
		return nil, newError("dbf-file-checkrow-2", ErrEOF)
	}
	if n < int(file.header.RowLength) {
		return nil, newError("dbf-file-checkrow-3", fmt.Errorf("%w: row needs %d bytes, got %d", ErrIncomplete, file.header.RowLength, n))
	}
	return buf, nil
}

// Returns the row at the given position. Requires the loaded state or a
// seekable source, otherwise ErrRequiresSeek is returned.
func (file *File) RowAt(position uint32) (*Row, error) {
	if file.loaded != nil {
		if position >= uint32(len(file.loaded)) {
			return nil, newError("dbf-file-rowat-1", ErrEOF)
		}
		return file.loaded[position], nil
	}
	if !file.source.Seekable() {
		return nil, newError("dbf-file-rowat-2", ErrRequiresSeek)
	}
	data, err := file.ReadRow(position)
	if err != nil {
		return nil, err
	}
	return file.BytesToRow(data, position)
}

// Load materializes all rows, deleted ones included, into an indexable
// vector of owning copies. On sequential sources the stream must not have
// been advanced yet.
func (file *File) Load() error {
	if file.loaded != nil {
		return nil
	}
	if !file.source.Seekable() && file.seqRow != 0 {
		return newError("dbf-file-load-1", ErrRequiresSeek)
	}
	loaded := make([]*Row, 0, file.header.RowsCount)
	for position := uint32(0); position < file.header.RowsCount; position++ {
		data, err := file.ReadRow(position)
		if err != nil {
			if isEOF(err) {
				break
			}
			return newError("dbf-file-load-2", err)
		}
		row, err := file.BytesToRow(data, position)
		if err != nil {
			return newError("dbf-file-load-3", err)
		}
		loaded = append(loaded, row)
	}
	debugf("Loaded %d rows", len(loaded))
	file.loaded = loaded
	return nil
}

// Unload discards the materialized rows.
func (file *File) Unload() {
	file.loaded = nil
}

// Loaded reports whether rows are materialized.
func (file *File) Loaded() bool {
	return file.loaded != nil
}

/**
 *	################################################################
 *	#					row pointer
 *	################################################################
 */

// Returns if the internal row pointer is at end of file
func (file *File) EOF() bool {
	return file.rowPointer >= file.header.RowsCount
}

// Returns if the internal row pointer is at the first row
func (file *File) BOF() bool {
	return file.rowPointer == 0
}

// Returns the current row pointer position
func (file *File) Pointer() uint32 {
	return file.rowPointer
}

// GoTo sets the internal row pointer to the row position
// Returns an EOF error if at EOF and positions the pointer at lastRow+1
func (file *File) GoTo(position uint32) error {
	if position > file.header.RowsCount {
		file.rowPointer = file.header.RowsCount
		return newError("dbf-file-goto-1", fmt.Errorf("%w, go to %v > %v", ErrEOF, position, file.header.RowsCount))
	}
	file.rowPointer = position
	return nil
}

// Skip adds offset to the internal row pointer
// If at end of file positions the pointer at lastRow+1
// If the row pointer would become negative positions the pointer at 0
func (file *File) Skip(offset int64) {
	position := int64(file.rowPointer) + offset
	if position >= int64(file.header.RowsCount) {
		position = int64(file.header.RowsCount)
	}
	if position < 0 {
		position = 0
	}
	file.rowPointer = uint32(position)
}

// Returns the row at the internal row pointer
func (file *File) Row() (*Row, error) {
	data, err := file.ReadRow(file.rowPointer)
	if err != nil {
		return nil, newError("dbf-file-row-1", err)
	}
	return file.BytesToRow(data, file.rowPointer)
}

// Reads the row at the internal pointer and increments the pointer by one
func (file *File) Next() (*Row, error) {
	row, err := file.Row()
	file.Skip(1)
	if err != nil {
		return nil, newError("dbf-file-next-1", err)
	}
	return row, nil
}

/**
 *	################################################################
 *	#					statistics
 *	################################################################
 */

// Statistics summarizes the table: total, active and deleted row counts,
// the column count, the effective code page and the format variant.
type Statistics struct {
	Rows     uint32
	Active   uint32
	Deleted  uint32
	Columns  int
	CodePage byte
	FileType FileType
}

// Statistics scans the deletion markers once and caches the result.
// Requires the loaded state or a seekable source.
func (file *File) Statistics() (*Statistics, error) {
	if file.stats != nil {
		return file.stats, nil
	}
	stats := &Statistics{
		Columns:  len(file.columns),
		CodePage: file.header.CodePage,
		FileType: file.variant(),
	}
	if file.loaded != nil {
		for _, row := range file.loaded {
			stats.Rows++
			if row.Deleted {
				stats.Deleted++
			} else {
				stats.Active++
			}
		}
		file.stats = stats
		return stats, nil
	}
	if !file.source.Seekable() {
		return nil, newError("dbf-file-statistics-1", ErrRequiresSeek)
	}
	marker := make([]byte, 1)
	for position := uint32(0); position < file.header.RowsCount; position++ {
		offset := int64(file.header.FirstRow) + int64(position)*int64(file.header.RowLength)
		if _, err := file.source.ReadAt(marker, offset); err != nil {
			break
		}
		if marker[0] == byte(EOFMarker) {
			break
		}
		stats.Rows++
		if Marker(marker[0]) == Deleted {
			stats.Deleted++
		} else {
			stats.Active++
		}
	}
	file.stats = stats
	return stats, nil
}

/**
 *	################################################################
 *	#					sidecar lookup
 *	################################################################
 */

// findFile resolves the path case-insensitively within its directory.
func findFile(name string) (string, error) {
	entries, err := os.ReadDir(filepath.Dir(name))
	if err != nil {
		return "", newError("dbf-file-findfile-1", err)
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), filepath.Base(name)) {
			return filepath.Join(filepath.Dir(name), entry.Name()), nil
		}
	}
	return name, nil
}

// findSibling looks for a file next to the table sharing its base name
// with one of the given extensions, matched case-insensitively.
// Returns an empty path when no sibling exists.
func findSibling(path string, extensions ...string) (string, error) {
	if len(path) == 0 {
		return "", nil
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return "", newError("dbf-file-findsibling-1", err)
	}
	for _, extension := range extensions {
		for _, entry := range entries {
			if strings.EqualFold(entry.Name(), base+extension) {
				return filepath.Join(filepath.Dir(path), entry.Name()), nil
			}
		}
	}
	return "", nil
}

// memoPath returns the expected memo sibling path for error reporting.
func memoPath(path string, variant FileType) string {
	extension := string(MemoFileExtension)
	if variant == FoxBasePlusMemo || variant == DBaseMemo {
		extension = string(LegacyMemoExtension)
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + extension
}

func isEOF(err error) bool {
	return errors.Is(err, ErrEOF)
}
