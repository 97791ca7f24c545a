package dbf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one decoded record. Position is the zero based on-disk index.
type Row struct {
	handle   *File
	Position uint32
	Deleted  bool
	fields   []*Field
}

// Field pairs a column descriptor with the decoded value of one row.
type Field struct {
	column *Column
	value  interface{}
}

// BytesToRow converts a raw row slab to a Row struct.
// If a column points into the memo file that file is read as well.
func (file *File) BytesToRow(data []byte, position uint32) (*Row, error) {
	row := &Row{
		handle:   file,
		Position: position,
		fields:   make([]*Field, 0, len(file.columns)),
	}
	if len(data) < int(file.header.RowLength) {
		return nil, newError("dbf-row-bytestorow-1", fmt.Errorf("invalid row data size %v Bytes < %v Bytes", len(data), file.header.RowLength))
	}
	// a row starts with the delete flag, a space ACTIVE(0x20) or DELETED(0x2A)
	switch Marker(data[0]) {
	case Active:
		row.Deleted = false
	case Deleted:
		row.Deleted = true
	case EOFMarker:
		return nil, newError("dbf-row-bytestorow-2", ErrEOF)
	default:
		return nil, newError("dbf-row-bytestorow-3", fmt.Errorf("invalid row data, no delete flag found at beginning of row"))
	}
	offset := 1
	for _, column := range file.columns {
		length := column.DataLength()
		if offset+length > len(data) {
			return nil, newError("dbf-row-bytestorow-4", fmt.Errorf("%w: column %s exceeds row data", ErrIncomplete, column.Name()))
		}
		value, err := file.Interpret(data[offset:offset+length], column)
		if err != nil {
			return nil, newError("dbf-row-bytestorow-5", err)
		}
		row.fields = append(row.fields, &Field{column: column, value: value})
		offset += length
	}
	return row, nil
}

// Field gets a field by column position (index)
func (row *Row) Field(pos int) (*Field, error) {
	if pos < 0 || pos >= len(row.fields) {
		return nil, newError("dbf-row-field-1", ErrInvalidPosition)
	}
	return row.fields[pos], nil
}

// FieldByName gets a field by column name, honoring the configured case
// sensitivity.
func (row *Row) FieldByName(name string) (*Field, error) {
	pos := row.handle.ColumnPosByName(name)
	if pos < 0 {
		return nil, newError("dbf-row-fieldbyname-1", fmt.Errorf("column %q not found", name))
	}
	return row.fields[pos], nil
}

// Fields gets all fields as a slice
func (row *Row) Fields() []*Field {
	return row.fields
}

// Values gets all field values as a slice
func (row *Row) Values() []interface{} {
	values := make([]interface{}, len(row.fields))
	for i, field := range row.fields {
		values[i] = field.value
	}
	return values
}

// ToMap returns the complete row as a map keyed by column name.
func (row *Row) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(row.fields))
	for _, field := range row.fields {
		out[row.handle.columnName(field.column)] = field.value
	}
	return out
}

// Returns the column the field belongs to
func (field *Field) Column() *Column {
	return field.column
}

// Returns the column name of the field
func (field *Field) Name() string {
	return field.column.Name()
}

// Returns the column type of the field
func (field *Field) Type() string {
	return field.column.Type()
}

// Returns the decoded value, nil for null values
func (field *Field) Value() interface{} {
	return field.value
}

// Int64 coerces the value to an int64. Integer types convert directly,
// floats truncate, numeric strings are parsed.
func (field *Field) Int64() (int64, error) {
	switch v := field.value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, newError("dbf-field-int64-1", err)
		}
		return i, nil
	}
	return 0, newError("dbf-field-int64-2", fmt.Errorf("cannot coerce %T to int64", field.value))
}

// Float64 coerces the value to a float64.
func (field *Field) Float64() (float64, error) {
	switch v := field.value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, newError("dbf-field-float64-1", err)
		}
		return f, nil
	}
	return 0, newError("dbf-field-float64-2", fmt.Errorf("cannot coerce %T to float64", field.value))
}

// Bool returns the logical value of the field.
func (field *Field) Bool() (bool, error) {
	if b, ok := field.value.(bool); ok {
		return b, nil
	}
	return false, newError("dbf-field-bool-1", fmt.Errorf("cannot coerce %T to bool", field.value))
}

// Time returns the date or timestamp value of the field.
func (field *Field) Time() (time.Time, error) {
	if t, ok := field.value.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, newError("dbf-field-time-1", fmt.Errorf("cannot coerce %T to time.Time", field.value))
}

// String returns the value formatted as string.
func (field *Field) String() string {
	if field.value == nil {
		return ""
	}
	if s, ok := field.value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", field.value)
}
