// The supported column types with their return Go types are:
//
//	Column Type >> Column Type Name >> Golang type
//
//	B  >>  Double (Visual FoxPro)  >>  float64
//	B  >>  Binary memo (dBase)  >>  []byte
//	C  >>  Character  >>  string
//	V  >>  Varchar  >>  string
//	D  >>  Date  >>  time.Time
//	F  >>  Float  >>  float64
//	I  >>  Integer  >>  int32
//	+  >>  Autoincrement  >>  int32
//	L  >>  Logical  >>  bool
//	M  >>  Memo   >>  string
//	M  >>  Memo (Binary)  >>  []byte
//	G/P/W  >>  General/Picture/Blob  >>  []byte
//	N  >>  Numeric (0 decimals)  >>  int64
//	N  >>  Numeric (with decimals)  >>  float64
//	T  >>  DateTime  >>  time.Time
//	Y  >>  Currency  >>  float64
//	0  >>  Flags  >>  []byte
//
// Memo bearing columns (M, G, P, W and B outside Visual FoxPro) resolve to
// string when the memo entry is tagged as text, which includes every entry
// of a legacy fixed block .dbt file, and to []byte otherwise. A Numeric
// column without decimals yields float64 when the value is not integral.
//
// Null values resolve to nil. With Config.ValidateFields disabled a value
// that fails to decode resolves to an InvalidValue instead of an error.
package dbf

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InvalidValue takes the place of a value that failed to decode when
// validation is disabled. It carries the raw bytes, the column name and
// the failure reason.
type InvalidValue struct {
	Raw    []byte
	Field  string
	Reason string
}

func (v InvalidValue) String() string {
	return fmt.Sprintf("invalid %s value % x: %s", v.Field, v.Raw, v.Reason)
}

// Interpret converts raw column data to the correct type for the given
// column. For C, V and text memo columns a charset conversion is done.
// For memo bearing columns the data is read from the memo file.
func (file *File) Interpret(raw []byte, column *Column) (interface{}, error) {
	if len(raw) != column.DataLength() {
		return nil, newError("dbf-interpreter-interpret-1", fmt.Errorf("invalid length %v Bytes != %v Bytes", len(raw), column.DataLength()))
	}
	if file.config.RawMode {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	switch DataType(column.DataType) {
	case Memo, General, Picture, Blob:
		return file.interpretMemo(raw, column)
	case Double:
		if file.variant().VisualFoxPro() {
			return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
		}
		return file.interpretMemo(raw, column)
	case Character, Varchar:
		return file.interpretCharacter(raw, column)
	case Integer, Autoincrement:
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case Currency:
		return float64(int64(binary.LittleEndian.Uint64(raw))) / 10000, nil
	case Date:
		date, err := parseDate(raw)
		if err != nil {
			return file.invalid(raw, column, "not a YYYYMMDD date", err)
		}
		return date, nil
	case DateTime:
		return parseDateTime(binary.LittleEndian.Uint32(raw[:4]), binary.LittleEndian.Uint32(raw[4:])), nil
	case Logical:
		value, ok := parseLogical(raw[0])
		if !ok {
			return file.invalid(raw, column, fmt.Sprintf("invalid logical byte 0x%02x", raw[0]), nil)
		}
		return value, nil
	case Numeric:
		value, err := parseNumeric(raw, column.Decimals)
		if err != nil {
			return file.invalid(raw, column, "not a numeric value", err)
		}
		return value, nil
	case Float:
		value, err := parseFloat(raw)
		if err != nil {
			return file.invalid(raw, column, "not a float value", err)
		}
		return value, nil
	case Varbinary, Flags:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	return file.invalid(raw, column, fmt.Sprintf("unsupported column data type %s", column.Type()), nil)
}

func (file *File) interpretCharacter(raw []byte, column *Column) (interface{}, error) {
	if file.config.TrimSpaces {
		raw = trimValue(raw)
	}
	decoded, err := file.converter.Decode(raw)
	if err != nil {
		return file.invalid(raw, column, "charset conversion failed", err)
	}
	decoded, err = applyFallback(decoded, file.config.Fallback)
	if err != nil {
		return file.invalid(raw, column, "undecodable byte sequence", err)
	}
	return string(decoded), nil
}

// interpretMemo resolves the memo address stored in the row to the memo
// payload. Two address encodings exist: a 4 byte little endian integer and
// a 10 byte right aligned ASCII number. Address zero means no entry.
func (file *File) interpretMemo(raw []byte, column *Column) (interface{}, error) {
	index, err := parseMemoIndex(raw)
	if err != nil {
		return file.invalid(raw, column, "invalid memo address", err)
	}
	if index == 0 {
		return nil, nil
	}
	if file.memo == nil {
		if file.config.IgnoreMissingMemo {
			return nil, nil
		}
		return nil, newError("dbf-interpreter-memo-1", MissingMemoError{TablePath: file.path, MemoPath: memoPath(file.path, file.variant())})
	}
	memo, err := file.memo.Read(index)
	if err != nil {
		return file.invalid(raw, column, "memo read failed", err)
	}
	if memo == nil {
		return nil, nil
	}
	if memo.Type == MemoText {
		decoded, err := file.converter.Decode(memo.Data)
		if err != nil {
			return file.invalid(raw, column, "charset conversion failed", err)
		}
		return string(decoded), nil
	}
	return memo.Data, nil
}

func parseMemoIndex(raw []byte) (uint32, error) {
	// Visual FoxPro tables have been observed to mix both encodings, a 4
	// byte field is always binary, everything else is ASCII.
	if len(raw) == 4 {
		return binary.LittleEndian.Uint32(raw), nil
	}
	trimmed := strings.Trim(string(raw), " \x00")
	if len(trimmed) == 0 {
		return 0, nil
	}
	index, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0, newError("dbf-interpreter-memoindex-1", err)
	}
	return uint32(index), nil
}

// invalid resolves a decode failure to a fatal FieldParseError or an in
// band InvalidValue depending on Config.ValidateFields.
func (file *File) invalid(raw []byte, column *Column, reason string, err error) (interface{}, error) {
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	if file.config.ValidateFields {
		return nil, newError("dbf-interpreter-invalid-1", FieldParseError{Field: column.Name(), Raw: raw, Reason: reason})
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return InvalidValue{Raw: out, Field: column.Name(), Reason: reason}, nil
}
