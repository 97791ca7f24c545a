package dbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Contains the raw column descriptor structure from the DBF header.
type Column struct {
	ColumnName [11]byte // Column name with a maximum of 10 characters, padded with null bytes
	DataType   byte     // Column type
	Position   uint32   // Displacement of column in row (informational)
	Length     uint8    // Length of column (in bytes)
	Decimals   uint8    // Number of decimal places
	Flags      byte     // Column flags
	Next       uint32   // Value of autoincrement Next value
	Step       uint8    // Value of autoincrement Step value
	Reserved   [8]byte  // Reserved
}

// The FoxBase/dBase II dialect stores 16 byte descriptors.
type legacyColumn struct {
	ColumnName [11]byte
	DataType   byte
	Length     uint8
	Address    uint16
	Decimals   uint8
}

// Returns the name of the column as a trimmed string (max length 10)
func (c *Column) Name() string {
	return string(bytes.TrimRight(c.ColumnName[:], "\x00"))
}

// Returns the type of the column as string (length 1)
func (c *Column) Type() string {
	return string(c.DataType)
}

// Returns the number of bytes one value of this column occupies in a row.
// Character columns fold the decimal count into the high byte of the
// length, letting them exceed 255 bytes.
func (c *Column) DataLength() int {
	if DataType(c.DataType) == Character {
		return int(c.Length) | int(c.Decimals)<<8
	}
	return int(c.Length)
}

// Validate checks the descriptor against the per type invariants and that
// memo bearing types are legal for the file variant.
func (c *Column) Validate(variant FileType) error {
	if len(c.Name()) == 0 {
		return MalformedFieldError{Field: c.Name(), Reason: "empty column name"}
	}
	switch DataType(c.DataType) {
	case Integer, Autoincrement:
		if c.Length != 4 {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("integer column length %d != 4", c.Length)}
		}
	case Logical:
		if c.Length != 1 {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("logical column length %d != 1", c.Length)}
		}
	case Currency, DateTime, Date:
		if c.Length != 8 {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("%s column length %d != 8", DataType(c.DataType), c.Length)}
		}
	case Double:
		if c.Length != 8 && variant.VisualFoxPro() {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("double column length %d != 8", c.Length)}
		}
	case Character:
		if c.DataLength() == 0 {
			return MalformedFieldError{Field: c.Name(), Reason: "character column length is zero"}
		}
	case Numeric, Float:
		if c.Length == 0 {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("%s column length is zero", DataType(c.DataType))}
		}
		if c.Decimals > c.Length {
			return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("decimal count %d exceeds length %d", c.Decimals, c.Length)}
		}
	}
	if DataType(c.DataType).MemoType(variant) && !variant.Memo() && !variant.VisualFoxPro() {
		return MalformedFieldError{Field: c.Name(), Reason: fmt.Sprintf("memo column in variant %s without memo file", variant)}
	}
	return nil
}

// parseColumns decodes the descriptor area that follows the fixed header.
// Descriptors are read until the terminator 0x0D (or the end of header
// marker 0x1A), an empty name or a zero length signals early end without
// appending a partial descriptor.
func parseColumns(area []byte, variant FileType) ([]*Column, error) {
	descSize := columnLength
	limit := maxColumns
	if variant == FoxBase {
		descSize = legacyColumnSize
		limit = maxLegacyColumns
	}
	columns := make([]*Column, 0)
	offset := 0
	for {
		if offset >= len(area) {
			return nil, MalformedHeaderError{Reason: "descriptor terminator missing"}
		}
		if area[offset] == byte(ColumnEnd) || area[offset] == byte(EOFMarker) {
			break
		}
		if offset+descSize > len(area) {
			// Malformed trailing descriptor, stop without consuming it so
			// the record area stays aligned.
			debugf("Truncated descriptor at offset %d, stopping", offset)
			break
		}
		column, err := parseColumn(area[offset:offset+descSize], variant)
		if err != nil {
			return nil, err
		}
		if len(column.Name()) == 0 || column.DataLength() == 0 {
			debugf("Descriptor with empty name or zero length at offset %d, stopping", offset)
			break
		}
		columns = append(columns, column)
		if len(columns) > limit {
			return nil, MalformedHeaderError{Reason: fmt.Sprintf("more than %d column descriptors", limit)}
		}
		offset += descSize
	}
	return columns, nil
}

func parseColumn(raw []byte, variant FileType) (*Column, error) {
	if variant == FoxBase {
		legacy := &legacyColumn{}
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, legacy); err != nil {
			return nil, newError("dbf-column-parse-1", err)
		}
		return &Column{
			ColumnName: legacy.ColumnName,
			DataType:   legacy.DataType,
			Position:   uint32(legacy.Address),
			Length:     legacy.Length,
			Decimals:   legacy.Decimals,
		}, nil
	}
	column := &Column{}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, column); err != nil {
		return nil, newError("dbf-column-parse-2", err)
	}
	return column, nil
}
