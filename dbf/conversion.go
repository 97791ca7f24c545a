package dbf

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Julian day number of 0001-01-01 in the proleptic Gregorian calendar as
// used by the DateTime column type. dBase IV era writers disagree on the
// day boundary, this offset matches the FoxPro interpretation.
const julianEpochOffset = 1721425

var julianEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Convert year, month and day to the julian day number used by the
// DateTime column type.
func YMD2JD(y, m, d int) int {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	days := (t.Unix() - julianEpoch.Unix()) / (24 * 60 * 60)
	return int(days) + julianEpochOffset
}

// Convert a julian day number to year, month and day.
func JD2YMD(jd int) (int, int, int) {
	t := julianEpoch.AddDate(0, 0, jd-julianEpochOffset)
	return t.Year(), int(t.Month()), t.Day()
}

// parseDate parses a date column in the ASCII YYYYMMDD layout.
// All blank, null or zero dates resolve to nil.
func parseDate(raw []byte) (interface{}, error) {
	trimmed := string(sanitizeEmptyBytes(raw))
	if len(trimmed) == 0 || trimmed == "00000000" {
		return nil, nil
	}
	t, err := time.Parse("20060102", trimmed)
	if err != nil {
		return nil, newError("dbf-conversion-parsedate-1", err)
	}
	return t, nil
}

// parseDateTime parses a DateTime column: the first four bytes are the
// little endian julian day, the next four the milliseconds since midnight.
// Julian day zero resolves to nil.
func parseDateTime(julian uint32, msec uint32) interface{} {
	if julian == 0 {
		return nil
	}
	y, m, d := JD2YMD(int(julian))
	if y < 0 || y > 9999 {
		return nil
	}
	sec := int(msec) / 1000
	ms := int(msec) % 1000
	return time.Date(y, time.Month(m), d, 0, 0, sec, ms*int(time.Millisecond), time.UTC)
}

// parseNumeric parses the ASCII signed decimal of Numeric columns.
// A comma decimal separator is normalized to a point, padding bytes
// (spaces, nulls, asterisks) are stripped. Columns declared without
// decimals yield int64 when the value is integral, float64 otherwise.
func parseNumeric(raw []byte, decimals uint8) (interface{}, error) {
	trimmed := strings.Trim(string(raw), " \x00*")
	if len(trimmed) == 0 {
		return nil, nil
	}
	if strings.Contains(trimmed, ",") {
		if strings.Contains(trimmed, ".") {
			// The comma groups digits when a decimal point is present.
			trimmed = strings.ReplaceAll(trimmed, ",", "")
		} else {
			trimmed = strings.Replace(trimmed, ",", ".", 1)
		}
	}
	if decimals == 0 {
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, newError("dbf-conversion-parsenumeric-1", err)
	}
	return f, nil
}

// parseFloat parses the ASCII float of Float columns.
func parseFloat(raw []byte) (interface{}, error) {
	trimmed := strings.Trim(string(raw), " \x00*")
	if len(trimmed) == 0 {
		return nil, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, newError("dbf-conversion-parsefloat-1", err)
	}
	return f, nil
}

// parseLogical applies the Logical truth table.
// The second return value is false for an unrecognized byte.
func parseLogical(b byte) (interface{}, bool) {
	switch b {
	case 'T', 't', 'Y', 'y':
		return true, true
	case 'F', 'f', 'N', 'n':
		return false, true
	case '?', ' ', 0x00:
		return nil, true
	}
	return nil, false
}

func sanitizeEmptyBytes(raw []byte) []byte {
	raw = bytes.ReplaceAll(raw, []byte{0x00}, []byte{})
	return []byte(strings.TrimSpace(string(raw)))
}

// trimValue right trims the ASCII space and null padding of character data.
func trimValue(raw []byte) []byte {
	return bytes.TrimRight(raw, " \x00")
}

/**
 *	################################################################
 *	#		casting helper functions for field values
 *	################################################################
 */

// ToString always returns a string
func ToString(in interface{}) string {
	if str, ok := in.(string); ok {
		return str
	}
	return ""
}

// ToTrimmedString always returns a string with spaces trimmed
func ToTrimmedString(in interface{}) string {
	if str, ok := in.(string); ok {
		return strings.TrimSpace(str)
	}
	return ""
}

// ToInt64 always returns an int64
func ToInt64(in interface{}) int64 {
	switch v := in.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// ToFloat64 always returns a float64
func ToFloat64(in interface{}) float64 {
	switch v := in.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0.0
}

// ToTime always returns a time.Time
func ToTime(in interface{}) time.Time {
	if t, ok := in.(time.Time); ok {
		return t
	}
	return time.Time{}
}

// ToBool always returns a boolean
func ToBool(in interface{}) bool {
	if b, ok := in.(bool); ok {
		return b
	}
	return false
}
