package dbf

// DecodeFallback selects how invalid byte sequences in character data are
// handled by the configured converter.
type DecodeFallback int

const (
	// Invalid sequences are replaced with the Unicode replacement rune.
	FallbackReplace DecodeFallback = iota
	// Invalid sequences are dropped from the output.
	FallbackSkip
	// Invalid sequences fail the field decode.
	FallbackFail
)

// Config contains the configuration for opening a table.
// The zero value is not usable, use DefaultConfig as a starting point.
type Config struct {
	Converter           EncodingConverter // Explicit encoding override. Takes precedence over the .cpg sidecar and the language driver byte.
	TrimSpaces          bool              // Right trim spaces and null bytes from character values.
	IgnoreCase          bool              // Case insensitive column name lookup.
	LowercaseFieldNames bool              // Report column names lowercased.
	ValidateFields      bool              // Fail on value decode errors instead of yielding InvalidValue.
	IgnoreMissingMemo   bool              // Resolve memo fields to nil when the memo file is missing.
	RawMode             bool              // Short circuit all decoders and return raw bytes.
	MaxRecords          int               // Maximum number of rows emitted by a stream, 0 means all.
	Skip                int               // Number of rows skipped before the stream emits.
	IncludeDeleted      bool              // Emit rows flagged as deleted.
	Fallback            DecodeFallback    // Character decode fallback strategy.
}

// DefaultConfig returns the documented defaults: trimmed strings, case
// insensitive lookups, fatal field validation and tolerated missing memo
// files.
func DefaultConfig() *Config {
	return &Config{
		TrimSpaces:        true,
		IgnoreCase:        true,
		ValidateFields:    true,
		IgnoreMissingMemo: true,
	}
}

func (config *Config) clone() *Config {
	if config == nil {
		return DefaultConfig()
	}
	c := *config
	return &c
}
