package dbf

import (
	"bytes"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestDefaultConverterDecode(t *testing.T) {
	tests := []struct {
		converter   DefaultConverter
		input       []byte
		expected    []byte
		description string
	}{
		{NewDefaultConverter(charmap.Windows1252), []byte("sample"), []byte("sample"), "ASCII passthrough"},
		{NewDefaultConverter(charmap.Windows1252), []byte{0xE4}, []byte("ä"), "Windows1252 umlaut"},
		{NewDefaultConverter(charmap.CodePage866), []byte{0x90}, []byte("Р"), "CP866 cyrillic"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got, err := tt.converter.Decode(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConverterCodePage(t *testing.T) {
	tests := []struct {
		converter DefaultConverter
		expected  byte
	}{
		{NewDefaultConverter(charmap.Windows1252), 0x03},
		{NewDefaultConverter(charmap.Windows1250), 0xC8},
		{NewDefaultConverter(charmap.Windows1251), 0xC9},
		{NewDefaultConverter(charmap.CodePage850), 0x02},
	}
	for _, tt := range tests {
		if got := tt.converter.CodePage(); got != tt.expected {
			t.Errorf("code page = 0x%02x, want 0x%02x", got, tt.expected)
		}
	}
}

func TestConverterFromCodePage(t *testing.T) {
	converter := ConverterFromCodePage(0xC9)
	got, err := converter.Decode([]byte{0xC0}) // А in Windows-1251
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "А" {
		t.Errorf("got %q, want %q", got, "А")
	}
	// Unknown bytes fall back to UTF-8 pass through.
	if _, ok := ConverterFromCodePage(0xEE).(UTF8Converter); !ok {
		t.Error("unknown code page should fall back to UTF8Converter")
	}
}

func TestConverterFromName(t *testing.T) {
	tests := []struct {
		name     string
		hasError bool
	}{
		{"UTF-8", false},
		{"utf-8", false},
		{"CP1251", false},
		{"windows-1252", false},
		{" ISO-8859-1 ", false},
		{"KLINGON", true},
	}
	for _, tt := range tests {
		_, err := ConverterFromName(tt.name)
		if (err != nil) != tt.hasError {
			t.Errorf("ConverterFromName(%q): expected error=%v, got %v", tt.name, tt.hasError, err)
		}
	}
}

func TestApplyFallback(t *testing.T) {
	clean := []byte("clean")
	dirty := []byte("a�b")

	if got, err := applyFallback(dirty, FallbackReplace); err != nil || !bytes.Equal(got, dirty) {
		t.Errorf("replace: got %q, %v", got, err)
	}
	if got, err := applyFallback(dirty, FallbackSkip); err != nil || string(got) != "ab" {
		t.Errorf("skip: got %q, %v", got, err)
	}
	if _, err := applyFallback(dirty, FallbackFail); err == nil {
		t.Error("fail: expected an error")
	}
	if got, err := applyFallback(clean, FallbackFail); err != nil || !bytes.Equal(got, clean) {
		t.Errorf("fail on clean input: got %q, %v", got, err)
	}
}
