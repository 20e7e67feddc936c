package language

import (
	"errors"
	"testing"

	"multivox/internal/services"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" es ", "es"},
		{"eng", "en"},
		{"english", "en"},
		{"French", "fr"},
		{"pt-BR", "pt"},
		{"zh-Hans", "zh"},
		{"same", "same"},
		{"SAME", "same"},
		{"", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	got, err := Validate("")
	if err != nil || got != Default {
		t.Fatalf("Validate(\"\") = %q, %v; want default", got, err)
	}

	got, err = Validate("same")
	if err != nil || got != Same {
		t.Fatalf("Validate(same) = %q, %v", got, err)
	}

	got, err = Validate("Japanese")
	if err != nil || got != "ja" {
		t.Fatalf("Validate(Japanese) = %q, %v", got, err)
	}

	tags := []struct {
		input    string
		expected string
	}{
		{"fi", "fi"},
		{"bn", "bn"},
		{"ta", "ta"},
		{"uk", "uk"},
		{"zh-TW", "zh-TW"},
		{"zh-tw", "zh-TW"},
		{"pt-BR", "pt-BR"},
		{"zh-Hant", "zh-Hant"},
		{"eng", "en"},
	}
	for _, tt := range tags {
		got, err := Validate(tt.input)
		if err != nil || got != tt.expected {
			t.Fatalf("Validate(%q) = %q, %v; want %q", tt.input, got, err, tt.expected)
		}
	}

	for _, bad := range []string{"xx-not-real!", "not a language", "und"} {
		if _, err := Validate(bad); !errors.Is(err, services.ErrBadRequest) {
			t.Fatalf("Validate(%q) error = %v, want ErrBadRequest", bad, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"de", "German"},
		{"ja", "Japanese"},
		{"same", "Original language"},
		{"", "Unknown"},
		{"???", "???"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSupportedCatalog(t *testing.T) {
	list := Supported()
	if len(list) != 19 {
		t.Fatalf("expected 19 supported languages, got %d", len(list))
	}
	if list[0].Code != "en" || list[0].Name != "English" {
		t.Fatalf("unexpected first entry %#v", list[0])
	}
	for _, info := range list {
		if !IsSupported(info.Code) {
			t.Fatalf("catalog code %q not reported as supported", info.Code)
		}
	}
	if IsSupported("fi") {
		t.Fatal("fi should not be in the catalog")
	}
}
