package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"multivox/internal/services"
)

const (
	// Same skips translation and keeps the transcribed text as-is.
	Same = "same"
	// Default is used when a request does not name a target language.
	Default = "en"
)

// Info describes a supported target language.
type Info struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedCodes = []string{
	"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
	"ar", "hi", "ur", "tr", "nl", "sv", "pl", "vi", "th",
}

var (
	supported map[string]struct{}
	byWord    map[string]string
)

func init() {
	supported = make(map[string]struct{}, len(supportedCodes))
	byWord = make(map[string]string, len(supportedCodes))
	namer := display.English.Tags()
	for _, code := range supportedCodes {
		supported[code] = struct{}{}
		tag := language.Make(code)
		if name := namer.Name(tag); name != "" {
			byWord[strings.ToLower(name)] = code
		}
	}
}

// Normalize folds any recognized code, tag, or English word form to its
// two-letter base code. "same" passes through. Unparseable input yields "".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if code == Same {
		return Same
	}
	if mapped, ok := byWord[code]; ok {
		return mapped
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return ""
	}
	base, conf := tag.Base()
	if conf != language.Exact {
		return ""
	}
	return base.String()
}

// IsSupported reports whether code normalizes to a supported target language.
func IsSupported(code string) bool {
	normalized := Normalize(code)
	if normalized == Same {
		return true
	}
	_, ok := supported[normalized]
	return ok
}

// Validate returns the target language for a subtitle request. Any
// well-formed BCP 47 tag with a known base language is accepted, not only the
// catalog, and script and region subtags are kept so "zh-TW" stays distinct
// from "zh". English word forms fold to the base code. An empty value selects
// Default.
func Validate(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Default, nil
	}
	lower := strings.ToLower(trimmed)
	if lower == Same {
		return Same, nil
	}
	if mapped, ok := byWord[lower]; ok {
		return mapped, nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil || tag == language.Und {
		return "", services.Wrap(services.ErrBadRequest, "received", "validate language", fmt.Sprintf("unrecognized language %q", code), nil)
	}
	base, conf := tag.Base()
	if conf != language.Exact {
		return "", services.Wrap(services.ErrBadRequest, "received", "validate language", fmt.Sprintf("unrecognized language %q", code), nil)
	}
	out := base.String()
	_, script, region := tag.Raw()
	if script != (language.Script{}) {
		out += "-" + script.String()
	}
	if region != (language.Region{}) {
		out += "-" + region.String()
	}
	return out, nil
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized := Normalize(trimmed)
	switch normalized {
	case Same:
		return "Original language"
	case "":
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(language.Make(normalized)); name != "" {
		return name
	}
	return strings.ToUpper(normalized)
}

// Supported lists the catalog in a stable order.
func Supported() []Info {
	out := make([]Info, 0, len(supportedCodes))
	for _, code := range supportedCodes {
		out = append(out, Info{Code: code, Name: DisplayName(code)})
	}
	return out
}
