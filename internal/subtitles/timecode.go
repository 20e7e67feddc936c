package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroTimecode is rendered for negative, non-finite, or out-of-range offsets.
const ZeroTimecode = "00:00:00,000"

var (
	thousand = decimal.NewFromInt(1000)
	maxMs    = decimal.NewFromInt(math.MaxInt64)
)

// FormatTimecode renders seconds as HH:MM:SS,mmm. Milliseconds are truncated,
// not rounded. Hours are not wrapped at 24.
func FormatTimecode(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return ZeroTimecode
	}
	ms := decimal.NewFromFloat(seconds).Mul(thousand).Truncate(0)
	if ms.GreaterThan(maxMs) {
		return ZeroTimecode
	}
	msTotal := ms.IntPart()
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimecode converts an SRT time code back into seconds. A period is
// accepted in place of the comma separator.
func ParseTimecode(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := decimal.NewFromInt(int64(hours*3600 + minutes*60 + secs)).
		Add(decimal.NewFromInt(int64(millis)).Div(thousand))
	return total.InexactFloat64(), nil
}
