package output

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Bytes renders a byte count the way the reports show it ("48 KiB").
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Reduction renders the saved share of original, clamped at zero.
func Reduction(original, output int64) string {
	if original <= 0 || output >= original {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(original-output)/float64(original)*100)
}

// Ratio renders output as a share of original.
func Ratio(original, output int64) string {
	if original <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(output)/float64(original)*100)
}

// Count renders an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
