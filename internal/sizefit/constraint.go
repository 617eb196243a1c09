package sizefit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

func (c ByteBudget) String() string {
	return "budget " + humanize.IBytes(uint64(max(c.MaxBytes, 0)))
}

func (c QualityPreset) String() string {
	return "preset " + string(c.Level)
}

func (c DimensionSpec) String() string {
	if c.Percent > 0 {
		return fmt.Sprintf("dimensions %g%%", c.Percent)
	}
	side := func(v int) string {
		if v <= 0 {
			return "auto"
		}
		return strconv.Itoa(v)
	}
	s := fmt.Sprintf("dimensions %sx%s", side(c.Width), side(c.Height))
	if c.KeepAspect {
		s += " keep-aspect"
	}
	return s
}

// ParseByteBudget parses a size such as "50", "50KB", "50KiB" or "1.5MB".
// A bare number is taken as KiB.
func ParseByteBudget(s string) (ByteBudget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ByteBudget{}, fmt.Errorf("%w: empty size", ErrInvalidConstraint)
	}

	if kb, err := strconv.ParseInt(s, 10, 64); err == nil {
		if kb < 1 {
			return ByteBudget{}, fmt.Errorf("%w: size must be at least 1KB, got %q", ErrInvalidConstraint, s)
		}
		if kb > math.MaxInt64/1024 {
			return ByteBudget{}, fmt.Errorf("%w: size %q is too large", ErrInvalidConstraint, s)
		}
		return ByteBudget{MaxBytes: kb * 1024}, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return ByteBudget{}, fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
	}
	if n == 0 {
		return ByteBudget{}, fmt.Errorf("%w: size must be positive, got %q", ErrInvalidConstraint, s)
	}
	if n > math.MaxInt64 {
		return ByteBudget{}, fmt.Errorf("%w: size %q is too large", ErrInvalidConstraint, s)
	}
	return ByteBudget{MaxBytes: int64(n)}, nil
}
