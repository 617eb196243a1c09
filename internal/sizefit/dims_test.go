package sizefit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDimensions(t *testing.T) {
	cases := []struct {
		name         string
		w, h         int
		spec         DimensionSpec
		wantW, wantH int
	}{
		{"width keep aspect", 400, 300, DimensionSpec{Width: 200, KeepAspect: true}, 200, 150},
		{"height keep aspect", 400, 300, DimensionSpec{Height: 150, KeepAspect: true}, 200, 150},
		{"width free", 400, 300, DimensionSpec{Width: 200}, 200, 300},
		{"height free", 400, 300, DimensionSpec{Height: 100}, 400, 100},
		{"both", 400, 300, DimensionSpec{Width: 120, Height: 90, KeepAspect: true}, 120, 90},
		{"percent", 400, 300, DimensionSpec{Percent: 50, Width: 10}, 200, 150},
		{"pass-through", 400, 300, DimensionSpec{}, 400, 300},
		{"rounding", 333, 222, DimensionSpec{Width: 100, KeepAspect: true}, 100, 67},
		{"minimum 1px", 1000, 10, DimensionSpec{Width: 10, KeepAspect: true}, 10, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h := ResolveDimensions(tc.w, tc.h, tc.spec)
			assert.Equal(t, tc.wantW, w, "width")
			assert.Equal(t, tc.wantH, h, "height")
		})
	}
}

func TestScaleDims(t *testing.T) {
	w, h := scaleDims(4000, 3000, 0.9)
	assert.Equal(t, 3600, w)
	assert.Equal(t, 2700, h)

	w, h = scaleDims(3, 3, 0.01)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}
