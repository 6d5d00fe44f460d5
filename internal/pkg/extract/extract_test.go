package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBoxTruePageSize(t *testing.T) {
	page := 3
	box := &PageBox{Left: 100, Top: 50, Right: 500, Bottom: 400}
	sizes := map[int]PageSize{3: {Width: 1000, Height: 800}}

	got := NormalizeBox(box, &page, sizes)

	require.NotNil(t, got)
	assert.False(t, got.Approximate)
	assert.InDelta(t, 0.1, got.Left, 1e-9)
	assert.InDelta(t, 0.0625, got.Top, 1e-9)
	assert.InDelta(t, 0.5, got.Right, 1e-9)
	assert.InDelta(t, 0.5, got.Bottom, 1e-9)
}

func TestNormalizeBoxUSLetterFallback(t *testing.T) {
	box := &PageBox{Left: 306, Top: 396, Right: 612, Bottom: 792}

	got := NormalizeBox(box, nil, nil)

	require.NotNil(t, got)
	assert.True(t, got.Approximate)
	assert.InDelta(t, 0.5, got.Left, 1e-9)
	assert.InDelta(t, 0.5, got.Top, 1e-9)
	assert.InDelta(t, 1.0, got.Right, 1e-9)
	assert.InDelta(t, 1.0, got.Bottom, 1e-9)
}

func TestNormalizeBoxClampsOutOfRange(t *testing.T) {
	box := &PageBox{Left: -10, Top: 0, Right: 2000, Bottom: 900}

	got := NormalizeBox(box, nil, nil)

	require.NotNil(t, got)
	assert.Equal(t, 0.0, got.Left)
	assert.Equal(t, 1.0, got.Right)
	assert.Equal(t, 1.0, got.Bottom)
}

func TestNormalizeBoxNil(t *testing.T) {
	assert.Nil(t, NormalizeBox(nil, nil, nil))
}
