package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationRejectsEmptyText(t *testing.T) {
	v := NewValidator()

	_, err := v.Annotation(Annotation{Text: "", X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestAnnotationTextIsKeptVerbatim(t *testing.T) {
	v := NewValidator()

	for _, text := range []string{
		"x<y and y>z",
		"a&lt;b",
		"  indented",
		"trailing ",
		"   ",
		"<b></b>",
		`<script>alert(1)</script>Tom & "Jerry"`,
	} {
		a, err := v.Annotation(Annotation{Text: text, X: 3, Y: 4})
		require.NoError(t, err, "text %q", text)
		assert.Equal(t, text, a.Text)
		assert.Equal(t, 3.0, a.X)
	}
}

func TestAnnotationBounds(t *testing.T) {
	v := NewValidator()

	_, err := v.Annotation(Annotation{Text: "x", X: 2e6, Y: 0})
	assert.ErrorContains(t, err, "'X' value out of allowed range")

	_, err = v.Annotation(Annotation{Text: strings.Repeat("a", 1001)})
	assert.Error(t, err)
}

func TestPen(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Pen("#000000", 5))
	assert.NoError(t, v.Pen("#f0a", 1))
	assert.Error(t, v.Pen("black", 5))
	assert.Error(t, v.Pen("#000000", 0))
	assert.Error(t, v.Pen("#000000", 21))
}
