package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetsComponentAndCategory(t *testing.T) {
	err := New(NewStd("boom")).
		Component("showcontrol").
		Category(CategoryState).
		Context("cue_id", "c1").
		Build()

	require.Equal(t, "showcontrol", err.GetComponent())
	assert.Equal(t, string(CategoryState), err.GetCategory())
	assert.Equal(t, "c1", err.GetContext()["cue_id"])
	assert.Equal(t, "boom", err.GetMessage())
}

func TestBuilderAutoDetectsCategory(t *testing.T) {
	err := New(NewStd("connection refused")).Build()
	assert.Equal(t, CategoryNetwork, err.Category)

	err = New(NewStd("breakpoint not found")).Build()
	assert.Equal(t, CategoryNotFound, err.Category)
}

func TestIsCategory(t *testing.T) {
	err := ValidationError("position out of range")
	assert.True(t, IsCategory(err, CategoryValidation))
	assert.False(t, IsCategory(err, CategoryState))
}

func TestTimingContext(t *testing.T) {
	err := New(NewStd("slow")).Timing("seek", 150*time.Millisecond).Build()
	assert.Equal(t, "seek", err.GetContext()["operation"])
	assert.EqualValues(t, 150, err.GetContext()["duration_ms"])
}

func TestGetContextReturnsCopy(t *testing.T) {
	err := New(NewStd("x")).Context("a", 1).Build()
	ctx := err.GetContext()
	ctx["a"] = 2
	assert.Equal(t, 1, err.GetContext()["a"])
}
