package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMarker = errors.New("marker")

func TestMark(t *testing.T) {
	cause := errors.New("connection reset")

	marked := Mark(cause, errMarker)

	assert.ErrorIs(t, marked, errMarker)
	assert.ErrorIs(t, marked, cause)
	assert.Equal(t, "connection reset", marked.Error())
}

func TestMark_NilReturnsMarker(t *testing.T) {
	assert.Equal(t, errMarker, Mark(nil, errMarker))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))

	err := Wrap(errMarker, "loading slot")
	require.Error(t, err)
	assert.ErrorIs(t, err, errMarker)
	assert.Equal(t, "loading slot: marker", err.Error())
}

func TestMark_As(t *testing.T) {
	type codeErr struct{ error }
	cause := &codeErr{errors.New("40001")}

	var target *codeErr
	assert.True(t, errors.As(Mark(cause, errMarker), &target))
	assert.Same(t, cause, target)
}

func TestExtractStackLines(t *testing.T) {
	assert.Nil(t, ExtractStackLines(nil, 3))

	lines := ExtractStackLines(New("boom"), 2)
	assert.Len(t, lines, 2)
}
