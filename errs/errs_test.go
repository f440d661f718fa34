package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryTagging(t *testing.T) {
	err := New(Validation, "range start exceeds end")
	require.Equal(t, Validation, CategoryOf(err))
	require.Equal(t, "validation: range start exceeds end", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IO, "writing checkpoint", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, IO, CategoryOf(err))
	require.Equal(t, "io: writing checkpoint: disk full", err.Error())

	require.NoError(t, Wrap(IO, "nothing", nil))
}

func TestNestedCategories(t *testing.T) {
	inner := New(Parse, "bad address line")
	outer := Wrap(Config, "loading targets", inner)

	// Outermost category wins for CategoryOf; IsCategory sees both.
	require.Equal(t, Config, CategoryOf(outer))
	require.True(t, IsCategory(outer, Config))
	require.True(t, IsCategory(outer, Parse))
	require.False(t, IsCategory(outer, Crypto))
}

func TestWrappedWithStdlib(t *testing.T) {
	err := fmt.Errorf("outer context: %w", New(Runtime, "task panicked"))
	require.Equal(t, Runtime, CategoryOf(err))
}

func TestCategoryStrings(t *testing.T) {
	require.Equal(t, "unknown", Category(0).String())
	require.Equal(t, "system", System.String())
}
