package errors

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesMetadata(t *testing.T) {
	err := Newf("lane count %d out of range", 12).
		Component("conf").
		Category(CategoryValidation).
		Context("lanes", 12).
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, "conf", ee.Component)
	assert.Equal(t, CategoryValidation, ee.Category)
	assert.Equal(t, 12, ee.GetContext()["lanes"])
	assert.Contains(t, err.Error(), "lane count 12 out of range")
	assert.Contains(t, err.Error(), "lanes=12")
}

func TestUnwrapPreservesChain(t *testing.T) {
	base := fs.ErrNotExist
	err := New(base).Component("watcher").Category(CategoryFileIO).Build()
	assert.True(t, Is(err, fs.ErrNotExist))
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, CategoryGeneric, CategoryOf(NewStd("plain")))
}
