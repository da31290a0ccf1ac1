package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Defaults(t *testing.T) {
	params, err := Parse("", "")

	assert.NoError(t, err)
	assert.Equal(t, DefaultPage, params.Page)
	assert.Equal(t, DefaultLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestParse_ClampsLimit(t *testing.T) {
	params, err := Parse("3", "500")

	assert.NoError(t, err)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, MaxLimit, params.Limit)
	assert.Equal(t, 2*MaxLimit, params.Offset)
}

func TestParse_InvalidPage(t *testing.T) {
	_, err := Parse("abc", "")
	assert.Error(t, err)
}

func TestNewPage_TotalPages(t *testing.T) {
	params := &Params{Page: 1, Limit: 15, Offset: 0}

	page := NewPage([]int{1, 2, 3}, params, 31)

	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(31), page.TotalCount)

	empty := NewPage([]int{}, params, 0)
	assert.Equal(t, 1, empty.TotalPages)
}
