package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationClamps(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, Pagination{Page: 1, PerPage: DefaultPageLimit, Total: 45, TotalPages: 3}, p)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 1000, 10)
	assert.Equal(t, MaxPageLimit, p.PerPage)
	assert.Equal(t, 400, p.Offset())
}

func TestNewPageEnvelope(t *testing.T) {
	page := NewPage([]string{"c", "d"}, NewPagination(2, 2, 5))
	assert.Equal(t, PageInfo{Current: 2, Prev: 1, HasPrev: true, Next: 3, HasNext: true, Total: 3}, page.Pages)
	assert.Equal(t, ItemInfo{Limit: 2, Begin: 3, End: 4, Total: 5}, page.Items)

	last := NewPage([]string{"e"}, NewPagination(3, 2, 5))
	assert.False(t, last.Pages.HasNext)
	assert.Equal(t, 5, last.Items.End)
}

func TestNewPageEmpty(t *testing.T) {
	page := NewPage[int](nil, NewPagination(1, 20, 0))
	assert.NotNil(t, page.Data)
	assert.Equal(t, PageInfo{Current: 1, Total: 0}, page.Pages)
	assert.Equal(t, ItemInfo{Limit: 20, Begin: 0, End: 0, Total: 0}, page.Items)
}
