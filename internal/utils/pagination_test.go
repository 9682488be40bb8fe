package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtoiDefault(t *testing.T) {
	assert.Equal(t, 10, AtoiDefault("", 10))
	assert.Equal(t, 42, AtoiDefault("42", 0))
	assert.Equal(t, -13, AtoiDefault("-13", 1))
	assert.Equal(t, 7, AtoiDefault(" 42", 7), "no trimming")
	assert.Equal(t, -1, AtoiDefault("999999999999999999999999", -1))
}

func TestNewPage(t *testing.T) {
	cases := []struct {
		number, size int
		want         Page
	}{
		{0, 0, Page{1, DefaultPageSize}},
		{-4, -1, Page{1, DefaultPageSize}},
		{3, 1000, Page{3, MaxPageSize}},
		{2, 5, Page{2, 5}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewPage(tc.number, tc.size))
	}
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, Page{1, DefaultPageSize}, ParsePage("", ""))
	assert.Equal(t, Page{4, 10}, ParsePage("4", "10"))
	assert.Equal(t, Page{1, DefaultPageSize}, ParsePage("first", "lots"))
}

func TestPage_Math(t *testing.T) {
	p := NewPage(2, 10)
	assert.Equal(t, 10, p.Offset())

	start, end := p.Bounds(25)
	assert.Equal(t, []int{10, 20}, []int{start, end})
	start, end = NewPage(3, 10).Bounds(25)
	assert.Equal(t, []int{20, 25}, []int{start, end})
	start, end = NewPage(9, 10).Bounds(25)
	assert.Equal(t, start, end)

	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 3, p.TotalPages(21))
}
