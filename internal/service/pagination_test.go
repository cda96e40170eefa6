package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageRequestNormalize(t *testing.T) {
	require.Equal(t, PageRequest{Page: 1, Limit: 20}, PageRequest{}.Normalize())
	require.Equal(t, PageRequest{Page: 3, Limit: 100}, PageRequest{Page: 3, Limit: 500}.Normalize())
	require.Equal(t, 40, PageRequest{Page: 3, Limit: 20}.Offset())
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(PageRequest{Page: 2, Limit: 10}, 25)
	require.Equal(t, PageMeta{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasNext: true, HasPrev: true}, meta)

	meta = NewPageMeta(PageRequest{Page: 1, Limit: 10}, 0)
	require.Equal(t, 0, meta.TotalPages)
	require.False(t, meta.HasNext)
	require.False(t, meta.HasPrev)
}
