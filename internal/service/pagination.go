package service

import "github.com/RoyceAzure/lab/storefront/internal/constants"

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize 套用預設值與上限
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = constants.DefaultPaging
	}
	if p.Limit < 1 {
		p.Limit = constants.DefaultPagingSize
	}
	if p.Limit > constants.MaxPagingSize {
		p.Limit = constants.MaxPagingSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPageMeta(p PageRequest, total int64) PageMeta {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return PageMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

type Paged[T any] struct {
	Items      []T      `json:"items"`
	Pagination PageMeta `json:"pagination"`
}
