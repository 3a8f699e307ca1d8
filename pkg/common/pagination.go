package common

import (
	"net/http"
	"strconv"
)

// PaginationParams represents page-based pagination extracted from a request.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultPaginationParams returns the defaults used by dashboard listings.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Page: 1, PageSize: 50}
}

// ExtractPaginationParams extracts pagination parameters from a request.
// Out-of-range values fall back to defaults; page size is capped at 100.
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}
	if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			if ps > 100 {
				ps = 100
			}
			params.PageSize = ps
		}
	}
	return params
}

// Offset calculates the slice offset for the current page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationInfo describes the window a paginated response covers.
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// BuildPaginationMeta builds pagination metadata for a listing response.
func BuildPaginationMeta(p PaginationParams, total int) *PaginationInfo {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = total / p.PageSize
		if total%p.PageSize > 0 {
			totalPages++
		}
	}
	return &PaginationInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
