package pagination

import (
	"fmt"
	"strconv"
)

// Params represents pagination query parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Page represents one page of results with client-side pagination metadata
type Page struct {
	CurrentPage int         `json:"current_page"`
	PerPage     int         `json:"per_page"`
	TotalPages  int         `json:"total_pages"`
	TotalCount  int64       `json:"total_count"`
	Data        interface{} `json:"data"`
}

// Defaults and bounds
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Parse parses page/limit query parameters, clamping to bounds
func Parse(pageStr, limitStr string) (*Params, error) {
	page := DefaultPage
	limit := DefaultLimit

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter: %w", err)
		}
		if p >= 1 {
			page = p
		}
	}

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid limit parameter: %w", err)
		}
		switch {
		case l < MinLimit:
			limit = MinLimit
		case l > MaxLimit:
			limit = MaxLimit
		default:
			limit = l
		}
	}

	return &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

// NewPage assembles a Page from a result slice and a total row count
func NewPage(data interface{}, params *Params, total int64) *Page {
	totalPages := int(total) / params.Limit
	if int(total)%params.Limit != 0 {
		totalPages++
	}
	if totalPages == 0 {
		totalPages = 1
	}

	return &Page{
		CurrentPage: params.Page,
		PerPage:     params.Limit,
		TotalPages:  totalPages,
		TotalCount:  total,
		Data:        data,
	}
}
