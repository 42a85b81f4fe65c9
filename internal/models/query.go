package models

// Page is a 1-based page request.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"limit"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(p Page, total int) Pagination {
	p = p.Normalize()
	pages := (total + p.Size - 1) / p.Size
	return Pagination{Page: p.Number, Limit: p.Size, Total: total, TotalPages: pages}
}

// CandidateFilter narrows registration listings for organisers.
type CandidateFilter struct {
	Status RegistrationStatus
	Search string
	Page   Page
}

type FestivalFilter struct {
	City   string
	State  string
	Type   string
	Search string
	Page   Page
}

type RegistrationCounts struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	Solo      int `json:"solo,omitempty"`
	Team      int `json:"team,omitempty"`
}
