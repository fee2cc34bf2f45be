package pagination

// Page normalizes page-number pagination for list endpoints.
type Page struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"pageSize,default=20"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

func (p Page) Limit() int {
	return p.Normalize().PageSize
}
