package domain

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// Page describe una ventana de resultados (número base 0).
type Page struct {
	Number int
	Size   int
}

// Normalize aplica valores por defecto y límites.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return n.Number * n.Size
}
