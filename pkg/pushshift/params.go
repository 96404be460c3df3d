package pushshift

import (
	"maps"
	"net/url"
)

// Params is a write-once mapping of query parameters. A name can be set at
// most once until it is deleted.
type Params struct {
	values map[string]string
}

// NewParams creates an empty mapping.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set inserts name=value, failing with ErrDuplicateParameter if name is
// already present. The existing value is kept on failure.
func (p *Params) Set(name, value string) error {
	if _, ok := p.values[name]; ok {
		return &BuildError{Err: ErrDuplicateParameter, Param: name, Value: value}
	}
	p.values[name] = value
	return nil
}

func (p *Params) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p *Params) Delete(name string) {
	delete(p.values, name)
}

func (p *Params) Len() int {
	return len(p.values)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	return &Params{values: maps.Clone(p.values)}
}

// Values converts the mapping to url.Values.
func (p *Params) Values() url.Values {
	v := make(url.Values, len(p.values))
	for name, value := range p.values {
		v.Set(name, value)
	}
	return v
}
