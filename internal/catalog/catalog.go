package catalog

import (
	"fmt"
	"sync"
)

// Catalog is an ordered registry of named queries.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	queries map[string]Query
}

func New() *Catalog {
	return &Catalog{queries: make(map[string]Query)}
}

func (c *Catalog) Register(q Query) error {
	if err := Validate(q); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.queries[q.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, q.Name)
	}
	c.queries[q.Name] = q
	c.order = append(c.order, q.Name)
	return nil
}

// MustRegister is Register for static definitions.
func (c *Catalog) MustRegister(queries ...Query) {
	for _, q := range queries {
		if err := c.Register(q); err != nil {
			panic(err)
		}
	}
}

func (c *Catalog) Get(name string) (Query, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.queries[name]
	if !ok {
		return Query{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return q, nil
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// All returns the queries in registration order.
func (c *Catalog) All() []Query {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Query, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.queries[name])
	}
	return out
}

func (c *Catalog) BySection(s Section) []Query {
	var out []Query
	for _, q := range c.All() {
		if q.Section == s {
			out = append(out, q)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
