package models

import "strings"

// Symbol is an interned categorical value. The zero Symbol means missing.
type Symbol int32

// NoSymbol marks a missing categorical value
const NoSymbol Symbol = 0

// Symbols interns the values of category-typed columns.
// It only grows during ingestion and is read-only afterwards.
type Symbols struct {
	values []string
	index  map[string]Symbol
}

// NewSymbols creates an empty symbol table
func NewSymbols() *Symbols {
	return &Symbols{
		values: []string{""},
		index:  make(map[string]Symbol),
	}
}

// Intern returns the symbol for v, allocating one if needed.
// Blank values map to NoSymbol.
func (s *Symbols) Intern(v string) Symbol {
	v = strings.TrimSpace(v)
	if v == "" {
		return NoSymbol
	}
	if sym, ok := s.index[v]; ok {
		return sym
	}
	sym := Symbol(len(s.values))
	s.values = append(s.values, v)
	s.index[v] = sym
	return sym
}

// Lookup returns the symbol of an already interned value
func (s *Symbols) Lookup(v string) (Symbol, bool) {
	sym, ok := s.index[strings.TrimSpace(v)]
	return sym, ok
}

// String returns the value of a symbol, or "" for NoSymbol
func (s *Symbols) String(sym Symbol) string {
	if sym <= NoSymbol || int(sym) >= len(s.values) {
		return ""
	}
	return s.values[sym]
}

// Len returns the number of distinct interned values
func (s *Symbols) Len() int {
	return len(s.values) - 1
}
