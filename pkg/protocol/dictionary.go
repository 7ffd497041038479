package protocol

import (
	"fmt"
	"sort"
)

// Dictionary is the route compression table shared by both peers.
// It maps route names to 2-byte codes and back, and is immutable once built.
// A nil *Dictionary is valid and contains no routes.
type Dictionary struct {
	routeToCode map[string]uint16
	codeToRoute map[uint16]string
}

// NewDictionary builds a dictionary from a route→code table, as carried in
// the "dict" field of the server handshake. Two routes sharing a code is an
// error because the code could not be resolved back unambiguously.
func NewDictionary(routes map[string]uint16) (*Dictionary, error) {
	d := &Dictionary{
		routeToCode: make(map[string]uint16, len(routes)),
		codeToRoute: make(map[uint16]string, len(routes)),
	}
	for route, code := range routes {
		if prev, ok := d.codeToRoute[code]; ok {
			first, second := prev, route
			if second < first {
				first, second = second, first
			}
			return nil, fmt.Errorf("%w: %d used by %q and %q", ErrDuplicateRouteCode, code, first, second)
		}
		d.routeToCode[route] = code
		d.codeToRoute[code] = route
	}
	return d, nil
}

// MustDictionary is like NewDictionary but panics on error.
// Intended for package-level tables and tests.
func MustDictionary(routes map[string]uint16) *Dictionary {
	d, err := NewDictionary(routes)
	if err != nil {
		panic(err)
	}
	return d
}

// Code returns the code registered for route.
func (d *Dictionary) Code(route string) (uint16, bool) {
	if d == nil {
		return 0, false
	}
	code, ok := d.routeToCode[route]
	return code, ok
}

// Route returns the route registered for code.
func (d *Dictionary) Route(code uint16) (string, bool) {
	if d == nil {
		return "", false
	}
	route, ok := d.codeToRoute[code]
	return route, ok
}

// Len returns the number of routes in the dictionary.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.routeToCode)
}

// Routes returns a copy of the route→code table.
func (d *Dictionary) Routes() map[string]uint16 {
	out := make(map[string]uint16, d.Len())
	if d == nil {
		return out
	}
	for route, code := range d.routeToCode {
		out[route] = code
	}
	return out
}

// Names returns the routes sorted by code.
func (d *Dictionary) Names() []string {
	if d == nil {
		return nil
	}
	codes := make([]int, 0, len(d.codeToRoute))
	for code := range d.codeToRoute {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = d.codeToRoute[uint16(code)]
	}
	return names
}
