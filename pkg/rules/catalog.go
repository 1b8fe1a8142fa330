package rules

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/camuslang/camus/pkg/query"
)

// Catalog maps header-field names to their pipeline priority and bit
// width. Fields not present in the catalog resolve with a default width so
// surface references like `stful_meta.*` still carry through.
type Catalog struct {
	fields map[query.FieldKey]query.Field
}

// defaultFieldWidth is used for fields the catalog does not know about.
const defaultFieldWidth = 32

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{fields: make(map[query.FieldKey]query.Field)}
}

// DefaultCatalog returns the built-in header-field definitions.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, f := range predefinedFields {
		c.Put(f)
	}
	return c
}

// Put adds or replaces a field definition.
func (c *Catalog) Put(f query.Field) {
	c.fields[f.Key()] = f
}

// Resolve returns the catalog's definition for (header, field), or a
// default-width, priority-zero field when the catalog has no entry.
func (c *Catalog) Resolve(header, field string) query.Field {
	if f, ok := c.fields[query.FieldKey{Header: header, Field: field}]; ok {
		return f
	}
	return query.Field{Header: header, Field: field, Priority: 0, Width: defaultFieldWidth}
}

// tomlCatalog mirrors the header-catalog TOML file:
//
//	[[headers]]
//	name = "ipv4"
//	[[headers.fields]]
//	name = "dstAddr"
//	width = 32
//	priority = 11
type tomlCatalog struct {
	Headers []tomlHeader `toml:"headers"`
}

type tomlHeader struct {
	Name   string      `toml:"name"`
	Fields []tomlField `toml:"fields"`
}

type tomlField struct {
	Name     string `toml:"name"`
	Width    int    `toml:"width"`
	Priority int    `toml:"priority"`
}

// LoadTOML merges field definitions from a TOML catalog file into c.
func (c *Catalog) LoadTOML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	return c.MergeTOML(data)
}

// MergeTOML merges field definitions from TOML text into c.
func (c *Catalog) MergeTOML(data []byte) error {
	var doc tomlCatalog
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for _, h := range doc.Headers {
		if h.Name == "" {
			return fmt.Errorf("catalog: header with empty name")
		}
		for _, f := range h.Fields {
			if f.Name == "" {
				return fmt.Errorf("catalog: header %s: field with empty name", h.Name)
			}
			width := f.Width
			if width <= 0 {
				width = defaultFieldWidth
			}
			c.Put(query.Field{
				Header:   h.Name,
				Field:    f.Name,
				Priority: f.Priority,
				Width:    width,
			})
		}
	}
	return nil
}

// predefinedFields is the built-in catalog covering the common Ethernet,
// IPv4/IPv6 and TCP/UDP headers. Priority fixes the pipeline stage order:
// lower priorities are decided earlier.
var predefinedFields = []query.Field{
	{Header: "eth", Field: "dst", Priority: 1, Width: 48},
	{Header: "eth", Field: "src", Priority: 2, Width: 48},
	{Header: "eth", Field: "type", Priority: 3, Width: 16},

	{Header: "ipv4", Field: "srcAddr", Priority: 10, Width: 32},
	{Header: "ipv4", Field: "dstAddr", Priority: 11, Width: 32},
	{Header: "ipv4", Field: "proto", Priority: 12, Width: 8},
	{Header: "ipv4", Field: "ttl", Priority: 13, Width: 8},
	{Header: "ipv4", Field: "dscp", Priority: 14, Width: 6},

	{Header: "ipv6", Field: "srcAddr", Priority: 15, Width: 128},
	{Header: "ipv6", Field: "dstAddr", Priority: 16, Width: 128},
	{Header: "ipv6", Field: "nextHdr", Priority: 17, Width: 8},

	{Header: "tcp", Field: "sport", Priority: 20, Width: 16},
	{Header: "tcp", Field: "dport", Priority: 21, Width: 16},
	{Header: "tcp", Field: "flags", Priority: 22, Width: 8},

	{Header: "udp", Field: "sport", Priority: 23, Width: 16},
	{Header: "udp", Field: "dport", Priority: 24, Width: 16},
}
