// Package payers holds the table of NPHIES payers the gateway knows about.
package payers

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed payers.toml
var defaultTable string

type Payer struct {
	Code    string `toml:"code"`
	Name    string `toml:"name"`
	PreAuth bool   `toml:"preauth"`
}

type table struct {
	Payer []Payer `toml:"payer"`
}

// Directory is read-only after construction.
type Directory struct {
	byCode map[string]Payer
}

// Default returns the directory built from the embedded payer table.
func Default() (*Directory, error) {
	return Parse(defaultTable)
}

// Load reads a payer table from a TOML file.
func Load(path string) (*Directory, error) {
	var t table
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode payer table %s: %w", path, err)
	}
	return newDirectory(t.Payer)
}

func Parse(data string) (*Directory, error) {
	var t table
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode payer table: %w", err)
	}
	return newDirectory(t.Payer)
}

func newDirectory(list []Payer) (*Directory, error) {
	d := &Directory{byCode: make(map[string]Payer, len(list))}
	for _, p := range list {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return nil, fmt.Errorf("payer %q has no code", p.Name)
		}
		if _, dup := d.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate payer code %s", code)
		}
		p.Code = code
		d.byCode[code] = p
	}
	return d, nil
}

func (d *Directory) Lookup(code string) (Payer, bool) {
	if d == nil {
		return Payer{}, false
	}
	p, ok := d.byCode[code]
	return p, ok
}

// Name returns the payer name, or "" for unknown codes.
func (d *Directory) Name(code string) string {
	p, _ := d.Lookup(code)
	return p.Name
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byCode)
}
