// Package vcd reads the declaration section of value change dump files.
//
// Only the header is decoded: scopes, variables and a few informational
// sections. Value changes after $enddefinitions are never read.
package vcd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Var is a declared variable. Name is the hierarchical reference, scopes
// joined with dots, with any bit range appended (e.g. "tb.dut.q[7:0]").
type Var struct {
	Type string
	Size int
	ID   string
	Name string
}

// Header is the decoded declaration section.
type Header struct {
	Date      string
	Version   string
	Timescale string
	Vars      []Var
}

// ParseFile decodes the header of the dump at path.
func ParseFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "vcd")
	}
	defer f.Close()
	h, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return h, nil
}

// Parse decodes a header from r. A dump truncated before $enddefinitions
// yields the declarations read so far.
func Parse(r io.Reader) (*Header, error) {
	p := &parser{s: bufio.NewScanner(r)}
	p.s.Buffer(make([]byte, 64*1024), 1024*1024)
	p.s.Split(bufio.ScanWords)
	return p.parse()
}

type parser struct {
	s     *bufio.Scanner
	pos   int
	scope []string
	h     Header
}

func (p *parser) next() (string, bool) {
	if !p.s.Scan() {
		return "", false
	}
	p.pos++
	return p.s.Text(), true
}

// section reads tokens up to $end.
func (p *parser) section(kw string) ([]string, error) {
	var toks []string
	for {
		t, ok := p.next()
		if !ok {
			if err := p.s.Err(); err != nil {
				return nil, errors.Wrap(err, "vcd")
			}
			return nil, p.errorf("unterminated %s", kw)
		}
		if t == "$end" {
			return toks, nil
		}
		toks = append(toks, t)
	}
}

func (p *parser) parse() (*Header, error) {
	for {
		t, ok := p.next()
		if !ok {
			if err := p.s.Err(); err != nil {
				return nil, errors.Wrap(err, "vcd")
			}
			return &p.h, nil
		}

		switch t {
		case "$enddefinitions":
			if _, err := p.section(t); err != nil {
				return nil, err
			}
			return &p.h, nil
		case "$scope":
			toks, err := p.section(t)
			if err != nil {
				return nil, err
			}
			if len(toks) < 2 {
				return nil, p.errorf("$scope needs a type and a name")
			}
			p.scope = append(p.scope, toks[1])
		case "$upscope":
			if _, err := p.section(t); err != nil {
				return nil, err
			}
			if len(p.scope) == 0 {
				return nil, p.errorf("$upscope without open scope")
			}
			p.scope = p.scope[:len(p.scope)-1]
		case "$var":
			toks, err := p.section(t)
			if err != nil {
				return nil, err
			}
			v, err := p.variable(toks)
			if err != nil {
				return nil, err
			}
			p.h.Vars = append(p.h.Vars, v)
		case "$date", "$version", "$timescale", "$comment":
			toks, err := p.section(t)
			if err != nil {
				return nil, err
			}
			text := strings.Join(toks, " ")
			switch t {
			case "$date":
				p.h.Date = text
			case "$version":
				p.h.Version = text
			case "$timescale":
				p.h.Timescale = text
			}
		default:
			// Unknown keyword sections and stray tokens are skipped.
			if strings.HasPrefix(t, "$") {
				if _, err := p.section(t); err != nil {
					return nil, err
				}
			}
		}
	}
}

func (p *parser) variable(toks []string) (Var, error) {
	if len(toks) < 4 {
		return Var{}, p.errorf("$var needs type, size, id and reference, got %d fields", len(toks))
	}
	size, err := strconv.Atoi(toks[1])
	if err != nil {
		return Var{}, p.errorf("bad $var size %q", toks[1])
	}
	name := strings.Join(toks[3:], "")
	if len(p.scope) > 0 {
		name = strings.Join(p.scope, ".") + "." + name
	}
	return Var{Type: toks[0], Size: size, ID: toks[2], Name: name}, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Errorf("vcd: token %d: %s", p.pos, fmt.Sprintf(format, args...))
}
