/*
 * rvtz - Boot-time configuration file parser
 *
 * Copyright 2026, rvtz authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config is a small hand-rolled line-oriented configuration file
// format for describing a hart's boot-time PMP table and tag presets, so a
// test harness or CLI can declare protection state in a text file instead
// of Go source.
//
// Configuration file format:
//
//	'#' indicates a comment, rest of line ignored.
//	<line> := 'entry' <index> <field>*
//	        | 'mtstatus' <field>*
//	        | 'tag' <addr> <tagname>
//	        | 'ttcb' <addr>
//	<field> := 'base=' <num> | 'bound=' <num> | 'perm=' ('r'|'w'|'x')+
//	        | 't' | 'ack' | 'st' | 'en=' ('0'|'1') | 'ue=' ('0'|'1')
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rcornwell/rvtz/emu/mode"
)

// Directive is one parsed, non-comment, non-blank line.
type Directive struct {
	Keyword string
	Fields  []string
	Line    int
}

// Load parses every directive out of r. Blank lines and lines beginning
// with # (after leading whitespace) are skipped.
func Load(r io.Reader) ([]Directive, error) {
	var directives []Directive
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		directives = append(directives, Directive{
			Keyword: strings.ToLower(fields[0]),
			Fields:  fields[1:],
			Line:    lineNumber,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return directives, nil
}

// LoadFile opens name and parses it with Load.
func LoadFile(name string) ([]Directive, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

func parseNumber(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

// EntrySpec is a decoded 'entry' directive, ready to hand to pmp.Entry.
type EntrySpec struct {
	Index         int
	Base          uint64
	Bound         uint64
	Perm          uint8
	Trusted       bool
	Acked         bool
	SecureTrusted bool
}

// ParseEntry decodes an 'entry' directive's fields. The first field is the
// table index; the rest are base=/bound=/perm=/t/ack/st tokens in any
// order.
func ParseEntry(d Directive) (EntrySpec, error) {
	var spec EntrySpec
	if len(d.Fields) < 1 {
		return spec, fmt.Errorf("line %d: entry requires an index", d.Line)
	}
	idx, err := strconv.Atoi(d.Fields[0])
	if err != nil {
		return spec, fmt.Errorf("line %d: bad entry index %q: %w", d.Line, d.Fields[0], err)
	}
	spec.Index = idx

	for _, field := range d.Fields[1:] {
		switch {
		case strings.HasPrefix(field, "base="):
			v, err := parseNumber(strings.TrimPrefix(field, "base="))
			if err != nil {
				return spec, fmt.Errorf("line %d: bad base %q: %w", d.Line, field, err)
			}
			spec.Base = v
		case strings.HasPrefix(field, "bound="):
			v, err := parseNumber(strings.TrimPrefix(field, "bound="))
			if err != nil {
				return spec, fmt.Errorf("line %d: bad bound %q: %w", d.Line, field, err)
			}
			spec.Bound = v
		case strings.HasPrefix(field, "perm="):
			perm, err := parsePerm(strings.TrimPrefix(field, "perm="))
			if err != nil {
				return spec, fmt.Errorf("line %d: %w", d.Line, err)
			}
			spec.Perm = perm
		case field == "t":
			spec.Trusted = true
		case field == "ack":
			spec.Acked = true
		case field == "st":
			spec.SecureTrusted = true
		default:
			return spec, fmt.Errorf("line %d: unknown entry field %q", d.Line, field)
		}
	}
	return spec, nil
}

func parsePerm(s string) (uint8, error) {
	var perm uint8
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			perm |= mode.Load.Bit()
		case 'w':
			perm |= mode.Store.Bit()
		case 'x':
			perm |= mode.Fetch.Bit()
		default:
			return 0, fmt.Errorf("unknown permission letter %q", c)
		}
	}
	return perm, nil
}

// TagSpec is a decoded 'tag' directive.
type TagSpec struct {
	Addr uint64
	Tag  mode.Tag
}

var tagNames = map[string]mode.Tag{
	"normal":   mode.TagNormal,
	"callable": mode.TagCallable,
	"utrusted": mode.TagUTrusted,
	"strusted": mode.TagSTrusted,
}

// ParseTag decodes a 'tag' directive's fields: an address and a tag name.
func ParseTag(d Directive) (TagSpec, error) {
	var spec TagSpec
	if len(d.Fields) != 2 {
		return spec, fmt.Errorf("line %d: tag requires an address and a tag name", d.Line)
	}
	addr, err := parseNumber(d.Fields[0])
	if err != nil {
		return spec, fmt.Errorf("line %d: bad address %q: %w", d.Line, d.Fields[0], err)
	}
	tag, ok := tagNames[strings.ToLower(d.Fields[1])]
	if !ok {
		return spec, fmt.Errorf("line %d: unknown tag name %q", d.Line, d.Fields[1])
	}
	spec.Addr = addr
	spec.Tag = tag
	return spec, nil
}

// ParseTTCB decodes a 'ttcb' directive's single address field.
func ParseTTCB(d Directive) (uint64, error) {
	if len(d.Fields) != 1 {
		return 0, fmt.Errorf("line %d: ttcb requires exactly one address", d.Line)
	}
	return parseNumber(d.Fields[0])
}

// MStatusSpec is a decoded 'mtstatus' directive.
type MStatusSpec struct {
	Enabled    bool
	UTEligible bool
}

// ParseMStatus decodes an 'mtstatus' directive's en=/ue= fields.
func ParseMStatus(d Directive) (MStatusSpec, error) {
	var spec MStatusSpec
	for _, field := range d.Fields {
		switch {
		case strings.HasPrefix(field, "en="):
			spec.Enabled = strings.TrimPrefix(field, "en=") == "1"
		case strings.HasPrefix(field, "ue="):
			spec.UTEligible = strings.TrimPrefix(field, "ue=") == "1"
		default:
			return spec, fmt.Errorf("line %d: unknown mtstatus field %q", d.Line, field)
		}
	}
	return spec, nil
}

// ErrUnknownDirective is returned by callers that walk a directive list and
// encounter a keyword they don't handle.
var ErrUnknownDirective = errors.New("config: unknown directive")
