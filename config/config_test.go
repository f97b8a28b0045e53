package config

/*
 * rvtz - Configuration parser tests
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

import (
	"strings"
	"testing"

	"github.com/rcornwell/rvtz/emu/core"
	"github.com/rcornwell/rvtz/emu/mode"
)

const sample = `
# boot-time PMP table and tag presets
entry 0 base=0x1000 bound=0x1fff perm=rx t ack
mtstatus en=1 ue=1
tag 0x1000 callable
ttcb 0x4000
`

func TestLoadSkipsBlankAndComment(t *testing.T) {
	directives, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(directives) != 4 {
		t.Fatalf("got %d directives, want 4: %+v", len(directives), directives)
	}
	if directives[0].Keyword != "entry" {
		t.Errorf("directives[0].Keyword = %q, want entry", directives[0].Keyword)
	}
}

func TestParseEntryFields(t *testing.T) {
	directives, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec, err := ParseEntry(directives[0])
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if spec.Base != 0x1000 || spec.Bound != 0x1fff {
		t.Errorf("base/bound = %#x/%#x, want 0x1000/0x1fff", spec.Base, spec.Bound)
	}
	if !spec.Trusted || !spec.Acked || spec.SecureTrusted {
		t.Errorf("flags = %+v, want trusted+acked, not secureTrusted", spec)
	}
	if spec.Perm != mode.Load.Bit()|mode.Fetch.Bit() {
		t.Errorf("perm = %#x, want rx", spec.Perm)
	}
}

func TestParseEntryRejectsUnknownField(t *testing.T) {
	d := Directive{Keyword: "entry", Fields: []string{"0", "bogus=1"}, Line: 1}
	if _, err := ParseEntry(d); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseTagUnknownName(t *testing.T) {
	d := Directive{Keyword: "tag", Fields: []string{"0x10", "weird"}, Line: 2}
	if _, err := ParseTag(d); err == nil {
		t.Fatalf("expected error for unknown tag name")
	}
}

func TestApplyWiresProcessor(t *testing.T) {
	p, err := core.New(64, 2)
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	directives, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Apply(p, directives); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	e := p.PMP.GetEntry(0)
	if e.Base != 0x1000 || e.Bound != 0x1fff {
		t.Errorf("entry 0 base/bound = %#x/%#x", e.Base, e.Bound)
	}
	if !p.PMP.GetMStatus().Enabled() || !p.PMP.GetMStatus().UTEligible() {
		t.Errorf("mtstatus en/ue not applied")
	}
	if got := p.Tags.LoadTag(0x1000); got != mode.TagCallable {
		t.Errorf("tag at 0x1000 = %v, want Callable", got)
	}
	if p.PMP.TTCB() != 0x4000 {
		t.Errorf("ttcb = %#x, want 0x4000", p.PMP.TTCB())
	}
}

func TestApplyEntryIgnoresCallerPrivilege(t *testing.T) {
	p, err := core.New(64, 2)
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	p.SetPrivilege(mode.PrivU)
	p.SetSecurityLevel(mode.Normal)

	directives := []Directive{{Keyword: "entry", Fields: []string{"1", "base=0x2000", "bound=0x2fff", "perm=rw"}, Line: 1}}
	if err := Apply(p, directives); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	e := p.PMP.GetEntry(1)
	if e.Base != 0x2000 || e.Bound != 0x2fff {
		t.Errorf("entry 1 base/bound = %#x/%#x, want 0x2000/0x2fff", e.Base, e.Bound)
	}
	if e.Flags.Perm() != mode.Load.Bit()|mode.Store.Bit() {
		t.Errorf("entry 1 perm = %#b, want rw", e.Flags.Perm())
	}

	if p.Privilege() != mode.PrivU || p.SecurityLevel() != mode.Normal {
		t.Errorf("Apply left processor privilege/security changed: priv=%v sec=%v", p.Privilege(), p.SecurityLevel())
	}
}

func TestApplyRejectsUnknownDirective(t *testing.T) {
	p, err := core.New(64, 2)
	if err != nil {
		t.Fatalf("core.New: %v", err)
	}
	directives := []Directive{{Keyword: "bogus", Line: 1}}
	if err := Apply(p, directives); err == nil {
		t.Fatalf("expected error for unknown directive")
	}
}
