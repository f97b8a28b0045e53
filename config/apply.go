/*
 * rvtz - Wires parsed boot-time directives onto a live Processor
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

package config

import (
	"fmt"

	"github.com/rcornwell/rvtz/emu/core"
	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/emu/pmp"
)

// Apply walks directives in order and wires each onto p. PMP.SetEntry only
// accepts writes from Supervisor privilege (Supervisor-Secure takes the
// entry verbatim; Supervisor-Normal forces ACK=0 and drops ST writes), so
// entry directives are applied with p driven to Supervisor-Secure for the
// duration of the write, regardless of the privilege/security state p was
// in when Apply was called; that state is restored before Apply returns.
func Apply(p *core.Processor, directives []Directive) error {
	for _, d := range directives {
		switch d.Keyword {
		case "entry":
			spec, err := ParseEntry(d)
			if err != nil {
				return err
			}
			if spec.Index < 0 || spec.Index >= pmp.NumEntries {
				return fmt.Errorf("line %d: entry index %d out of range", d.Line, spec.Index)
			}
			setEntryPrivileged(p, spec.Index, pmp.Entry{
				Base:  spec.Base,
				Bound: spec.Bound,
				Flags: pmp.NewFlags(spec.Perm, spec.Trusted, spec.Acked, spec.SecureTrusted),
			})
		case "mtstatus":
			spec, err := ParseMStatus(d)
			if err != nil {
				return err
			}
			var v pmp.MStatus
			if spec.Enabled {
				v |= 1
			}
			if spec.UTEligible {
				v |= 1 << 16
			}
			p.PMP.SetMStatus(v)
		case "tag":
			spec, err := ParseTag(d)
			if err != nil {
				return err
			}
			if err := p.Tags.StoreTag(spec.Addr, spec.Tag); err != nil {
				return fmt.Errorf("line %d: %w", d.Line, err)
			}
		case "ttcb":
			addr, err := ParseTTCB(d)
			if err != nil {
				return err
			}
			p.PMP.UpdateTTCB(addr)
		default:
			return fmt.Errorf("line %d: %w: %q", d.Line, ErrUnknownDirective, d.Keyword)
		}
	}
	return nil
}

// setEntryPrivileged writes a PMP entry under Supervisor-Secure, the only
// state SetEntry accepts verbatim, then restores p's prior privilege and
// security level.
func setEntryPrivileged(p *core.Processor, index int, e pmp.Entry) {
	priv, sec := p.Privilege(), p.SecurityLevel()
	p.SetPrivilege(mode.PrivS)
	p.SetSecurityLevel(mode.Secure)
	p.PMP.SetEntry(index, e)
	p.SetPrivilege(priv)
	p.SetSecurityLevel(sec)
}
