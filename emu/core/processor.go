/*
 * rvtz - Processor shell wiring PMP and tag engine to a simulated hart
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

// Package core stands in for "the rest of the simulator": a minimal
// per-hart Processor that owns one PMP cache and one tag engine and
// exposes the handful of read-only accessors (privilege, security level,
// PC, xlen) those subsystems consult. This is the object the PMP and tag
// engine hold a borrowed reference to, obtained once at construction,
// rather than walking a back-reference graph.
package core

import (
	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/emu/pmp"
	"github.com/rcornwell/rvtz/emu/tagengine"
)

// Processor is a per-simulated-hart singleton: strictly single-threaded,
// no internal locking, state updates visible to subsequent checks in
// program order.
type Processor struct {
	priv mode.Privilege
	sec  mode.SecurityLevel
	pc   uint64
	xlen int

	PMP  *pmp.PMP
	Tags *tagengine.TagEngine
}

// New constructs a Processor for the given address width (32 or 64) and
// tag width (1-64 bits). It starts in Machine privilege, Normal security,
// PC 0, with both subsystems reset to their permissive states.
func New(xlen int, tagWidth uint) (*Processor, error) {
	p := &Processor{xlen: xlen, priv: mode.PrivM, sec: mode.Normal}

	maxAddr := uint64(1)<<uint(xlen) - 1
	p.PMP = pmp.New(p, maxAddr)

	tags, err := tagengine.New(p, p.PMP, tagWidth)
	if err != nil {
		return nil, err
	}
	p.Tags = tags

	return p, nil
}

// Privilege returns the current horizontal privilege.
func (p *Processor) Privilege() mode.Privilege { return p.priv }

// SecurityLevel returns the current vertical security level.
func (p *Processor) SecurityLevel() mode.SecurityLevel { return p.sec }

// SetSecurityLevel changes the current vertical security level. Ordinarily
// called only by the tag engine, as the side effect of a qualifying fetch
// (trusted_modeswitch); boot-time configuration also drives it directly to
// reach the Supervisor-Secure state PMP.SetEntry requires.
func (p *Processor) SetSecurityLevel(s mode.SecurityLevel) { p.sec = s }

// SetPrivilege changes the current horizontal privilege, e.g. as the
// result of a trap or mode-change instruction handled outside this core.
func (p *Processor) SetPrivilege(pr mode.Privilege) { p.priv = pr }

// PC returns the current program counter, used only for attributing
// dropped-write warnings to a location.
func (p *Processor) PC() uint64 { return p.pc }

// SetPC updates the program counter.
func (p *Processor) SetPC(pc uint64) { p.pc = pc }

// XLen returns the configured address width in bits (32 or 64).
func (p *Processor) XLen() int { return p.xlen }

// Reset restores Machine/Normal/PC=0 and resets both subsystems.
func (p *Processor) Reset() {
	p.priv = mode.PrivM
	p.sec = mode.Normal
	p.pc = 0
	p.PMP.Reset()
	p.Tags.Reset()
}

// Access is the single entry point the MMU/fetch unit calls for every
// memory operation: Machine mode bypasses both subsystems by design;
// everything else must clear the PMP range check before the tag engine's
// access-matrix/mode-switch check runs.
func (p *Processor) Access(addr, length uint64, at mode.AccessType) bool {
	if p.priv == mode.PrivM {
		return true
	}
	if !p.PMP.Check(addr, length, at, p.priv, p.sec) {
		return false
	}
	return p.Tags.TagCheck(addr, at)
}
