/*
 * rvtz - Physical Memory Protection cache
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

// Package pmp implements the per-hart Physical Memory Protection cache: an
// 8-entry range table that gates fetches from Supervisor-Secure and all
// accesses from User mode, plus the mtstatus register and TTCB pointer the
// trusted runtime uses to describe itself to the rest of the simulator.
//
// Range checks, flag packing, and mtstatus all use plain unsigned integers
// with explicit shift/mask accessors rather than compiler-packed structs,
// so the bit layout crossing the CSR boundary is reproducible.
package pmp

import (
	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/util/debug"
)

// NumEntries is the fixed size of the PMP table.
const NumEntries = 8

// Flags packs perm[2:0] | T[3] | ACK[4] | ST[5] into one word, little-endian
// within the word, matching the layout in the external interface.
type Flags uint8

const (
	permMask Flags = 0x7
	tBit     Flags = 1 << 3
	ackBit   Flags = 1 << 4
	stBit    Flags = 1 << 5
)

// NewFlags builds a Flags word from its component fields. perm is a 3-bit
// RWX mask (bit positions given by mode.AccessType.Bit()).
func NewFlags(perm uint8, trusted, acked, secureTrusted bool) Flags {
	f := Flags(perm) & permMask
	if trusted {
		f |= tBit
	}
	if acked {
		f |= ackBit
	}
	if secureTrusted {
		f |= stBit
	}
	return f
}

// Perm returns the raw 3-bit RWX mask.
func (f Flags) Perm() uint8 { return uint8(f & permMask) }

// CanAccess reports whether the permission mask grants the given access type.
func (f Flags) CanAccess(at mode.AccessType) bool { return f.Perm()&at.Bit() != 0 }

// Trusted reports the T bit: entry describes a Trusted region.
func (f Flags) Trusted() bool { return f&tBit != 0 }

// Acked reports the ACK bit: region is acknowledged by the trusted runtime.
func (f Flags) Acked() bool { return f&ackBit != 0 }

// SecureTrusted reports the ST bit: only S-Secure may fetch here, and User
// mode may never enter.
func (f Flags) SecureTrusted() bool { return f&stBit != 0 }

func (f Flags) withAck(v bool) Flags {
	if v {
		return f | ackBit
	}
	return f &^ ackBit
}

// Entry is one range of the PMP table. Bound is treated as inclusive of the
// last covered byte address: an access covers iff
// addr >= Base && addr+length-1 <= Bound. This resolves the ambiguity in
// the original "addr+len <= bound" formulation for a reset value of
// Bound = max address, where addr+len would otherwise need to be computed
// in a wider type to avoid spurious wraparound.
type Entry struct {
	Base  uint64
	Bound uint64
	Flags Flags
}

func permissiveEntry(maxAddr uint64) Entry {
	return Entry{Base: 0, Bound: maxAddr, Flags: NewFlags(0x7, false, false, false)}
}

// covers reports whether [addr, addr+length) lies entirely within the
// entry's range. An addr/length pair whose sum would wrap is treated as
// uncovered (denied) rather than risking a false permissive match.
func (e Entry) covers(addr, length uint64) bool {
	if length == 0 {
		return addr >= e.Base && addr <= e.Bound
	}
	last := addr + length - 1
	if last < addr {
		return false
	}
	return addr >= e.Base && last <= e.Bound
}

// MStatus is the mtstatus register: en[0] | mode[1] | reserved[15:2] |
// ue[16] | ui[17].
type MStatus uint32

const (
	enBit   MStatus = 1 << 0
	modeBit MStatus = 1 << 1
	ueBit   MStatus = 1 << 16
	uiBit   MStatus = 1 << 17
)

// Enabled reports the en bit: PMP+Tag enforcement is active.
func (m MStatus) Enabled() bool { return m&enBit != 0 }

// UTEligible reports the ue bit: a U-Trusted thread is eligible to run.
func (m MStatus) UTEligible() bool { return m&ueBit != 0 }

// UTInterrupted reports the ui bit: the U-Trusted thread was interrupted.
func (m MStatus) UTInterrupted() bool { return m&uiBit != 0 }

func (m MStatus) withMode(sec mode.SecurityLevel) MStatus {
	m &^= modeBit
	if sec == mode.Secure {
		m |= modeBit
	}
	return m
}

// ProcessorView is the read-only slice of processor state the PMP cache
// consults: whose write this is, and where to attribute a dropped write in
// the log. It is satisfied structurally by the processor shell, injected
// once at construction as a borrowed reference (the cache never owns it).
type ProcessorView interface {
	Privilege() mode.Privilege
	SecurityLevel() mode.SecurityLevel
	PC() uint64
}

// PMP is the per-hart Physical Memory Protection cache.
type PMP struct {
	proc     ProcessorView
	entries  [NumEntries]Entry
	mtstatus MStatus
	ttcb     uint64
	maxAddr  uint64
}

// New builds a PMP cache bound to proc and reset to the permissive state.
// maxAddr is the largest addressable byte (e.g. 1<<xlen - 1).
func New(proc ProcessorView, maxAddr uint64) *PMP {
	p := &PMP{proc: proc, maxAddr: maxAddr}
	p.Reset()
	return p
}

// Reset clears the TTCB pointer, zeroes mtstatus, and flushes the table.
func (p *PMP) Reset() {
	p.ttcb = 0
	p.mtstatus = 0
	p.FlushPMP()
}

// FlushPMP sets every entry to the permissive reset state: base=0,
// bound=max, perm=RWX, all other flags cleared.
func (p *PMP) FlushPMP() {
	permissive := permissiveEntry(p.maxAddr)
	for i := range p.entries {
		p.entries[i] = permissive
	}
}

// GetEntry returns entry i. i must be in [0, NumEntries).
func (p *PMP) GetEntry(i int) Entry { return p.entries[i] }

// SetEntry writes entry i, applying the writer-mode policy from the current
// processor state: Supervisor-Secure writes take e verbatim; Supervisor-
// Normal writes force ACK=0 and drop entirely (logging a warning) if e.ST
// is set. Writes from any other privilege are not expected and are
// rejected here rather than at a higher level.
func (p *PMP) SetEntry(i int, e Entry) {
	if p.proc.Privilege() != mode.PrivS {
		return
	}
	if p.proc.SecurityLevel() == mode.Secure {
		p.entries[i] = e
		return
	}
	if e.Flags.SecureTrusted() {
		warnDroppedSTWrite(i, p.proc.PC())
		return
	}
	e.Flags = e.Flags.withAck(false)
	p.entries[i] = e
}

func warnDroppedSTWrite(entry int, pc uint64) {
	debug.Warnf("pmp: S-Normal write to ST entry %d dropped at pc=%#x", entry, pc)
}

// SetMStatus writes mtstatus, preserving the prior (read-only) mode bit.
func (p *PMP) SetMStatus(v MStatus) {
	prior := p.mtstatus & modeBit
	p.mtstatus = (v &^ modeBit) | prior
}

// GetMStatus returns mtstatus with the mode bit overlaid with the live
// security level, per the readable-view contract in the external interface.
func (p *PMP) GetMStatus() MStatus {
	return p.mtstatus.withMode(p.proc.SecurityLevel())
}

// IsActive reports mtstatus.en.
func (p *PMP) IsActive() bool { return p.mtstatus.Enabled() }

// IsUTRunnable reports ue && !ui.
func (p *PMP) IsUTRunnable() bool {
	return p.mtstatus.UTEligible() && !p.mtstatus.UTInterrupted()
}

// NotifyInterrupt is called once per interrupt arrival by the trap
// dispatcher. If the cache is active, the processor is currently in
// U-Secure, and the U-Trusted thread is runnable, it sets ui.
func (p *PMP) NotifyInterrupt() {
	if !p.IsActive() {
		return
	}
	if p.proc.Privilege() != mode.PrivU || p.proc.SecurityLevel() != mode.Secure {
		return
	}
	if p.IsUTRunnable() {
		p.mtstatus |= uiBit
	}
}

// UpdateTTCB stores ptr without interpretation.
func (p *PMP) UpdateTTCB(ptr uint64) { p.ttcb = ptr }

// TTCB returns the stored TTCB pointer.
func (p *PMP) TTCB() uint64 { return p.ttcb }

// NackAll clears every entry's ACK bit.
func (p *PMP) NackAll() {
	for i := range p.entries {
		p.entries[i].Flags = p.entries[i].Flags.withAck(false)
	}
}

// Check is the permission decision for a single access. M-mode is not
// expected to call Check; callers must bypass the PMP (and the tag engine)
// entirely for Machine-mode accesses, per the external interface contract.
// Any privilege other than S or U is permitted here as a fallback.
func (p *PMP) Check(addr, length uint64, at mode.AccessType, priv mode.Privilege, stype mode.SecurityLevel) bool {
	switch priv {
	case mode.PrivS:
		return p.checkSupervisor(addr, length, at, stype)
	case mode.PrivU:
		return p.checkUser(addr, length, at, stype)
	default:
		return true
	}
}

func (p *PMP) checkSupervisor(addr, length uint64, at mode.AccessType, stype mode.SecurityLevel) bool {
	if at != mode.Fetch {
		return true
	}
	if stype == mode.Normal {
		return true
	}
	for _, e := range p.entries {
		if e.covers(addr, length) && e.Flags.CanAccess(mode.Fetch) && e.Flags.SecureTrusted() {
			return true
		}
	}
	return false
}

func (p *PMP) checkUser(addr, length uint64, at mode.AccessType, stype mode.SecurityLevel) bool {
	for _, e := range p.entries {
		if !e.covers(addr, length) {
			continue
		}
		if !e.Flags.CanAccess(at) {
			continue
		}
		if e.Flags.SecureTrusted() {
			continue
		}
		if stype == mode.Secure && at == mode.Fetch && !(e.Flags.Trusted() && e.Flags.Acked()) {
			continue
		}
		return true
	}
	return false
}
