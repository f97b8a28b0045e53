/*
 * rvtz - Tag engine: per-word security tags and vertical mode switching
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

// Package tagengine implements the per-hart tag engine: a sparse,
// word-granular map from physical address to a security tag, the
// (mode x tag) access matrix that decides whether a fetch/load/store may
// proceed, and the vertical Normal<->Secure mode switch a qualifying fetch
// triggers.
package tagengine

import (
	"fmt"

	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/emu/trap"
)

const (
	bitLoad  = uint8(1) << 0
	bitStore = uint8(1) << 1
	bitFetch = uint8(1) << 2
	bitRWX   = bitLoad | bitStore | bitFetch
)

// matrix[mode][tag] is the RWX mask granted to that (privilege x security,
// tag) pair. mode is UN=0, SN=1, UT=2, ST=3 (see mode.Index); tag is
// mode.Tag (Normal=0, Callable=1, UTrusted=2, STrusted=3).
var matrix = [4][4]uint8{
	{bitRWX, bitFetch, 0, 0},
	{bitRWX, bitFetch, 0, 0},
	{bitRWX, bitLoad | bitFetch, bitRWX, 0},
	{bitRWX, bitRWX, bitLoad | bitStore, bitRWX},
}

// ProcessorView is the processor state the tag engine consults and, on a
// qualifying fetch, mutates (the security-level switch). Injected once at
// construction as a borrowed reference.
type ProcessorView interface {
	Privilege() mode.Privilege
	SecurityLevel() mode.SecurityLevel
	SetSecurityLevel(mode.SecurityLevel)
	XLen() int
}

// PMPView is the slice of PMP state the tag engine's vertical mode switch
// consults to decide whether a U-Trusted thread may enter Secure mode.
type PMPView interface {
	IsActive() bool
	IsUTRunnable() bool
}

// TagEngine is the per-hart tag store and access-matrix enforcer.
type TagEngine struct {
	proc  ProcessorView
	pmp   PMPView
	tags  map[uint64]mode.Tag
	width uint
}

// New builds a tag engine bound to proc and pmp, truncating stored tag
// values modulo 2^tagWidth. tagWidth must be in [1, 64]; this is a
// construction-time (build) error, not a runtime condition.
func New(proc ProcessorView, pmpView PMPView, tagWidth uint) (*TagEngine, error) {
	if tagWidth < 1 || tagWidth > 64 {
		return nil, fmt.Errorf("tagengine: tag width %d out of range [1,64]", tagWidth)
	}
	return &TagEngine{
		proc:  proc,
		pmp:   pmpView,
		tags:  make(map[uint64]mode.Tag),
		width: tagWidth,
	}, nil
}

// Reset clears the tag map.
func (t *TagEngine) Reset() {
	t.tags = make(map[uint64]mode.Tag)
}

// align returns the aligned word address for addr. RV32 (xlen==32)
// truncates addr to 32 bits before aligning, per the external interface.
func (t *TagEngine) align(addr uint64) uint64 {
	if t.proc.XLen() <= 32 {
		addr &= 0xffffffff
	}
	alignment := uint64(t.proc.XLen() / 8)
	return addr &^ (alignment - 1)
}

func truncate(v mode.Tag, width uint) mode.Tag {
	if width >= 64 {
		return v
	}
	return mode.Tag(uint64(v) % (uint64(1) << width))
}

// LoadTag returns the tag stored at addr's aligned word, or Normal if
// unmapped.
func (t *TagEngine) LoadTag(addr uint64) mode.Tag {
	a := t.align(addr)
	if v, ok := t.tags[a]; ok {
		return v
	}
	return mode.TagNormal
}

func tagIn(v mode.Tag, set ...mode.Tag) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// StoreTag stores val at addr's aligned word, after checking the
// mode-dependent write policy: when the PMP is active and the caller is
// not M-mode, a Normal-mode write may only touch a Normal word with the
// value Normal, and (layered on top, for U-Normal) a U-mode write may only
// move within {Normal, UTrusted}. A disallowed write raises an
// illegal-instruction trap and leaves the map unchanged.
func (t *TagEngine) StoreTag(addr uint64, val mode.Tag) error {
	a := t.align(addr)
	priv := t.proc.Privilege()
	sec := t.proc.SecurityLevel()

	if t.pmp.IsActive() && priv != mode.PrivM {
		old := t.LoadTag(a)
		if sec == mode.Normal {
			if !(old == mode.TagNormal && val == mode.TagNormal) {
				return trap.New("store_tag", "Normal-mode write must be Normal->Normal")
			}
		}
		if priv == mode.PrivU {
			if !(tagIn(old, mode.TagNormal, mode.TagUTrusted) && tagIn(val, mode.TagNormal, mode.TagUTrusted)) {
				return trap.New("store_tag", "U-mode write restricted to {Normal,UTrusted}")
			}
		}
	}

	t.tags[a] = truncate(val, t.width)
	return nil
}

// TagCheck is the access decision for a single non-M-mode access: it
// bypasses (returns true) when the PMP is inactive or the processor is in
// Machine mode, otherwise consults the access matrix and, for a successful
// fetch, performs the vertical mode switch.
func (t *TagEngine) TagCheck(addr uint64, at mode.AccessType) bool {
	priv := t.proc.Privilege()
	if !t.pmp.IsActive() || priv == mode.PrivM {
		return true
	}

	sec := t.proc.SecurityLevel()
	idx := mode.Index(priv, sec)
	tag := t.LoadTag(addr)

	if matrix[idx][tag]&at.Bit() == 0 {
		return false
	}
	if at == mode.Fetch {
		return t.trustedModeSwitch(sec, priv, tag)
	}
	return true
}

// trustedModeSwitch implements the vertical Normal<->Secure transition a
// successful fetch may trigger. It returns false only when a Normal->Secure
// transition is gated by a U-Trusted thread that is not currently
// runnable; every other combination either switches unconditionally or
// leaves the level unchanged, and reports success.
func (t *TagEngine) trustedModeSwitch(sec mode.SecurityLevel, priv mode.Privilege, tag mode.Tag) bool {
	switch {
	case sec == mode.Normal && tag == mode.TagCallable:
		if priv == mode.PrivU && !t.pmp.IsUTRunnable() {
			return false
		}
		t.proc.SetSecurityLevel(mode.Secure)
		return true
	case sec == mode.Secure && tag == mode.TagNormal:
		t.proc.SetSecurityLevel(mode.Normal)
		return true
	default:
		return true
	}
}
