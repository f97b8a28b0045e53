package tagengine

/*
 * rvtz - Tag engine tests
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
	"errors"
	"testing"

	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/emu/trap"
)

type fakeProc struct {
	priv mode.Privilege
	sec  mode.SecurityLevel
	xlen int
}

func (f *fakeProc) Privilege() mode.Privilege             { return f.priv }
func (f *fakeProc) SecurityLevel() mode.SecurityLevel     { return f.sec }
func (f *fakeProc) SetSecurityLevel(s mode.SecurityLevel) { f.sec = s }
func (f *fakeProc) XLen() int                             { return f.xlen }

type fakePMP struct {
	active     bool
	utRunnable bool
}

func (f *fakePMP) IsActive() bool      { return f.active }
func (f *fakePMP) IsUTRunnable() bool  { return f.utRunnable }

func newTestEngine(t *testing.T, priv mode.Privilege, sec mode.SecurityLevel, xlen int) (*TagEngine, *fakeProc, *fakePMP) {
	t.Helper()
	proc := &fakeProc{priv: priv, sec: sec, xlen: xlen}
	pmpView := &fakePMP{active: true, utRunnable: true}
	eng, err := New(proc, pmpView, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, proc, pmpView
}

func TestNewRejectsWidthOutOfRange(t *testing.T) {
	proc := &fakeProc{xlen: 64}
	pmpView := &fakePMP{}
	if _, err := New(proc, pmpView, 0); err == nil {
		t.Errorf("expected error for width 0")
	}
	if _, err := New(proc, pmpView, 65); err == nil {
		t.Errorf("expected error for width 65")
	}
	if _, err := New(proc, pmpView, 64); err != nil {
		t.Errorf("width 64 should be valid: %v", err)
	}
}

func TestLoadUnmappedIsNormal(t *testing.T) {
	eng, _, _ := newTestEngine(t, mode.PrivU, mode.Normal, 64)
	if got := eng.LoadTag(0x1000); got != mode.TagNormal {
		t.Errorf("LoadTag(unmapped) = %v, want Normal", got)
	}
}

func TestStoreThenLoadRoundTrips(t *testing.T) {
	eng, proc, _ := newTestEngine(t, mode.PrivM, mode.Normal, 64)
	proc.priv = mode.PrivM // bypass write policy for setup
	if err := eng.StoreTag(0x2000, mode.TagSTrusted); err != nil {
		t.Fatalf("StoreTag: %v", err)
	}
	if got := eng.LoadTag(0x2000); got != mode.TagSTrusted {
		t.Errorf("LoadTag = %v, want STrusted", got)
	}
}

func TestStoreTagTruncatesToWidth(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivM, sec: mode.Normal, xlen: 64}
	pmpView := &fakePMP{active: false}
	eng, err := New(proc, pmpView, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := eng.StoreTag(0x10, mode.TagSTrusted); err != nil { // value 3, width 1 -> 3 % 2 = 1
		t.Fatalf("StoreTag: %v", err)
	}
	if got := eng.LoadTag(0x10); got != mode.TagCallable {
		t.Errorf("LoadTag = %v, want Callable (3 mod 2 = 1)", got)
	}
}

func TestAlignmentRV32TruncatesAddress(t *testing.T) {
	eng, proc, _ := newTestEngine(t, mode.PrivM, mode.Normal, 32)
	proc.priv = mode.PrivM
	wide := uint64(0x100000000) | 0x2000
	if err := eng.StoreTag(wide, mode.TagCallable); err != nil {
		t.Fatalf("StoreTag: %v", err)
	}
	if got := eng.LoadTag(0x2000); got != mode.TagCallable {
		t.Errorf("RV32 address truncation not applied: got %v", got)
	}
}

func TestStoreTagNormalModeRestriction(t *testing.T) {
	eng, _, _ := newTestEngine(t, mode.PrivS, mode.Normal, 64)
	if err := eng.StoreTag(0x100, mode.TagCallable); err == nil {
		t.Errorf("expected illegal-instruction error writing Callable from Normal mode")
	} else if !errors.Is(err, trap.ErrIllegalInstruction) {
		t.Errorf("expected IllegalInstruction, got %v", err)
	}
	if got := eng.LoadTag(0x100); got != mode.TagNormal {
		t.Errorf("map mutated despite rejected write: %v", got)
	}
	if err := eng.StoreTag(0x100, mode.TagNormal); err != nil {
		t.Errorf("Normal->Normal write should be allowed: %v", err)
	}
}

func TestStoreTagUModeRestriction(t *testing.T) {
	eng, _, _ := newTestEngine(t, mode.PrivU, mode.Secure, 64) // Secure so the Normal-mode check doesn't also apply
	if err := eng.StoreTag(0x200, mode.TagSTrusted); err == nil {
		t.Errorf("expected illegal-instruction error writing STrusted from U mode")
	} else if !errors.Is(err, trap.ErrIllegalInstruction) {
		t.Errorf("expected IllegalInstruction, got %v", err)
	}
	if err := eng.StoreTag(0x200, mode.TagUTrusted); err != nil {
		t.Errorf("Normal->UTrusted write should be allowed for U mode: %v", err)
	}
}

func TestStoreTagUNormalLayersBothChecks(t *testing.T) {
	eng, _, _ := newTestEngine(t, mode.PrivU, mode.Normal, 64)
	// U-Normal: Normal-mode check requires old=Normal,val=Normal; U check requires
	// old/val in {Normal,UTrusted}. Writing UTrusted fails the Normal-mode check
	// even though the U-mode check alone would allow it.
	if err := eng.StoreTag(0x300, mode.TagUTrusted); err == nil {
		t.Errorf("expected Normal-mode check to reject Normal->UTrusted in U-Normal")
	}
}

func TestStoreTagBypassedWhenPMPInactiveOrMMode(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivU, sec: mode.Normal, xlen: 64}
	pmpView := &fakePMP{active: false}
	eng, _ := New(proc, pmpView, 2)
	if err := eng.StoreTag(0x400, mode.TagSTrusted); err != nil {
		t.Errorf("expected no policy check while PMP inactive: %v", err)
	}

	pmpView.active = true
	proc.priv = mode.PrivM
	if err := eng.StoreTag(0x500, mode.TagSTrusted); err != nil {
		t.Errorf("expected M-mode to bypass write policy: %v", err)
	}
}

func TestTagCheckBypassesWhenInactiveOrMMode(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivM, sec: mode.Normal, xlen: 64}
	pmpView := &fakePMP{active: true}
	eng, _ := New(proc, pmpView, 2)
	if !eng.TagCheck(0x10, mode.Store) {
		t.Errorf("M-mode should bypass tag check")
	}

	proc.priv = mode.PrivU
	pmpView.active = false
	if !eng.TagCheck(0x10, mode.Store) {
		t.Errorf("inactive PMP should bypass tag check")
	}
}

func TestMatrixIsSourceOfTruth(t *testing.T) {
	cases := []struct {
		priv mode.Privilege
		sec  mode.SecurityLevel
		tag  mode.Tag
		at   mode.AccessType
		want bool
	}{
		{mode.PrivU, mode.Normal, mode.TagNormal, mode.Load, true},
		{mode.PrivU, mode.Normal, mode.TagCallable, mode.Load, false},
		{mode.PrivU, mode.Normal, mode.TagCallable, mode.Fetch, true},
		{mode.PrivS, mode.Normal, mode.TagUTrusted, mode.Load, false},
		{mode.PrivU, mode.Secure, mode.TagCallable, mode.Load, true},
		{mode.PrivU, mode.Secure, mode.TagCallable, mode.Store, false},
		{mode.PrivU, mode.Secure, mode.TagUTrusted, mode.Store, true},
		{mode.PrivU, mode.Secure, mode.TagSTrusted, mode.Load, false},
		{mode.PrivS, mode.Secure, mode.TagUTrusted, mode.Store, true},
		{mode.PrivS, mode.Secure, mode.TagUTrusted, mode.Fetch, false},
		{mode.PrivS, mode.Secure, mode.TagSTrusted, mode.Fetch, true},
	}
	for _, c := range cases {
		proc := &fakeProc{priv: c.priv, sec: c.sec, xlen: 64}
		pmpView := &fakePMP{active: true, utRunnable: true}
		eng, _ := New(proc, pmpView, 2)
		proc.priv = mode.PrivM
		_ = eng.StoreTag(0x1000, c.tag) // bypass policy to seed the tag directly
		proc.priv = c.priv

		got := eng.TagCheck(0x1000, c.at)
		if got != c.want {
			t.Errorf("priv=%v sec=%v tag=%v at=%v: got %v want %v", c.priv, c.sec, c.tag, c.at, got, c.want)
		}
	}
}

func TestTrustedModeSwitchNormalToSecureRequiresUTRunnableForU(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivU, sec: mode.Normal, xlen: 64}
	pmpView := &fakePMP{active: true, utRunnable: false}
	eng, _ := New(proc, pmpView, 2)
	proc.priv = mode.PrivM
	_ = eng.StoreTag(0x1000, mode.TagCallable)
	proc.priv = mode.PrivU

	if eng.TagCheck(0x1000, mode.Fetch) {
		t.Errorf("expected fetch to fail when U-Trusted thread is not runnable")
	}
	if proc.sec != mode.Normal {
		t.Errorf("security level changed despite failed gate")
	}

	pmpView.utRunnable = true
	if !eng.TagCheck(0x1000, mode.Fetch) {
		t.Errorf("expected fetch to succeed once U-Trusted thread is runnable")
	}
	if proc.sec != mode.Secure {
		t.Errorf("expected security level to become Secure")
	}
}

func TestTrustedModeSwitchSupervisorAlwaysSucceeds(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivS, sec: mode.Normal, xlen: 64}
	pmpView := &fakePMP{active: true, utRunnable: false}
	eng, _ := New(proc, pmpView, 2)
	proc.priv = mode.PrivM
	_ = eng.StoreTag(0x1000, mode.TagCallable)
	proc.priv = mode.PrivS

	if !eng.TagCheck(0x1000, mode.Fetch) {
		t.Errorf("S fetch into Callable should always succeed")
	}
	if proc.sec != mode.Secure {
		t.Errorf("expected security level to become Secure")
	}
}

func TestTrustedModeSwitchSecureToNormalUnconditional(t *testing.T) {
	proc := &fakeProc{priv: mode.PrivU, sec: mode.Secure, xlen: 64}
	pmpView := &fakePMP{active: true, utRunnable: false}
	eng, _ := New(proc, pmpView, 2)
	proc.priv = mode.PrivM
	_ = eng.StoreTag(0x4000, mode.TagNormal)
	proc.priv = mode.PrivU

	if !eng.TagCheck(0x4000, mode.Fetch) {
		t.Errorf("fetch from Normal-tagged word should succeed")
	}
	if proc.sec != mode.Normal {
		t.Errorf("expected security level to return to Normal")
	}
}
