/*
 * rvtz - Shared privilege/security enumerations
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

// Package mode holds the privilege/security vocabulary shared by the PMP
// cache, the tag engine, and the processor shell, so neither subsystem has
// to import the other to agree on what "U-Secure" means.
package mode

// Privilege is the RISC-V horizontal axis. Values match the RISC-V
// convention (M=3, S=1, U=0); only relative ordering is load-bearing here.
type Privilege uint8

const (
	PrivU Privilege = 0
	PrivS Privilege = 1
	PrivM Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case PrivM:
		return "M"
	case PrivS:
		return "S"
	case PrivU:
		return "U"
	default:
		return "?"
	}
}

// SecurityLevel is the vertical axis added by the trusted-execution extension.
type SecurityLevel uint8

const (
	Normal SecurityLevel = 0
	Secure SecurityLevel = 1
)

func (s SecurityLevel) String() string {
	if s == Secure {
		return "Secure"
	}
	return "Normal"
}

// AccessType selects a bit in a 3-bit RWX permission mask: perm[bit=AccessType].
type AccessType uint8

const (
	Load AccessType = iota
	Store
	Fetch
)

func (a AccessType) String() string {
	switch a {
	case Load:
		return "load"
	case Store:
		return "store"
	case Fetch:
		return "fetch"
	default:
		return "?"
	}
}

// Bit returns the single bit this access type selects in a permission mask.
func (a AccessType) Bit() uint8 {
	return 1 << uint8(a)
}

// Tag is the 2-bit (canonical) security label carried by an aligned word.
type Tag uint8

const (
	TagNormal Tag = iota
	TagCallable
	TagUTrusted
	TagSTrusted
)

func (t Tag) String() string {
	switch t {
	case TagNormal:
		return "Normal"
	case TagCallable:
		return "Callable"
	case TagUTrusted:
		return "UTrusted"
	case TagSTrusted:
		return "STrusted"
	default:
		return "?"
	}
}

// Index computes the composite access-matrix mode: UN=0, SN=1, UT=2, ST=3.
func Index(priv Privilege, sec SecurityLevel) int {
	s := 0
	if priv == PrivS {
		s = 1
	}
	return s | (int(sec) << 1)
}
