/*
 * rvtz - Illegal-instruction trap type
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

// Package trap carries the one exception-style error the core originates:
// an illegal-instruction condition raised by a disallowed tag write. The
// MMU/fetch unit is expected to translate this into whatever trap delivery
// mechanism the surrounding simulator uses; this package only describes it.
package trap

import "fmt"

// IllegalInstruction reports a policy violation detected by store_tag.
type IllegalInstruction struct {
	Op     string // operation that raised the trap, e.g. "store_tag"
	Reason string
}

func (e *IllegalInstruction) Error() string {
	return fmt.Sprintf("illegal instruction: %s: %s", e.Op, e.Reason)
}

// Is reports true for any *IllegalInstruction, regardless of Op/Reason, so
// callers can test with errors.Is(err, trap.ErrIllegalInstruction).
func (e *IllegalInstruction) Is(target error) bool {
	_, ok := target.(*IllegalInstruction)
	return ok
}

// ErrIllegalInstruction is the sentinel used with errors.Is.
var ErrIllegalInstruction = &IllegalInstruction{}

// New constructs an illegal-instruction error for the named operation.
func New(op, reason string) error {
	return &IllegalInstruction{Op: op, Reason: reason}
}
