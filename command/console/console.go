/*
 * rvtz - Interactive console command dispatch
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

// Package console implements the small command language the interactive
// debug REPL accepts: inspecting and poking a Processor's privilege,
// security level, PMP table, and tag map by hand, one line at a time.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/rvtz/emu/core"
	"github.com/rcornwell/rvtz/emu/mode"
	"github.com/rcornwell/rvtz/emu/pmp"
)

var commands = []string{
	"status", "priv", "sec", "entry", "tag", "access", "reset", "help", "quit", "exit",
}

// CompleteCmd returns every known command beginning with the given prefix,
// for the console's line-editor tab completion.
func CompleteCmd(line string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// ProcessCommand parses and executes one line of console input against p.
// It returns quit=true when the session should end.
func ProcessCommand(line string, p *core.Processor) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		printHelp()
		return false, nil
	case "status":
		printStatus(p)
		return false, nil
	case "priv":
		return false, cmdPriv(p, fields[1:])
	case "sec":
		return false, cmdSec(p, fields[1:])
	case "entry":
		return false, cmdEntry(p, fields[1:])
	case "tag":
		return false, cmdTag(p, fields[1:])
	case "access":
		return false, cmdAccess(p, fields[1:])
	case "reset":
		p.Reset()
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
}

func printHelp() {
	fmt.Println("commands: status | priv <m|s|u> | sec <normal|secure> | " +
		"entry <i> base=.. bound=.. perm=rwx [t] [ack] [st] | tag <addr> <name> | " +
		"access <addr> <len> <r|w|x> | reset | quit")
}

func printStatus(p *core.Processor) {
	fmt.Printf("priv=%v sec=%v pc=%#x xlen=%d\n", p.Privilege(), p.SecurityLevel(), p.PC(), p.XLen())
	fmt.Printf("mtstatus: en=%v ue=%v ui=%v ttcb=%#x\n",
		p.PMP.GetMStatus().Enabled(), p.PMP.GetMStatus().UTEligible(), p.PMP.GetMStatus().UTInterrupted(), p.PMP.TTCB())
	for i := 0; i < pmp.NumEntries; i++ {
		e := p.PMP.GetEntry(i)
		fmt.Printf("  [%d] base=%#x bound=%#x perm=%03b t=%v ack=%v st=%v\n",
			i, e.Base, e.Bound, e.Flags.Perm(), e.Flags.Trusted(), e.Flags.Acked(), e.Flags.SecureTrusted())
	}
}

func cmdPriv(p *core.Processor, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: priv <m|s|u>")
	}
	switch strings.ToLower(args[0]) {
	case "m":
		p.SetPrivilege(mode.PrivM)
	case "s":
		p.SetPrivilege(mode.PrivS)
	case "u":
		p.SetPrivilege(mode.PrivU)
	default:
		return fmt.Errorf("unknown privilege %q", args[0])
	}
	return nil
}

func cmdSec(p *core.Processor, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sec <normal|secure>")
	}
	switch strings.ToLower(args[0]) {
	case "normal":
		p.SetSecurityLevel(mode.Normal)
	case "secure":
		p.SetSecurityLevel(mode.Secure)
	default:
		return fmt.Errorf("unknown security level %q", args[0])
	}
	return nil
}

func cmdEntry(p *core.Processor, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: entry <i> [base=..] [bound=..] [perm=rwx] [t] [ack] [st]")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= pmp.NumEntries {
		return fmt.Errorf("bad entry index %q", args[0])
	}
	e := p.PMP.GetEntry(idx)
	trusted, acked, st := e.Flags.Trusted(), e.Flags.Acked(), e.Flags.SecureTrusted()
	perm := e.Flags.Perm()
	for _, field := range args[1:] {
		switch {
		case strings.HasPrefix(field, "base="):
			v, err := strconv.ParseUint(strings.TrimPrefix(field, "base="), 0, 64)
			if err != nil {
				return fmt.Errorf("bad base %q: %w", field, err)
			}
			e.Base = v
		case strings.HasPrefix(field, "bound="):
			v, err := strconv.ParseUint(strings.TrimPrefix(field, "bound="), 0, 64)
			if err != nil {
				return fmt.Errorf("bad bound %q: %w", field, err)
			}
			e.Bound = v
		case strings.HasPrefix(field, "perm="):
			perm = 0
			for _, c := range strings.TrimPrefix(field, "perm=") {
				switch c {
				case 'r':
					perm |= mode.Load.Bit()
				case 'w':
					perm |= mode.Store.Bit()
				case 'x':
					perm |= mode.Fetch.Bit()
				default:
					return fmt.Errorf("bad perm letter %q", c)
				}
			}
		case field == "t":
			trusted = true
		case field == "ack":
			acked = true
		case field == "st":
			st = true
		default:
			return fmt.Errorf("unknown entry field %q", field)
		}
	}
	e.Flags = pmp.NewFlags(perm, trusted, acked, st)
	p.PMP.SetEntry(idx, e)
	return nil
}

var tagNames = map[string]mode.Tag{
	"normal":   mode.TagNormal,
	"callable": mode.TagCallable,
	"utrusted": mode.TagUTrusted,
	"strusted": mode.TagSTrusted,
}

func cmdTag(p *core.Processor, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tag <addr> <normal|callable|utrusted|strusted>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", args[0], err)
	}
	tag, ok := tagNames[strings.ToLower(args[1])]
	if !ok {
		return fmt.Errorf("unknown tag name %q", args[1])
	}
	return p.Tags.StoreTag(addr, tag)
}

func cmdAccess(p *core.Processor, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: access <addr> <len> <r|w|x>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", args[0], err)
	}
	length, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("bad length %q: %w", args[1], err)
	}
	var at mode.AccessType
	switch strings.ToLower(args[2]) {
	case "r":
		at = mode.Load
	case "w":
		at = mode.Store
	case "x":
		at = mode.Fetch
	default:
		return fmt.Errorf("unknown access type %q", args[2])
	}
	fmt.Printf("access(%#x, %d, %v) = %v\n", addr, length, at, p.Access(addr, length, at))
	return nil
}
