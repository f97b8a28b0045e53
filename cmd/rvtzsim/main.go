/*
 * rvtz - Main process.
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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/rcornwell/rvtz/command/console"
	"github.com/rcornwell/rvtz/config"
	"github.com/rcornwell/rvtz/emu/core"
	"github.com/rcornwell/rvtz/util/debug"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Boot-time PMP/tag configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optXLen := getopt.IntLong("xlen", 'x', 64, "Address width in bits (32 or 64)")
	optTagWidth := getopt.IntLong("tagwidth", 'w', 2, "Tag width in bits (1-64)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var out *os.File
	if *optLogFile != "" {
		var err error
		out, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rvtzsim:", err)
			os.Exit(1)
		}
		defer out.Close()
	}
	logger := slog.New(debug.NewHandler(out, debug.LevelInfo))
	debug.SetLogger(logger)
	slog.SetDefault(logger)

	debug.Infof("rvtzsim started xlen=%d tagwidth=%d", *optXLen, *optTagWidth)

	p, err := core.New(*optXLen, uint(*optTagWidth))
	if err != nil {
		debug.Critf("can't construct processor: %s", err)
		os.Exit(1)
	}

	if *optConfig != "" {
		directives, err := config.LoadFile(*optConfig)
		if err != nil {
			debug.Critf("loading %s: %s", *optConfig, err)
			os.Exit(1)
		}
		if err := config.Apply(p, directives); err != nil {
			debug.Critf("applying %s: %s", *optConfig, err)
			os.Exit(1)
		}
		debug.Infof("applied boot-time configuration from %s", *optConfig)
	}

	runConsole(p)

	debug.Infof("rvtzsim exiting")
}

func runConsole(p *core.Processor) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return console.CompleteCmd(l)
	})

	for {
		input, err := line.Prompt("rvtz> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cmdErr := console.ProcessCommand(input, p)
			if cmdErr != nil {
				fmt.Println("Error:", cmdErr)
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		debug.Warnf("error reading line: %s", err)
		return
	}
}
