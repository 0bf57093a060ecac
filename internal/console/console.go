/*
 * ia32os - Operator debug console
 *
 * Copyright 2026, The ia32os Authors
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

// Package console implements the operator debug console: a liner-backed
// line editor over an abbreviation-matched command table inspecting
// this kernel's process table, terminal set, and paging state.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/threeninetyone/ia32os/kernel"
)

type cmd struct {
	name    string
	min     int
	process func(args string, k *kernel.State) (bool, error)
}

var cmdList = []cmd{
	{name: "ps", min: 1, process: cmdPS},
	{name: "term", min: 1, process: cmdTerm},
	{name: "mem", min: 1, process: cmdMem},
	{name: "quit", min: 1, process: cmdQuit},
}

// matchCommand reports whether command matches name at least to min
// characters, the same prefix-abbreviation rule a device-command table
// would apply (e.g. "te" uniquely matching "term").
func matchCommand(c cmd, command string) bool {
	if len(command) > len(c.name) || len(command) < c.min {
		return false
	}
	return c.name[:len(command)] == command
}

func matchList(command string) []cmd {
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, command) {
			out = append(out, c)
		}
	}
	return out
}

// ErrCommandNotFound is returned by ProcessCommand when no console verb
// matches the typed line. Run treats this one error specially: the line
// is not a console command at all, so it is handed to the simulated
// keyboard instead of being reported as a typo.
var ErrCommandNotFound = errors.New("command not found")

// ProcessCommand executes one console command line against k. quit is
// true once the "quit" command has been issued.
func ProcessCommand(line string, k *kernel.State) (quit bool, err error) {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return false, nil
	}
	match := matchList(name)
	if len(match) == 0 {
		return false, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(strings.TrimSpace(args), k)
}

// CompleteCmd returns every command name matching the partial word being
// typed, wired to liner's SetCompleter exactly as the teacher's
// reader.ConsoleReader wires parser.CompleteCmd.
func CompleteCmd(line string) []string {
	name, _, hasArgs := strings.Cut(line, " ")
	if hasArgs {
		return nil
	}
	var out []string
	for _, c := range matchList(name) {
		out = append(out, c.name)
	}
	return out
}

func cmdPS(_ string, k *kernel.State) (bool, error) {
	for _, p := range k.Snapshot() {
		fmt.Printf("pid=%d parent=%d terminal=%d args=%q\n", p.Pid, p.ParentPid, p.Terminal, p.Args)
	}
	return false, nil
}

func cmdTerm(args string, k *kernel.State) (bool, error) {
	if args == "" {
		fmt.Printf("foreground terminal: %d\n", k.ForegroundTerminal())
		return false, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil {
		return false, fmt.Errorf("term: %w", err)
	}
	if rc := k.SwitchTerminal(n); rc != 0 {
		return false, fmt.Errorf("term: switch to %d failed", n)
	}
	return false, nil
}

func cmdMem(args string, k *kernel.State) (bool, error) {
	if args == "" {
		fmt.Printf("flush count: %d\n", k.Pages.FlushCount())
		return false, nil
	}
	pid, err := strconv.Atoi(args)
	if err != nil {
		return false, fmt.Errorf("mem: %w", err)
	}
	entry := k.Pages.UserPageEntry()
	fmt.Printf("directory[32]: present=%v phys=%#x (requested pid %d)\n", entry.Present, entry.Phys, pid)
	return false, nil
}

func cmdQuit(string, *kernel.State) (bool, error) {
	return true, nil
}

// Run starts the interactive console loop, reading lines from stdin
// with history and Tab-completion until "quit" or Ctrl-D. It mirrors
// command/reader.ConsoleReader's shape exactly, retargeted to
// ProcessCommand above.
//
// This process has exactly one real (not simulated) input stream, and
// it serves double duty: a line recognized as a console verb (ps/term/
// mem/quit) is handled here, and anything else is handed unmodified to
// the simulated keyboard, standing in for the operator typing at the
// emulated machine's own console rather than this debug shell.
func Run(k *kernel.State) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string { return CompleteCmd(l) })

	for {
		command, err := line.Prompt("")
		if err == nil {
			line.AppendHistory(command)
			quit, cerr := ProcessCommand(command, k)
			switch {
			case errors.Is(cerr, ErrCommandNotFound):
				k.Keyboard.Type(command + "\n")
			case cerr != nil:
				fmt.Println("Error: " + cerr.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("console: error reading line", "error", err)
		return
	}
}
