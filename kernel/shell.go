/*
 * ia32os - Builtin shell program
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

package kernel

import (
	"fmt"

	"github.com/threeninetyone/ia32os/internal/process"
)

const shellPrompt = "391OS> "

// shellProgram is the process.ProgramFunc every terminal's root process
// runs: a read-eval loop over fd 0/1 that treats "exit" as halt(0) and
// anything else as a command line to execute, printing the child's
// status the way a teaching shell would. Every terminal's root shell
// restarts itself through Halt's recursive Execute, so this function
// itself only ever runs once per "session" of a root slot.
func shellProgram(p *process.Proc) {
	buf := make([]byte, 128)
	for {
		p.Write(1, []byte(shellPrompt))

		n := p.Read(0, buf)
		if n < 0 {
			p.Halt(1)
			return
		}
		line := string(buf[:n])
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}

		if line == "exit" {
			p.Halt(0)
			return
		}
		if line == "" {
			continue
		}

		status := p.Execute(line)
		p.Write(1, []byte(fmt.Sprintf("[%d]\n", status)))
	}
}
