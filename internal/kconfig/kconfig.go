/*
 * ia32os - Kernel configuration file parser
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

// Package kconfig parses the kernel's line-oriented config file: one
// key-value pair per line, '#' starts a comment to end of line, blank
// lines ignored. This is a deliberately small format: no device-model
// grammar, hex addresses, or comma-separated option lists, just the
// handful of keys the kernel façade needs at boot.
package kconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config holds the handful of settings the kernel façade needs at boot.
type Config struct {
	FSImagePath string
	Terminals   int
	DefaultHz   uint32
	LogPath     string
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		FSImagePath: "",
		Terminals:   3,
		DefaultHz:   2,
		LogPath:     "",
	}
}

// Load reads key/value pairs from path, starting from Default() so an
// omitted key keeps its default value.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads key/value pairs from r, one per line:
//
//	fsimage = /path/to/image
//	terminals = 3
//	rtc_hz = 2
//	log = /path/to/log
//
// Unknown keys are rejected so a typo in the config file is caught at
// boot rather than silently ignored.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, fmt.Errorf("kconfig: line %d: missing '='", lineNumber)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "fsimage":
			cfg.FSImagePath = value
		case "terminals":
			cfg.Terminals, err = strconv.Atoi(value)
		case "rtc_hz":
			var hz uint64
			hz, err = strconv.ParseUint(value, 10, 32)
			cfg.DefaultHz = uint32(hz)
		case "log":
			cfg.LogPath = value
		default:
			return Config{}, fmt.Errorf("kconfig: line %d: unknown key %q", lineNumber, key)
		}
		if err != nil {
			return Config{}, fmt.Errorf("kconfig: line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
