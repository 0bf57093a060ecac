/*
 * ia32os - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/threeninetyone/ia32os/internal/console"
	"github.com/threeninetyone/ia32os/internal/fsimage"
	"github.com/threeninetyone/ia32os/internal/kconfig"
	"github.com/threeninetyone/ia32os/internal/klog"
	"github.com/threeninetyone/ia32os/kernel"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optFSImage := getopt.StringLong("fsimage", 'f', "", "Filesystem image (overrides config file)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(klog.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}))
	slog.SetDefault(Logger)

	Logger.Info("ia32os started")

	cfg := kconfig.Default()
	if *optConfig != "" {
		var err error
		cfg, err = kconfig.Load(*optConfig)
		if err != nil {
			Logger.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	if *optFSImage != "" {
		cfg.FSImagePath = *optFSImage
	}
	if cfg.FSImagePath == "" {
		Logger.Error("no filesystem image specified (use --fsimage or a config file's fsimage key)")
		os.Exit(1)
	}

	img, err := fsimage.LoadFile(cfg.FSImagePath)
	if err != nil {
		Logger.Error("loading filesystem image", "path", cfg.FSImagePath, "error", err)
		os.Exit(1)
	}

	k := kernel.New(img)
	k.Boot()
	go k.RunClock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// console.Run is the one real stdin reader in this process: it
	// recognizes debug-console verbs and forwards every other line to
	// the simulated keyboard (see console.Run's doc comment).
	consoleDone := make(chan struct{})
	go func() {
		console.Run(k)
		close(consoleDone)
	}()

	select {
	case <-sigChan:
		fmt.Println("Got quit signal")
	case <-consoleDone:
	}

	Logger.Info("shutting down")
	k.Stop()
}
