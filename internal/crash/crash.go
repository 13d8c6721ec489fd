/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a report file and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "balloonstudio/internal/log"
	"balloonstudio/internal/version"
)

// ExitCode is used when a panic was recovered.
const ExitCode = 2

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where crash reports go.
var reportDir = os.TempDir

// Autosave persists whatever unsaved work exists and returns where it went.
type Autosave func() (string, error)

// Recover captures a panic, logs it with the stack, writes a crash report and
// runs save (if any) before exiting with ExitCode.
//
// Usage: defer crash.Recover(save)
func Recover(save Autosave) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(r, stack)
	if err != nil {
		l.Error("write crash report", slog.Any("err", err))
	}
	if save != nil {
		if path, err := save(); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("crash autosave written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	_ = applog.Close()
	exitFn(ExitCode)
}

func writeReport(panicVal any, stack []byte) (string, error) {
	now := time.Now()
	path := filepath.Join(reportDir(), fmt.Sprintf("balloonstudio-crash-%s.log", now.Format("20060102-150405.000")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "BalloonStudio Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return path, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return path, err
	}
	return path, f.Close()
}
