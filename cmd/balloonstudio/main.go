/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command balloonstudio drives the page annotation workflow from a terminal:
// balloon detection, conversion, text recognition, cleaning, panel detection
// and export, with the page document kept next to its image.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"balloonstudio/internal/config"
	"balloonstudio/internal/crash"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "BalloonStudio")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  balloonstudio version                          Show version")
	fmt.Fprintln(w, "  balloonstudio config show|path                 Print the effective configuration")
	fmt.Fprintln(w, "  balloonstudio config set-token <token>         Store the service token in the keychain")
	fmt.Fprintln(w, "  balloonstudio config clear-token               Remove the stored service token")
	fmt.Fprintln(w, "  balloonstudio show <image>                     Summarize the page document")
	fmt.Fprintln(w, "  balloonstudio detect <image>                   Detect balloon masks")
	fmt.Fprintln(w, "  balloonstudio convert <image>                  Confirm masks and convert them to balloons")
	fmt.Fprintln(w, "  balloonstudio ocr <image>                      Recognize balloon text")
	fmt.Fprintln(w, "  balloonstudio clean <image>                    Erase lettering from the page image")
	fmt.Fprintln(w, "  balloonstudio panels <image>                   Detect panels")
	fmt.Fprintln(w, "  balloonstudio auto <image>                     Run every step in order")
	fmt.Fprintln(w, "  balloonstudio export [flags] <image>           Write SVG/PDF/CBZ artifacts")
	fmt.Fprintln(w, "  balloonstudio history <image> [limit]          List saved snapshots")
	fmt.Fprintln(w, "  balloonstudio restore <image> <snapshot-id>    Restore a snapshot")
	fmt.Fprintln(w, "  balloonstudio search <dir> <query>             Search recognized text")
	fmt.Fprintln(w, "  balloonstudio push <image>                     Upload the page to Postgres")
	fmt.Fprintln(w, "  balloonstudio pull <page-id> <image>           Fetch a page from Postgres")
	fmt.Fprintln(w, "  balloonstudio pages                            List pages stored in Postgres")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	_ = applog.Close()
	os.Exit(code)
}

// run dispatches one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, token, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Output:    stderr,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	var sess *session
	defer crash.Recover(func() (string, error) { return sess.autosave() })

	if len(args) == 0 {
		usage(stdout)
		return 2
	}
	c := &cli{cfg: cfg, token: token, out: stdout, log: l, current: &sess}
	cmd, rest := args[0], args[1:]
	var runErr error
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "config":
		runErr = c.config(rest)
	case "show":
		runErr = c.withPage(ctx, rest, c.show)
	case "detect", "convert", "ocr", "clean", "panels", "auto":
		runErr = c.withPage(ctx, rest, func(ctx context.Context, s *session, _ []string) error {
			return c.step(ctx, s, cmd)
		})
	case "export":
		runErr = c.export(ctx, rest)
	case "history":
		runErr = c.withPage(ctx, rest, c.history)
	case "restore":
		runErr = c.withPage(ctx, rest, c.restore)
	case "search":
		runErr = c.search(ctx, rest)
	case "push":
		runErr = c.withPage(ctx, rest, c.push)
	case "pull":
		runErr = c.pull(ctx, rest)
	case "pages":
		runErr = c.pages(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	if runErr != nil {
		l.Error("command failed", slog.String("cmd", cmd), slog.Any("err", runErr))
		fmt.Fprintln(stderr, "Error:", runErr)
		if isUsage(runErr) {
			return 2
		}
		return 1
	}
	return 0
}
