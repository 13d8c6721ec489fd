/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"balloonstudio/internal/backend"
	"balloonstudio/internal/config"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/export"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/storage"
	"balloonstudio/internal/workflow"
)

type usageError string

func (e usageError) Error() string { return string(e) }

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

type cli struct {
	cfg     config.AppConfig
	token   string
	out     io.Writer
	log     *slog.Logger
	current **session
}

type pageCmd func(ctx context.Context, s *session, args []string) error

// withPage opens the page named by args[0] and runs fn against it.
func (c *cli) withPage(ctx context.Context, args []string, fn pageCmd) error {
	if len(args) < 1 {
		return usageError("missing <image>")
	}
	s, err := openSession(ctx, c.cfg, c.token, args[0])
	if err != nil {
		return err
	}
	*c.current = s
	if s.recovered {
		fmt.Fprintln(c.out, "Note: the page document was damaged and has been restored from its latest backup.")
	}
	return fn(applog.ContextWithPage(ctx, s.ed.PageID()), s, args[1:])
}

func (c *cli) config(args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		data, err := yaml.Marshal(c.cfg)
		if err != nil {
			return err
		}
		_, _ = c.out.Write(data)
		tok := "not set"
		if c.token != "" {
			tok = "set"
		}
		fmt.Fprintf(c.out, "# service token: %s\n", tok)
		for _, key := range []string{"service.base_url", "storage.pg_dsn", "logging.level"} {
			if env, ok := config.EnvOverrideFor(key); ok {
				fmt.Fprintf(c.out, "# %s overridden by %s\n", key, env)
			}
		}
		return nil
	case "path":
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, p)
		return nil
	case "set-token":
		if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
			return usageError("set-token requires <token>")
		}
		if err := config.Save(c.cfg, strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token stored.")
		return nil
	case "clear-token":
		if err := config.ClearToken(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Token removed.")
		return nil
	}
	return usageError(fmt.Sprintf("unknown config command %q", sub))
}

func (c *cli) show(_ context.Context, s *session, _ []string) error {
	page := s.ed.Page()
	var masks, balloons, texts int
	for _, b := range page.Balloons {
		switch b.Kind {
		case domain.KindMask:
			masks++
		case domain.KindBalloon:
			balloons++
			if strings.TrimSpace(b.Text) != "" {
				texts++
			}
		}
	}
	fmt.Fprintf(c.out, "Page:     %s\n", page.ID)
	fmt.Fprintf(c.out, "Image:    %s (%dx%d)\n", page.ImageRef, page.Width, page.Height)
	if page.CleanImageRef != "" {
		fmt.Fprintf(c.out, "Clean:    %s\n", page.CleanImageRef)
	}
	fmt.Fprintf(c.out, "State:    %s\n", s.eng.State())
	fmt.Fprintf(c.out, "Masks:    %d\n", masks)
	fmt.Fprintf(c.out, "Balloons: %d (%d with text)\n", balloons, texts)
	fmt.Fprintf(c.out, "Panels:   %d\n", len(page.Panels))
	for _, b := range page.Balloons {
		if b.Kind != domain.KindBalloon || b.Text == "" {
			continue
		}
		fmt.Fprintf(c.out, "  %-24s %q\n", b.ID, b.Text)
	}
	return nil
}

// step runs one workflow operation (or all of them for "auto") and saves the
// page when it changed.
func (c *cli) step(ctx context.Context, s *session, name string) error {
	steps := []string{name}
	if name == "auto" {
		steps = []string{"detect", "convert", "ocr", "clean", "panels"}
	}
	for _, st := range steps {
		label, err := c.runStep(ctx, s, st)
		if err != nil {
			if name == "auto" && errors.Is(err, domain.ErrEmptyDetectionResult) && st == "panels" {
				fmt.Fprintln(c.out, "No panels found.")
				break
			}
			return err
		}
		if label != "" && s.ed.Dirty() {
			if err := s.save(ctx, label); err != nil {
				return fmt.Errorf("save after %s: %w", st, err)
			}
		}
	}
	return nil
}

func (c *cli) runStep(ctx context.Context, s *session, st string) (string, error) {
	switch st {
	case "detect":
		n, err := s.eng.RunMaskDetection(ctx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(c.out, "Detected %d masks.\n", n)
		return workflow.LabelDetectMasks, nil
	case "convert":
		n, err := s.eng.ConvertMasksToBalloons()
		if err != nil {
			return "", err
		}
		if err := s.eng.ConfirmMasks(); err != nil {
			return "", err
		}
		fmt.Fprintf(c.out, "Converted %d masks.\n", n)
		return workflow.LabelConvertMasks, nil
	case "ocr":
		n, err := s.eng.RunTextRecognition(ctx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(c.out, "Recognized text in %d balloons.\n", n)
		return workflow.LabelRecognizeText, nil
	case "clean":
		ref, err := s.eng.RunInpainting(ctx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(c.out, "Clean image: %s\n", ref)
		return "Clean Image", nil
	case "panels":
		n, err := s.eng.RunPanelDetection(ctx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(c.out, "Detected %d panels.\n", n)
		return workflow.LabelDetectPanels, nil
	}
	return "", usageError(fmt.Sprintf("unknown step %q", st))
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.out)
	preset := fs.String("preset", c.cfg.Export.Preset, "export preset: web or print")
	formats := fs.String("formats", "", "comma separated formats (svg,pdf,cbz); overrides the preset")
	outDir := fs.String("out", "", "output directory (default: <image dir>/export)")
	quality := fs.Int("quality", c.cfg.Export.JPEGQuality, "JPEG quality for panel crops")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	fl, err := export.ParseFormats(*formats)
	if err != nil {
		return usageError(err.Error())
	}
	return c.withPage(ctx, fs.Args(), func(ctx context.Context, s *session, _ []string) error {
		dir := *outDir
		if dir == "" {
			dir = filepath.Join(s.dir(), "export")
		}
		res, err := export.ExportPage(ctx, s.loader, s.ed.Page(), export.BatchOptions{
			Preset:  export.PresetName(*preset),
			Formats: fl,
			OutDir:  dir,
			Quality: *quality,
		})
		if err != nil {
			return err
		}
		for _, f := range res.Files {
			fmt.Fprintln(c.out, f)
		}
		fmt.Fprintf(c.out, "%d files, %d panels.\n", len(res.Files), res.Panels)
		return nil
	})
}

func (c *cli) history(ctx context.Context, s *session, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usageError("limit must be a positive number")
		}
		limit = n
	}
	ix, err := storage.OpenIndex(ctx, s.dir())
	if err != nil {
		return err
	}
	defer ix.Close()
	snaps, err := ix.ListSnapshots(ctx, s.ed.PageID(), limit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(c.out, "No snapshots.")
		return nil
	}
	for _, sn := range snaps {
		fmt.Fprintf(c.out, "%6d  %s  %-16s %d shapes, %d panels\n",
			sn.ID, sn.TS.Local().Format("2006-01-02 15:04:05"), sn.Label, len(sn.Page.Balloons), len(sn.Page.Panels))
	}
	return nil
}

func (c *cli) restore(ctx context.Context, s *session, args []string) error {
	if len(args) < 1 {
		return usageError("restore requires <snapshot-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError("snapshot id must be a number")
	}
	ix, err := storage.OpenIndex(ctx, s.dir())
	if err != nil {
		return err
	}
	snaps, err := ix.ListSnapshots(ctx, s.ed.PageID(), storage.DefaultSnapshotLimit)
	ix.Close()
	if err != nil {
		return err
	}
	for _, sn := range snaps {
		if sn.ID != id {
			continue
		}
		if err := s.ed.SetBalloons("Restore Snapshot", sn.Page.Balloons); err != nil {
			return err
		}
		if err := s.ed.SetPanels("Restore Snapshot", sn.Page.Panels); err != nil {
			return err
		}
		s.ed.SetCleanImage(sn.Page.CleanImageRef)
		if err := s.save(ctx, fmt.Sprintf("Restore #%d", id)); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Restored snapshot %d (%s).\n", id, sn.Label)
		return nil
	}
	return fmt.Errorf("snapshot %d: %w", id, domain.ErrNotFound)
}

func (c *cli) search(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("search requires <dir> and <query>")
	}
	ix, err := storage.OpenIndex(ctx, args[0])
	if err != nil {
		return err
	}
	defer ix.Close()
	hits, err := ix.SearchText(ctx, strings.Join(args[1:], " "), 50)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(c.out, "No matches.")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(c.out, "%s  %s  %s\n", h.PageID, h.BalloonID, h.Snippet)
	}
	return nil
}

func (c *cli) openStore(ctx context.Context) (*backend.PGStore, error) {
	if c.cfg.Storage.PGDSN == "" {
		return nil, usageError("no Postgres DSN configured (storage.pg_dsn or " + config.EnvPGDSN + ")")
	}
	st, err := backend.OpenPG(ctx, c.cfg.Storage.PGDSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// push uploads the page on top of whatever version the server holds.
func (c *cli) push(ctx context.Context, s *session, _ []string) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	page := s.ed.Page()
	var expect int64
	if _, v, err := st.LoadPage(ctx, page.ID); err == nil {
		expect = v
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	v, err := st.SavePage(ctx, page, expect)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Pushed %s as version %d.\n", page.ID, v)
	return nil
}

func (c *cli) pull(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("pull requires <page-id> and <image>")
	}
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	page, v, err := st.LoadPage(ctx, args[0])
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	page.ImageRef = abs
	if err := storage.SaveDocument(abs, page); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Pulled %s version %d into %s.\n", page.ID, v, storage.SidecarPath(abs))
	return nil
}

func (c *cli) pages(ctx context.Context) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	list, err := st.ListPages(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Fprintf(c.out, "%-36s v%-4d %4dx%-5d %3d shapes  %s\n",
			p.ID, p.Version, p.Width, p.Height, p.Balloons, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
