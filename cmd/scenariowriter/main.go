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
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"scenariowriter/internal/config"
	"scenariowriter/internal/crash"
	"scenariowriter/internal/editor"
	applog "scenariowriter/internal/log"
	"scenariowriter/internal/outline"
	"scenariowriter/internal/scenario"
	"scenariowriter/internal/storage"
	"scenariowriter/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// keepSnapshots bounds the snapshot table after each snapshot command.
const keepSnapshots = 50

// current is the project the crash handler autosaves.
var current *storage.ProjectHandle

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "scenariowriter", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  scenariowriter version|-v|--version             Show version")
	_, _ = fmt.Fprintln(w, "  scenariowriter new <file> [width height]          Create an empty project file")
	_, _ = fmt.Fprintln(w, "  scenariowriter dump <file>                        Print the scenario tree")
	_, _ = fmt.Fprintln(w, "  scenariowriter check <file>                       Validate structure and label references")
	_, _ = fmt.Fprintln(w, "  scenariowriter add <file> <id|-> <kind>           Add a node next to or under <id>")
	_, _ = fmt.Fprintln(w, "  scenariowriter rm <file> <id>                     Remove a node and its subtree")
	_, _ = fmt.Fprintln(w, "  scenariowriter mv <file> <src> <dest> <zone>      Move <src>; zone is before|child|after")
	_, _ = fmt.Fprintln(w, "  scenariowriter index <file>                       Rebuild the search index")
	_, _ = fmt.Fprintln(w, "  scenariowriter search <file> <query>              Full-text search over nodes")
	_, _ = fmt.Fprintln(w, "  scenariowriter label <file> <name>                List definitions and references of a label")
	_, _ = fmt.Fprintln(w, "  scenariowriter snapshot <file>                    Store a snapshot in the project index")
}

func main() {
	defer crash.Recover(func() *storage.ProjectHandle { return current })
	if code := run(os.Args[1:], os.Stdout, os.Stderr); code != exitOK {
		os.Exit(code)
	}
}

// usageError is reported with the usage text and exit code 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Warning: config:", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(stdout)
		return exitUsage
	}
	c := &cli{cfg: cfg, out: stdout, log: l}
	err = c.dispatch(context.Background(), args[0], args[1:])
	var ue usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue):
		_, _ = fmt.Fprintln(stderr, ue.msg)
		usage(stderr)
		return exitUsage
	default:
		l.Error("command failed", slog.String("cmd", args[0]), applog.Err(err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}

type cli struct {
	cfg config.AppConfig
	out io.Writer
	log *slog.Logger
}

func need(args []string, n int, cmd, what string) error {
	if len(args) < n {
		return usageError{fmt.Sprintf("%s requires %s", cmd, what)}
	}
	return nil
}

func nodeID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, usageError{fmt.Sprintf("invalid node id %q", s)}
	}
	return id, nil
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(c.out, version.String())
		return nil
	case "new":
		if err := need(args, 1, cmd, "<file>"); err != nil {
			return err
		}
		return c.create(args)
	case "dump":
		if err := need(args, 1, cmd, "<file>"); err != nil {
			return err
		}
		ed, err := c.open(ctx, args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(c.out, scenario.Dump(ed.Tree().Root()))
		return nil
	case "check":
		if err := need(args, 1, cmd, "<file>"); err != nil {
			return err
		}
		return c.check(ctx, args[0])
	case "add":
		if err := need(args, 3, cmd, "<file> <id|-> <kind>"); err != nil {
			return err
		}
		return c.add(ctx, args)
	case "rm":
		if err := need(args, 2, cmd, "<file> <id>"); err != nil {
			return err
		}
		return c.remove(ctx, args)
	case "mv":
		if err := need(args, 4, cmd, "<file> <src> <dest> <zone>"); err != nil {
			return err
		}
		return c.move(ctx, args)
	case "index":
		if err := need(args, 1, cmd, "<file>"); err != nil {
			return err
		}
		return c.index(ctx, args[0])
	case "search":
		if err := need(args, 2, cmd, "<file> <query>"); err != nil {
			return err
		}
		return c.search(ctx, args[0], args[1])
	case "label":
		if err := need(args, 2, cmd, "<file> <name>"); err != nil {
			return err
		}
		return c.label(ctx, args[0], args[1])
	case "snapshot":
		if err := need(args, 1, cmd, "<file>"); err != nil {
			return err
		}
		return c.snapshot(ctx, args[0])
	}
	return usageError{fmt.Sprintf("unknown command %q", cmd)}
}

func (c *cli) editor() *editor.Editor {
	// nodes are addressed by ID, so every level has to be listed
	return editor.New(editor.Config{HistoryLimit: c.cfg.Editor.HistoryLimit, AutoExpand: true})
}

func (c *cli) open(ctx context.Context, path string) (*editor.Editor, error) {
	ed := c.editor()
	if err := ed.Open(path); err != nil {
		return nil, err
	}
	current = ed.Project()
	ctx = applog.WithProject(ctx, current.Path)
	c.log.InfoContext(ctx, "project opened", slog.Int("nodes", scenario.Len(ed.Tree().Root())))
	c.cfg.AddRecent(current.Path)
	if err := config.Save(c.cfg); err != nil {
		c.log.Warn("recent projects not saved", applog.Err(err))
	}
	return ed, nil
}

func (c *cli) create(args []string) error {
	params := storage.DefaultParams()
	params.TargetWidth, params.TargetHeight = c.cfg.Editor.TargetWidth, c.cfg.Editor.TargetHeight
	params.ExportDir, params.BgImgEnabled = c.cfg.Editor.ExportDir, c.cfg.Editor.BgImgEnabled
	if len(args) >= 3 {
		w, werr := strconv.Atoi(args[1])
		h, herr := strconv.Atoi(args[2])
		if werr != nil || herr != nil || w < 0 || h < 0 {
			return usageError{"width and height must be non-negative integers"}
		}
		params.TargetWidth, params.TargetHeight = w, h
	}
	ed := c.editor()
	if err := ed.Create(args[0], params); err != nil {
		return err
	}
	current = ed.Project()
	_, _ = fmt.Fprintln(c.out, "Created project at", current.Path)
	return nil
}

func (c *cli) check(ctx context.Context, path string) error {
	ed, err := c.open(ctx, path)
	if err != nil {
		return err
	}
	root := ed.Tree().Root()
	if err := scenario.Validate(root); err != nil {
		return err
	}
	var dangling []*scenario.Node
	scenario.Walk(root, func(n *scenario.Node) bool {
		if n.Label().IsRef() && scenario.SearchDefLabel(n) == nil {
			dangling = append(dangling, n)
		}
		return true
	})
	_, _ = fmt.Fprintf(c.out, "Nodes: %d\n", scenario.Len(root))
	_, _ = fmt.Fprintf(c.out, "Label definitions: %d\n", len(scenario.LabelDefs(root)))
	for _, n := range dangling {
		_, _ = fmt.Fprintf(c.out, "Unresolved label %q at %v\n", n.Label().Name, n)
	}
	if len(dangling) > 0 {
		return fmt.Errorf("%d unresolved label reference(s)", len(dangling))
	}
	_, _ = fmt.Fprintln(c.out, "OK")
	return nil
}

func (c *cli) add(ctx context.Context, args []string) error {
	k, err := scenario.ParseKind(args[2])
	if err != nil {
		return usageError{err.Error()}
	}
	ed, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	var sel *outline.Entry
	if args[1] != "-" {
		id, err := nodeID(args[1])
		if err != nil {
			return err
		}
		if sel, err = ed.Entry(id); err != nil {
			return err
		}
	}
	e, err := ed.AddNode(sel, k)
	if err != nil {
		return err
	}
	if err := ed.Save(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "Added", e.Node())
	return nil
}

func (c *cli) remove(ctx context.Context, args []string) error {
	id, err := nodeID(args[1])
	if err != nil {
		return err
	}
	ed, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	sel, err := ed.Entry(id)
	if err != nil {
		return err
	}
	desc := sel.Node().String()
	if err := ed.Remove(sel); err != nil {
		return err
	}
	if err := ed.Save(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, "Removed", desc)
	return nil
}

func (c *cli) move(ctx context.Context, args []string) error {
	target, zone, err := editor.ParseZone(args[3])
	if err != nil {
		return usageError{err.Error()}
	}
	srcID, err := nodeID(args[1])
	if err != nil {
		return err
	}
	destID, err := nodeID(args[2])
	if err != nil {
		return err
	}
	ed, err := c.open(ctx, args[0])
	if err != nil {
		return err
	}
	src, err := ed.Entry(srcID)
	if err != nil {
		return err
	}
	dest, err := ed.Entry(destID)
	if err != nil {
		return err
	}
	op, err := ed.Drop(src, dest, target, zone)
	if err != nil {
		return err
	}
	if err := ed.Save(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Moved %v (%s)\n", src.Node(), op)
	return nil
}

func (c *cli) index(ctx context.Context, path string) error {
	ed, err := c.open(ctx, path)
	if err != nil {
		return err
	}
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, ed.Project().Root, ed.Tree().Root())
	if err != nil {
		return err
	}
	if !rebuilt {
		if err := ed.Reindex(ctx); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(c.out, "Indexed %d node(s) into %s\n", scenario.Len(ed.Tree().Root()), storage.IndexPath(ed.Project().Root))
	return nil
}

// fresh opens the project and brings its index up to date.
func (c *cli) fresh(ctx context.Context, path string) (*editor.Editor, error) {
	ed, err := c.open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ed.Reindex(ctx); err != nil {
		return nil, err
	}
	return ed, nil
}

func (c *cli) search(ctx context.Context, path, query string) error {
	ed, err := c.fresh(ctx, path)
	if err != nil {
		return err
	}
	res, err := storage.Search(ctx, ed.Project().Root, storage.SearchQuery{Text: query})
	if err != nil {
		return err
	}
	for _, r := range res {
		_, _ = fmt.Fprintf(c.out, "%s#%d\t%s\n", r.Kind, r.NodeID, r.Snippet)
	}
	_, _ = fmt.Fprintf(c.out, "%d match(es)\n", len(res))
	return nil
}

func (c *cli) label(ctx context.Context, path, name string) error {
	ed, err := c.fresh(ctx, path)
	if err != nil {
		return err
	}
	uses, err := storage.FindLabelDefs(ctx, ed.Project().Root, name)
	if err != nil {
		return err
	}
	if len(uses) == 0 {
		return fmt.Errorf("label %q not found", name)
	}
	for _, u := range uses {
		_, _ = fmt.Fprintf(c.out, "%s\t%s#%d\tdepth %d\n", u.Type, u.Kind, u.NodeID, u.Depth)
	}
	return nil
}

func (c *cli) snapshot(ctx context.Context, path string) error {
	ed, err := c.open(ctx, path)
	if err != nil {
		return err
	}
	id, err := ed.Snapshot(ctx)
	if err != nil {
		return err
	}
	pruned, err := storage.PruneSnapshots(ctx, ed.Project(), keepSnapshots)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Snapshot %d stored (%d pruned)\n", id, pruned)
	return nil
}
