// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/issue"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
	"github.com/fnlbuild/fnlbuild/internal/tui"
)

type (
	// fakeFetcher writes fixed build descriptions instead of running the
	// version control tools.
	fakeFetcher struct {
		files map[string]string
	}

	// fakeBuilder records targets and announces one binary per target.
	fakeBuilder struct {
		out     string
		fail    string
		targets []string
	}
)

func (f *fakeFetcher) Fetch(_ context.Context, dir string) ([]string, error) {
	var names []string
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (b *fakeBuilder) Build(_ context.Context, target string, _ []string, onLine func(string)) error {
	b.targets = append(b.targets, target)
	if target == b.fail {
		onLine("error: " + target)
		return &toolchain.BuildError{Target: target, ExitCode: 2}
	}
	if err := os.WriteFile(filepath.Join(b.out, target), nil, 0o755); err != nil {
		return err
	}
	onLine(fmt.Sprintf("BUILDING %s ... %s", target, b.out))
	return nil
}

var testDescriptions = map[string]string{
	"core.fnl": "HANDLE\ncore\n**\nmain.c\n",
	"net.fnl":  "HANDLE\nnet\n**\nsock.c\n",
	"app.fnl":  "HANDLE\napp\n**\ncore\nnet\n",
}

// newTestApp returns an App with fake tools, working in a fresh directory
// holding main.c and sock.c.
func newTestApp(t *testing.T) (*App, *fakeBuilder, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{"main.c", "sock.c"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("int x;\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}

	builder := &fakeBuilder{out: out}
	var stdout bytes.Buffer
	app := NewApp(Dependencies{
		NewFetcher: func(*config.Config, []string, *log.Logger) Fetcher {
			return &fakeFetcher{files: testDescriptions}
		},
		NewBuilder: func(*config.Config, string, bool, *log.Logger) Builder {
			return builder
		},
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	})
	return app, builder, &stdout
}

func runArgs(app *App, args ...string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestBuild_OrderAndLinks(t *testing.T) {
	app, builder, stdout := newTestApp(t)

	if err := runArgs(app, "build", "main.c", "sock.c"); err != nil {
		t.Fatal(err)
	}
	order := builder.targets
	if len(order) != 3 || order[2] != "app" {
		t.Fatalf("targets = %v, want app last", order)
	}
	if !strings.Contains(stdout.String(), "Built 3 handles, linked 3 binaries") {
		t.Errorf("stdout = %q", stdout.String())
	}
	for _, p := range []string{
		"build_results/app",
		"build_results/support_binaries/core",
		"build_results/support_binaries/net",
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected link %s: %v", p, err)
		}
	}
	log, err := os.ReadFile(filepath.Join("build_results", RunLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "BUILDING net") {
		t.Errorf("run log missing build output:\n%s", log)
	}
}

func TestBuild_Failure(t *testing.T) {
	app, builder, _ := newTestApp(t)
	builder.fail = "app"

	err := runArgs(app, "build", "main.c")
	if !errors.Is(err, toolchain.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitBuildFailed {
		t.Errorf("exit error = %#v", err)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.BuildFailedId {
		t.Errorf("service error = %#v", err)
	}
}

func TestBuild_Only(t *testing.T) {
	app, builder, _ := newTestApp(t)

	if err := runArgs(app, "build", "--only", "net", "main.c", "sock.c"); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(builder.targets, []string{"net"}) {
		t.Errorf("targets = %v", builder.targets)
	}
}

func TestBuild_List(t *testing.T) {
	app, builder, stdout := newTestApp(t)

	if err := runArgs(app, "build", "-l", "main.c"); err != nil {
		t.Fatal(err)
	}
	if len(builder.targets) != 0 {
		t.Errorf("--list built %v", builder.targets)
	}
	if !strings.Contains(stdout.String(), "Build order:") {
		t.Errorf("stdout = %q", stdout.String())
	}
	if _, err := os.Stat("build_results"); !os.IsNotExist(err) {
		t.Errorf("--list created the results directory: %v", err)
	}
}

func TestSelectHandles(t *testing.T) {
	app, _, _ := newTestApp(t)
	cfg := config.DefaultConfig()
	s, err := app.newSession(context.Background(), cfg, resolveOptions{}, []string{"main.c", "sock.c"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := app.selectHandles(cfg, s, buildOptions{only: []string{"app", "core"}})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"core", "app"}) {
		t.Errorf("--only keeps build order: got %v", got)
	}

	_, err = app.selectHandles(cfg, s, buildOptions{only: []string{"cor"}})
	var ae *issue.ActionableError
	if !errors.Is(err, errUnknownHandle) || !errors.As(err, &ae) {
		t.Fatalf("expected unknown handle error, got %v", err)
	}
	if len(ae.Suggestions) != 1 || !strings.Contains(ae.Suggestions[0], "core") {
		t.Errorf("suggestions = %v", ae.Suggestions)
	}

	var offered []string
	app.Pick = func(_ string, choices []tui.Choice, _ tui.Config) ([]string, error) {
		for _, c := range choices {
			offered = append(offered, c.Value)
		}
		return []string{"net"}, nil
	}
	got, err = app.selectHandles(cfg, s, buildOptions{pick: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(offered) != 3 || !slices.Equal(got, []string{"net"}) {
		t.Errorf("offered %v, picked %v", offered, got)
	}

	app.Pick = func(string, []tui.Choice, tui.Config) ([]string, error) { return nil, tui.ErrAborted }
	if _, err := app.selectHandles(cfg, s, buildOptions{pick: true}); !errors.Is(err, tui.ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
}

func TestResolve_Session(t *testing.T) {
	app, _, stdout := newTestApp(t)

	if err := runArgs(app, "resolve", "-s=false", "main.c", "sock.c"); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	if !strings.Contains(out, "Resolved: 2 sources, 3 handles in 1 branches, 0 dropped") {
		t.Errorf("summary missing:\n%s", out)
	}
	if strings.Contains(out, "sock.c") {
		t.Errorf("sources shown with --show-source=false:\n%s", out)
	}
}

func TestResolve_NoSources(t *testing.T) {
	app, _, _ := newTestApp(t)
	empty := t.TempDir()

	err := runArgs(app, "resolve", empty)
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.IssueID != issue.NoSourcesId {
		t.Errorf("expected no-sources service error, got %#v", err)
	}
}
