// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fnlbuild/fnlbuild/internal/catalog"
	"github.com/fnlbuild/fnlbuild/internal/config"
	"github.com/fnlbuild/fnlbuild/internal/sources"
	"github.com/fnlbuild/fnlbuild/internal/toolchain"
)

const (
	// corpusLeaves is the number of leaf descriptions in the synthetic
	// corpus; each owns corpusSources source files.
	corpusLeaves  = 40
	corpusSources = 25
	// corpusGroups leaves are listed by each mid-level description.
	corpusGroups = 8
)

// writeCorpus writes a three-level corpus: leaves own sources, mids list
// leaves, and one top lists every mid. It returns the candidate directory
// and the source identifiers.
func writeCorpus(b *testing.B) (string, []string) {
	b.Helper()
	dir := b.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			b.Fatal(err)
		}
	}

	var ids, mids []string
	for l := range corpusLeaves {
		var body strings.Builder
		fmt.Fprintf(&body, "HANDLE\nleaf%d\n**\n", l)
		for s := range corpusSources {
			id := fmt.Sprintf("src_%d_%d.c", l, s)
			ids = append(ids, id)
			fmt.Fprintln(&body, id)
		}
		write(fmt.Sprintf("leaf%d.fnl", l), body.String())
	}
	for m := 0; m*corpusGroups < corpusLeaves; m++ {
		var body strings.Builder
		fmt.Fprintf(&body, "HANDLE\nmid%d\n**\n", m)
		for l := m * corpusGroups; l < min((m+1)*corpusGroups, corpusLeaves); l++ {
			fmt.Fprintf(&body, "leaf%d\n", l)
		}
		mids = append(mids, fmt.Sprintf("mid%d", m))
		write(fmt.Sprintf("mid%d.fnl", m), body.String())
	}
	write("top.fnl", "HANDLE\ntop\n**\n"+strings.Join(mids, "\n")+"\n")
	return dir, ids
}

func benchmarkResolve(b *testing.B, s catalog.Searcher) {
	dir, ids := writeCorpus(b)
	r := catalog.NewResolver(s)

	b.ResetTimer()
	for b.Loop() {
		res, err := r.Resolve(context.Background(), ids, dir)
		if err != nil {
			b.Fatalf("Resolve failed: %v", err)
		}
		if len(res.Files) != corpusLeaves+corpusLeaves/corpusGroups+1 {
			b.Fatalf("resolved %d handles", len(res.Files))
		}
	}
}

// BenchmarkResolveScan measures resolution with the in-process searcher.
func BenchmarkResolveScan(b *testing.B) {
	benchmarkResolve(b, catalog.NewScanSearcher())
}

// BenchmarkResolveGrep measures resolution with the external grep.
func BenchmarkResolveGrep(b *testing.B) {
	if _, err := exec.LookPath(catalog.DefaultGrepPath); err != nil {
		b.Skip("grep not available")
	}
	benchmarkResolve(b, catalog.NewGrepSearcher(""))
}

// BenchmarkResultRender measures tree rendering and build order.
func BenchmarkResultRender(b *testing.B) {
	dir, ids := writeCorpus(b)
	res, err := catalog.NewResolver(catalog.NewScanSearcher()).Resolve(context.Background(), ids, dir)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for b.Loop() {
		for _, br := range res.Branches {
			if _, err := res.RenderBranch(br); err != nil {
				b.Fatal(err)
			}
		}
		_ = res.BuildOrder()
	}
}

// BenchmarkCollect measures walking a source tree with exclusions.
func BenchmarkCollect(b *testing.B) {
	root := b.TempDir()
	for d := range 20 {
		for _, sub := range []string{"", "GEN_TGT", "SPARC_SOL"} {
			dir := filepath.Join(root, fmt.Sprintf("pkg%d", d), sub)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.Fatal(err)
			}
			for f := range 30 {
				p := filepath.Join(dir, fmt.Sprintf("f%d.c", f))
				if err := os.WriteFile(p, nil, 0o644); err != nil {
					b.Fatal(err)
				}
			}
		}
	}
	opts := sources.Options{
		ExcludeDirs:  config.DefaultConfig().ExcludeDirs,
		ExcludeFiles: config.DefaultConfig().ExcludeFiles,
	}

	b.ResetTimer()
	for b.Loop() {
		c, err := sources.Collect([]string{root}, opts)
		if err != nil {
			b.Fatalf("Collect failed: %v", err)
		}
		if len(c.Sources) != 600 {
			b.Fatalf("collected %d sources", len(c.Sources))
		}
	}
}

// BenchmarkFollow measures include following over a chain of headers.
func BenchmarkFollow(b *testing.B) {
	idx := make(sources.IncludeIndex)
	for i := range 200 {
		inc := fmt.Sprintf("h%d.h", i)
		idx[inc] = []string{fmt.Sprintf("h%d.h", i+1), fmt.Sprintf("u%d.c", i)}
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := sources.Follow(context.Background(), []string{"h0.h"}, idx); err != nil {
			b.Fatalf("Follow failed: %v", err)
		}
	}
}

// BenchmarkConfigLoad measures loading and validating a config file.
func BenchmarkConfigLoad(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "config.cue")
	if err := os.WriteFile(path, []byte(config.GenerateCUE(config.DefaultConfig())), 0o644); err != nil {
		b.Fatal(err)
	}
	p := config.NewProvider()

	b.ResetTimer()
	for b.Loop() {
		if _, err := p.Load(context.Background(), config.LoadOptions{ConfigFilePath: path, WorkDir: dir}); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// BenchmarkEnvironmentPrepare measures the setup script interpreter.
func BenchmarkEnvironmentPrepare(b *testing.B) {
	e := &toolchain.Environment{
		Base:        []string{"PATH=/usr/bin:/bin", "HOME=/home/dev"},
		Vars:        map[string]string{"CSC": "core"},
		SetupScript: "LEVEL=3\nCSCI=\"$CSC-ci\"\nfor d in a b c; do pdir=\"$pdir/$d\"; done\n",
		Capture:     toolchain.DefaultCapture,
		Dir:         b.TempDir(),
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := e.Prepare(context.Background()); err != nil {
			b.Fatalf("Prepare failed: %v", err)
		}
	}
}

// BenchmarkOutputScanner measures scanning build output for binaries.
func BenchmarkOutputScanner(b *testing.B) {
	lines := make([]string, 0, 1000)
	for i := range 1000 {
		if i%50 == 0 {
			lines = append(lines, fmt.Sprintf("BUILDING bin%d.x ... /work/out/%d", i, i))
			continue
		}
		lines = append(lines, fmt.Sprintf("cc -c -O2 -o obj/f%d.o src/f%d.c", i, i))
	}

	b.ResetTimer()
	for b.Loop() {
		s := toolchain.NewOutputScanner()
		s.Start("core")
		for _, l := range lines {
			s.Scan(l)
		}
		if len(s.Binaries()) != 20 {
			b.Fatalf("found %d binaries", len(s.Binaries()))
		}
	}
}
