package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"hgb/internal/cli"
	"hgb/internal/config"
	"hgb/internal/diag"
	"hgb/internal/driver"
	"hgb/internal/engine/asm"
	"hgb/internal/report"
)

func newTestRuntime(t *testing.T) (cli.Runtime, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	return cli.Runtime{FS: afero.NewMemMapFs(), Root: "/work", Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func writeObject(t *testing.T, rt cli.Runtime, name, src string) {
	t.Helper()
	if err := afero.WriteFile(rt.FS, "/work/"+name+".asm", []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	env := driver.Env{FS: rt.FS, Root: rt.Root, Reporter: report.New(report.StreamSink(&bytes.Buffer{}, &bytes.Buffer{}), diag.SevInfo)}
	out, err := driver.Assemble(context.Background(), env, config.AsmInput{Source: name + ".asm", Out: name + ".o"}, asm.New())
	if err != nil || out.Failed() {
		t.Fatalf("assemble %s: %v", name, err)
	}
}

func execute(rt cli.Runtime, args ...string) int {
	cmd := newRootCmd(rt)
	cmd.SetArgs(args)
	cmd.SetOut(rt.Stdout)
	cmd.SetErr(rt.Stderr)
	return cli.ExitCode(cmd.Execute(), rt.Stderr)
}

func TestLinkSuccess(t *testing.T) {
	rt, stdout, _ := newTestRuntime(t)
	writeObject(t, rt, "main", "SECTION \"Main\", ROM0[$100]\n\tnop\n\tjp Far\n")
	writeObject(t, rt, "far", "SECTION \"Far\", ROMX\nFar::\n\tret\n")

	if code := execute(rt, "-o", "game.gb", "-n", "game.sym", "-m", "game.map", "main.o", "far.o"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, name := range []string{"game.gb", "game.sym", "game.map"} {
		if ok, _ := afero.Exists(rt.FS, "/work/"+name); !ok {
			t.Fatalf("%s not written", name)
		}
	}
	if !strings.Contains(stdout.String(), "Linking finished with 0 errors and 0 warnings") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestNoObjectFiles(t *testing.T) {
	rt, _, stderr := newTestRuntime(t)
	if code := execute(rt); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if stderr.String() != "No object files specified, exiting\n" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestDMGRejectsWRAMX(t *testing.T) {
	rt, _, stderr := newTestRuntime(t)
	writeObject(t, rt, "ram", "SECTION \"Vars\", WRAMX\n\tds 4\n")
	if code := execute(rt, "-d", "-o", "game.gb", "ram.o"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if ok, _ := afero.Exists(rt.FS, "/work/game.gb"); ok {
		t.Fatalf("ROM written despite errors")
	}
	if !strings.Contains(stderr.String(), "Vars") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestMissingObjectFile(t *testing.T) {
	rt, _, stderr := newTestRuntime(t)
	if code := execute(rt, "-o", "game.gb", "nope.o"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "A fatal error occurred during linking.") {
		t.Fatalf("stderr = %q", stderr)
	}
}
