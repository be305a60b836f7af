package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const descriptor = `{"dimensions":[
 {"name":"time","values":["2009-06-14T00:00:00Z","2009-06-15T00:00:00Z","2009-06-16T00:00:00Z"]},
 {"name":"depth","values":[0,5,10,15,20]}
]}`

func writeAxes(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "currents.json")
	if err := os.WriteFile(p, []byte(descriptor), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestRun_PrintsOneQueryPerLine(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-axes", writeAxes(t), "u[(2009-06-15)][(5):last]", "v, w[0][0]"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}
	want := "u[1:1][1:4]\nv\nw[0:0][0:0]\n"
	if out.String() != want {
		t.Fatalf("stdout=%q want %q", out.String(), want)
	}
}

func TestRun_Join(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"-axes", writeAxes(t), "-join", "u[0][0]", "v[last][-1]"}, &out, &errOut); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut.String())
	}
	if got := strings.TrimSpace(out.String()); got != "u[0:0][0:0],v[2:2][4:4]" {
		t.Fatalf("stdout=%q", got)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	axes := writeAxes(t)
	cases := []struct {
		args []string
		code int
	}{
		{[]string{"-axes", axes, "u[(2010-01-01)][0]"}, 2},
		{[]string{"-axes", axes, "u[0]"}, 2},
		{[]string{"-axes", axes, "u[zero][0]"}, 2},
		{[]string{"u"}, 1},
		{[]string{"-axes", filepath.Join(t.TempDir(), "missing.json"), "u"}, 1},
	}
	for _, tc := range cases {
		var out, errOut bytes.Buffer
		if code := run(tc.args, &out, &errOut); code != tc.code {
			t.Fatalf("%v: exit=%d want %d (stderr=%s)", tc.args, code, tc.code, errOut.String())
		}
		if out.Len() != 0 {
			t.Fatalf("%v: unexpected stdout %q", tc.args, out.String())
		}
	}
}
