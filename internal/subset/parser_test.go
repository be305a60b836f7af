package subset

import (
	"errors"
	"testing"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

func TestParse_ExtendedAndPlainParts(t *testing.T) {
	e, err := Parse("temp[(2009-06-16T00:00:00Z)][0:3:277][(last-73.5)]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Variable != "temp" {
		t.Fatalf("variable=%q want temp", e.Variable)
	}
	if len(e.Slices) != 3 {
		t.Fatalf("got %d slices want 3", len(e.Slices))
	}

	first := e.Slices[0]
	if first.Start.Raw != "2009-06-16T00:00:00Z" || !first.Start.Extended || first.Stop != nil {
		t.Fatalf("unexpected first slice: %+v", *first.Start)
	}
	if first.Start.Pos != 5 {
		t.Fatalf("pos=%d want 5", first.Start.Pos)
	}

	second := e.Slices[1]
	if second.Start.Raw != "0" || second.Stride.Raw != "3" || second.Stop.Raw != "277" {
		t.Fatalf("unexpected second slice: %q %q %q", second.Start.Raw, second.Stride.Raw, second.Stop.Raw)
	}
	if second.Start.Extended || second.Stop.Extended {
		t.Fatalf("plain parts tagged extended")
	}

	if got := e.Slices[2].Start.Raw; got != "last-73.5" {
		t.Fatalf("third slice=%q", got)
	}
}

func TestParse_ImplicitSeparatorBeforeParenthesis(t *testing.T) {
	e, err := Parse("u[(1999-04-16T00:00:00Z):1(2009-06-16T00:00:00Z)]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := e.Slices[0]
	if s.Stride == nil || s.Stride.Raw != "1" || s.Stop == nil || s.Stop.Raw != "2009-06-16T00:00:00Z" {
		t.Fatalf("unexpected token: %+v", s)
	}
}

func TestParse_NoBrackets(t *testing.T) {
	e, err := Parse("  salinity ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Variable != "salinity" || len(e.Slices) != 0 {
		t.Fatalf("got %+v", e)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"[0]",
		"9lives[0]",
		"u[1:2:3:4]",
		"u[]",
		"u[1:]",
		"u[:1]",
		"u[1",
		"u[1]x",
		"u[1.5]",
		"u[abc]",
		"u[(1)(2)]",
		"u[()]",
		"u[(1]",
		"u[1 2]",
		"u[[1]]",
	}
	for _, in := range cases {
		_, err := Parse(in)
		if !errors.Is(err, model.ErrMalformedExpression) {
			t.Fatalf("Parse(%q) err=%v want malformed", in, err)
		}
		var me *model.MalformedExpressionError
		if !errors.As(err, &me) || me.Expr != in {
			t.Fatalf("Parse(%q) payload=%+v", in, me)
		}
	}
}

func TestVariableName(t *testing.T) {
	if got := VariableName("  water_u[0][1]"); got != "water_u" {
		t.Fatalf("got %q", got)
	}
	if got := VariableName("[0]"); got != "" {
		t.Fatalf("got %q want empty", got)
	}
}

func TestSplit(t *testing.T) {
	got := Split("a, b[(1,2)][0:1] ,,c")
	want := []string{"a", "b[(1,2)][0:1]", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %q want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestEvaluateLast(t *testing.T) {
	cases := []struct {
		tok      string
		extended bool
		want     float64
	}{
		{"last", false, 599},
		{"last-10", false, 589},
		{"last+2", false, 601},
		{"last", true, 359.875},
		{"last-73.5", true, 286.375},
		{"last+0.5", true, 360.375},
	}
	for _, c := range cases {
		got, err := EvaluateLast(c.tok, 599, 359.875, c.extended)
		if err != nil {
			t.Fatalf("EvaluateLast(%q): %v", c.tok, err)
		}
		if got != c.want {
			t.Fatalf("EvaluateLast(%q)=%v want %v", c.tok, got, c.want)
		}
	}

	for _, bad := range []string{"last-1.5", "lastly", "last-", "last*2", "last-1e3", "first"} {
		if _, err := EvaluateLast(bad, 599, 0, false); !errors.Is(err, model.ErrMalformedExpression) {
			t.Fatalf("EvaluateLast(%q) err=%v want malformed", bad, err)
		}
	}
}
