package subset

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

func newSession(t *testing.T, axes *model.AxisSet) *Session {
	t.Helper()
	s, err := NewSession(axes, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestSession_BareVariablesReuseRememberedSubset(t *testing.T) {
	s := newSession(t, hycomAxes(t))
	if err := s.SetSubsetI(At("time", 1900), At("depth", 0), Slice("latitude", 0, 278, 3), Slice("longitude", 158, 414, 3)); err != nil {
		t.Fatalf("SetSubsetI: %v", err)
	}
	got, err := s.Query("water_u", "water_v")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := "[1900:1900][0:0][0:3:277][158:3:413]"
	if got[0] != "water_u"+want || got[1] != "water_v"+want {
		t.Fatalf("got %v", got)
	}
}

func TestSession_MostRecentIntentWins(t *testing.T) {
	s := newSession(t, currentsAxes(t))

	if err := s.SetSubsetI(At("depth", 0)); err != nil {
		t.Fatalf("SetSubsetI: %v", err)
	}
	// a bracketed query replaces the positional subset
	if _, err := s.Query("u[1][0][2][3]"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	got, err := s.Query("v")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0] != "v[1:1][0:0][2:2][3:3]" {
		t.Fatalf("got %s", got[0])
	}

	// and a value subset replaces the bracketed one
	if err := s.SetSubset(Near("time", "2009-06-16T00:00:00Z")); err != nil {
		t.Fatalf("SetSubset: %v", err)
	}
	got, err = s.Query("v")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0] != "v[200:200][0:0][0:599][0:1439]" {
		t.Fatalf("got %s", got[0])
	}
}

func TestSession_ResultVariablesAreTheDefault(t *testing.T) {
	s := newSession(t, currentsAxes(t))
	if err := s.SetResultVariables("u", "v[0][0][0][0]"); err != nil {
		t.Fatalf("SetResultVariables: %v", err)
	}
	got, err := s.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if strings.Join(got, ",") != "u[0:0][0:0][0:0][0:0],v[0:0][0:0][0:0][0:0]" {
		t.Fatalf("got %v", got)
	}
}

func TestSession_FailedCallKeepsState(t *testing.T) {
	s := newSession(t, currentsAxes(t))
	if err := s.SetSubsetI(At("time", 5)); err != nil {
		t.Fatalf("SetSubsetI: %v", err)
	}
	before, _ := s.Subset()
	if err := s.SetSubsetI(At("time", 500)); !errors.Is(err, model.ErrOutOfRange) {
		t.Fatalf("err=%v want out of range", err)
	}
	after, _ := s.Subset()
	if !before.Equal(after) {
		t.Fatalf("failed call changed the remembered subset")
	}
}

func TestSession_ReloadForgetsSubset(t *testing.T) {
	s := newSession(t, currentsAxes(t))
	if err := s.SetSubsetI(At("time", 5)); err != nil {
		t.Fatalf("SetSubsetI: %v", err)
	}
	next := hycomAxes(t)
	if err := s.Reload(next); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.Axes() != next {
		t.Fatalf("snapshot not swapped")
	}
	if _, ok := s.Subset(); ok {
		t.Fatalf("subset survived reload")
	}
	got, err := s.Query("water_u")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got[0] != "water_u" {
		t.Fatalf("got %s want bare name", got[0])
	}

	s.Clear()
	if _, err := s.Query(); err == nil {
		t.Fatalf("expected error without variables")
	}
}

func TestSession_ConcurrentQueries(t *testing.T) {
	s := newSession(t, currentsAxes(t))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.SetSubsetI(At("time", i))
				return
			}
			if _, err := s.Query("u"); err != nil {
				t.Errorf("Query: %v", err)
			}
		}()
	}
	wg.Wait()
}
