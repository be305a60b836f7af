package subset

import (
	"errors"
	"sync"

	"github.com/mohammed-shakir/griddap-subset/internal/core/dap"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

// Session binds a resolver to one AxisSet snapshot and remembers the most
// recently requested geometry so that later queries can change only the
// variable list. Whichever call set the geometry last wins: a bracketed
// expression, SetSubset or SetSubsetI all replace it.
type Session struct {
	resolver *Resolver

	mu        sync.RWMutex
	axes      *model.AxisSet
	subset    model.Subset
	variables []string
}

func NewSession(axes *model.AxisSet, r *Resolver) (*Session, error) {
	if axes == nil {
		return nil, errors.New("session: nil axis set")
	}
	if r == nil {
		r = New(nil)
	}
	return &Session{resolver: r, axes: axes}, nil
}

func (s *Session) Axes() *model.AxisSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.axes
}

// Reload swaps in a new snapshot. The remembered geometry was resolved
// against the old coordinates and is dropped.
func (s *Session) Reload(axes *model.AxisSet) error {
	if axes == nil {
		return errors.New("session: nil axis set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.axes = axes
	s.subset = model.Subset{}
	return nil
}

// Clear forgets the remembered geometry and variables.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subset = model.Subset{}
	s.variables = nil
}

// Subset returns the remembered geometry.
func (s *Session) Subset() (model.Subset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subset, !s.subset.IsZero()
}

// SetResultVariables resolves exprs, remembers them as the default variable
// list for Query and, if any carried brackets, remembers the last geometry.
func (s *Session) SetResultVariables(exprs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.resolver.Resolve(s.axes, exprs...)
	if err != nil {
		return err
	}
	vars := make([]string, len(res.Variables))
	for i, v := range res.Variables {
		vars[i] = v.Variable
	}
	s.variables = vars
	if last, ok := res.Last(); ok {
		s.subset = last
	}
	return nil
}

// SetSubset remembers a geometry given in coordinate values.
func (s *Session) SetSubset(slices ...ValueSlice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.resolver.ResolveValues(s.axes, slices...)
	if err != nil {
		return err
	}
	s.subset = sub
	return nil
}

// SetSubsetI remembers a geometry given in positions.
func (s *Session) SetSubsetI(slices ...IndexSlice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := ResolveIndices(s.axes, slices...)
	if err != nil {
		return err
	}
	s.subset = sub
	return nil
}

// Query renders wire queries for exprs, or for the remembered variable list
// when exprs is empty. Bracketed expressions are resolved fresh and replace
// the remembered geometry; bare names use the remembered geometry.
func (s *Session) Query(exprs ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(exprs) == 0 {
		exprs = s.variables
	}
	if len(exprs) == 0 {
		return nil, errors.New("session: no variables requested")
	}
	res, err := s.resolver.Resolve(s.axes, exprs...)
	if err != nil {
		return nil, err
	}
	if last, ok := res.Last(); ok {
		s.subset = last
	}
	out := make([]string, 0, len(res.Variables))
	for _, v := range res.Variables {
		sub := v.Subset
		if sub.IsZero() {
			sub = s.subset
		}
		q, err := dap.Serialize(v.Variable, s.axes, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
