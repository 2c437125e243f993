package lookout

import (
	"context"
	"fmt"
)

// Source resolves a logical reference into live handles. Every call queries
// the driver again; nothing is cached between calls.
type Source interface {
	// ResolveOne returns the referenced element or an error wrapping
	// ErrNoSuchElement.
	ResolveOne(ctx context.Context) (Handle, error)
	// ResolveMany returns the referenced elements in document order. Zero
	// matches is not an error.
	ResolveMany(ctx context.Context) ([]Handle, error)
	String() string
}

// selectorSource is a top-level query against the session.
type selectorSource struct {
	session Session
	sel     Selector
	many    bool
}

func (s selectorSource) ResolveOne(ctx context.Context) (Handle, error) {
	return s.session.FindOne(ctx, s.sel)
}

func (s selectorSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	return s.session.FindAll(ctx, s.sel)
}

func (s selectorSource) String() string {
	if s.many {
		return fmt.Sprintf("$$(%q)", s.sel.String())
	}
	return fmt.Sprintf("$(%q)", s.sel.String())
}

// firstOf implements ResolveOne for views that only know how to list.
func firstOf(ctx context.Context, s Source) (Handle, error) {
	hs, err := s.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%s: %w", s, ErrNoSuchElement)
	}
	return hs[0], nil
}

// filterSource keeps the elements for which cond holds (or does not hold,
// when exclude is set).
type filterSource struct {
	parent  Source
	cond    Condition
	exclude bool
}

func (s filterSource) ResolveOne(ctx context.Context) (Handle, error) { return firstOf(ctx, s) }

func (s filterSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Handle, 0, len(hs))
	for _, h := range hs {
		ok, _, err := s.cond.Apply(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok != s.exclude {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s filterSource) String() string {
	if s.exclude {
		return fmt.Sprintf("%s.Exclude(%s)", s.parent, s.cond)
	}
	return fmt.Sprintf("%s.Filter(%s)", s.parent, s.cond)
}

// headSource keeps the first n elements.
type headSource struct {
	parent Source
	n      int
}

func (s headSource) ResolveOne(ctx context.Context) (Handle, error) { return firstOf(ctx, s) }

func (s headSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	if s.n < 1 {
		return nil, &ConfigurationError{Op: "head", Msg: fmt.Sprintf("count must be at least 1, got %d", s.n)}
	}
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	return hs[:min(s.n, len(hs))], nil
}

func (s headSource) String() string { return fmt.Sprintf("%s.Head(%d)", s.parent, s.n) }

// tailSource keeps the last n elements.
type tailSource struct {
	parent Source
	n      int
}

func (s tailSource) ResolveOne(ctx context.Context) (Handle, error) { return firstOf(ctx, s) }

func (s tailSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	if s.n < 1 {
		return nil, &ConfigurationError{Op: "tail", Msg: fmt.Sprintf("count must be at least 1, got %d", s.n)}
	}
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	return hs[len(hs)-min(s.n, len(hs)):], nil
}

func (s tailSource) String() string { return fmt.Sprintf("%s.Tail(%d)", s.parent, s.n) }

// indexSource is the element at position i of its parent.
type indexSource struct {
	parent Source
	i      int
}

func (s indexSource) ResolveOne(ctx context.Context) (Handle, error) {
	if s.i < 0 {
		return nil, &ConfigurationError{Op: "get", Msg: fmt.Sprintf("negative index %d", s.i)}
	}
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	if s.i >= len(hs) {
		return nil, fmt.Errorf("%s: index %d out of range (size %d): %w", s.parent, s.i, len(hs), ErrNoSuchElement)
	}
	return hs[s.i], nil
}

func (s indexSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	return single(s.ResolveOne(ctx))
}

func (s indexSource) String() string { return fmt.Sprintf("%s[%d]", s.parent, s.i) }

// lastSource is the final element of its parent.
type lastSource struct {
	parent Source
}

func (s lastSource) ResolveOne(ctx context.Context) (Handle, error) {
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("%s: %w", s, ErrNoSuchElement)
	}
	return hs[len(hs)-1], nil
}

func (s lastSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	return single(s.ResolveOne(ctx))
}

func (s lastSource) String() string { return fmt.Sprintf("%s.Last()", s.parent) }

// findSource is the first element of its parent for which cond holds.
type findSource struct {
	parent Source
	cond   Condition
}

func (s findSource) ResolveOne(ctx context.Context) (Handle, error) {
	hs, err := s.parent.ResolveMany(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		ok, _, err := s.cond.Apply(ctx, h)
		if err != nil {
			return nil, err
		}
		if ok {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", s, ErrNoSuchElement)
}

func (s findSource) ResolveMany(ctx context.Context) ([]Handle, error) {
	return single(s.ResolveOne(ctx))
}

func (s findSource) String() string { return fmt.Sprintf("%s.Find(%s)", s.parent, s.cond) }

// single adapts a single-element resolution to ResolveMany: absence is an
// empty list, every other error passes through.
func single(h Handle, err error) ([]Handle, error) {
	if err != nil {
		if isNotFound(err) {
			return []Handle{}, nil
		}
		return nil, err
	}
	return []Handle{h}, nil
}
