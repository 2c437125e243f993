package lookout

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

func optionWithValue(value string) Selector {
	return XPath(".//option[@value = " + xpathLiteral(value) + "]")
}

func optionContaining(text string) Selector {
	return XPath(".//option[contains(normalize-space(.), " + xpathLiteral(text) + ")]")
}

// xpathLiteral quotes s for use in an XPath 1.0 expression, which has no
// escape sequences.
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// selectOptions clicks the options of the <select> h that match sel. what
// completes the not-found message.
func selectOptions(ctx context.Context, h Handle, sel Selector, what string) error {
	tag, err := h.TagName(ctx)
	if err != nil {
		return err
	}
	if tag != "select" {
		return &ConfigurationError{Op: "select option", Msg: fmt.Sprintf("element is <%s>, not <select>", tag)}
	}
	scope, ok := h.(Scope)
	if !ok {
		return fmt.Errorf("lookout: %T cannot search for options: %w", h, errors.ErrUnsupported)
	}
	opts, err := scope.FindAll(ctx, sel)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("lookout: cannot locate option %s: %w", what, ErrNoSuchElement)
	}
	_, multiple, err := h.Attribute(ctx, "multiple")
	if err != nil {
		return err
	}
	if !multiple {
		opts = opts[:1]
	}
	for _, o := range opts {
		if _, disabled, err := o.Attribute(ctx, "disabled"); err != nil {
			return err
		} else if disabled {
			return fmt.Errorf("lookout: option %s is disabled: %w", what, ErrNotInteractable)
		}
		if err := o.Click(ctx); err != nil {
			return err
		}
	}
	return nil
}

// selectRadio clicks the first element of src whose value is value.
func selectRadio(ctx context.Context, src Source, value string) error {
	hs, err := src.ResolveMany(ctx)
	if err != nil {
		return err
	}
	for _, h := range hs {
		v, _, err := h.Attribute(ctx, "value")
		if err != nil {
			return err
		}
		if v != value {
			continue
		}
		if _, readonly, err := h.Attribute(ctx, "readonly"); err != nil {
			return err
		} else if readonly {
			return fmt.Errorf("lookout: radio %q is readonly: %w", value, ErrNotInteractable)
		}
		return h.Click(ctx)
	}
	return fmt.Errorf("lookout: cannot locate radio with value: %s: %w", value, ErrNoSuchElement)
}
