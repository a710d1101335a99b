package registry

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/ifjconform/internal/taxonomy"
)

//go:embed schema.cue
var schemaCUE string

// parseCUE evaluates a CUE registry document against the embedded schema.
// Uses the CUE Go API directly, not the cue command.
func parseCUE(data []byte, filename string) ([]Entry, string, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, "", fmt.Errorf("compile schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, "", formatCUEError(err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, "", formatCUEError(err)
	}

	var root string
	if rootVal := v.LookupPath(cue.ParsePath("root")); rootVal.Exists() {
		s, err := rootVal.String()
		if err != nil {
			return nil, "", formatCUEError(err)
		}
		root = s
	}

	iter, err := v.LookupPath(cue.ParsePath("cases")).List()
	if err != nil {
		return nil, "", formatCUEError(err)
	}

	var entries []Entry
	for i := 0; iter.Next(); i++ {
		item := iter.Value()

		source, err := item.LookupPath(cue.ParsePath("source")).String()
		if err != nil {
			return nil, "", fmt.Errorf("cases[%d].source: %w", i, formatCUEError(err))
		}

		code, err := cueCode(item.LookupPath(cue.ParsePath("expect")))
		if err != nil {
			return nil, "", fmt.Errorf("cases[%d].expect: %w", i, err)
		}

		entries = append(entries, Entry{Source: source, Expect: code})
	}

	return entries, root, nil
}

// cueCode reads an expectation that is either an integer or a code name.
func cueCode(v cue.Value) (taxonomy.Code, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return taxonomy.Code(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return taxonomy.Parse(s)
	default:
		return 0, fmt.Errorf("expected int or string, got %v", v.Kind())
	}
}

// formatCUEError reduces CUE's multi-error to its first error, prefixed with
// the source position when one is known.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	msg := first.Error()
	if positions := errors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0]
		msg = fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), msg)
	}
	if len(errs) > 1 {
		return fmt.Errorf("%s (and %d more)", msg, len(errs)-1)
	}
	return fmt.Errorf("%s", msg)
}
