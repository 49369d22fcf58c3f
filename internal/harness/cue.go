package harness

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// parseCUE compiles a CUE scenario file, unifies its `scenario` field with
// the #Scenario definition and decodes the result.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %s", formatCUEError(err))
	}

	v := file.LookupPath(cue.ParsePath("scenario"))
	if !v.Exists() {
		return nil, fmt.Errorf("failed to parse CUE: no top-level scenario field in %s", path)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario does not match schema: %s", formatCUEError(err))
	}

	var scenario Scenario
	if err := unified.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("decode CUE scenario: %s", formatCUEError(err))
	}
	return &scenario, nil
}

// formatCUEError flattens a CUE error list into one line per error with
// positions where CUE has them.
func formatCUEError(err error) string {
	return errors.Details(err, nil)
}
