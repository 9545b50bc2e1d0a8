package harness

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed scenario_schema.cue
var schemaSource string

// validateSchema unifies a decoded scenario document with the embedded
// #Scenario definition. Definitions are closed, so unknown fields fail here
// with a CUE field path in the message.
func validateSchema(raw map[string]any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("scenario_schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return fmt.Errorf("schema is missing the #Scenario definition")
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
