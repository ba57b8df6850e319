package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ParamsError lists every schema violation found in a node's parameters.
type ParamsError struct {
	Type       string
	Violations []string
}

func (e *ParamsError) Error() string {
	return fmt.Sprintf("invalid parameters for '%s': %s", e.Type, strings.Join(e.Violations, "; "))
}

// Validate checks resolved parameters against the kind's schema. Kinds
// without a schema accept anything.
func (r *Registry) Validate(name string, params map[string]cty.Value) error {
	r.mu.RLock()
	e, ok := r.kinds[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if e.schema == nil {
		return nil
	}

	obj := cty.EmptyObjectVal
	if len(params) > 0 {
		obj = cty.ObjectVal(params)
	}
	if !obj.IsWhollyKnown() {
		return fmt.Errorf("parameters for '%s' contain unknown values", name)
	}
	data, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return fmt.Errorf("encode parameters for '%s': %w", name, err)
	}

	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate parameters for '%s': %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, re.String())
	}
	sort.Strings(violations)
	return &ParamsError{Type: name, Violations: violations}
}
