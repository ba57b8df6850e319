package registry

import (
	"context"
	"testing"

	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const greetSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name":  {"type": "string", "minLength": 1},
		"times": {"type": "integer", "minimum": 1}
	}
}`

func greet(ctx context.Context, t *task.Task) (cty.Value, error) {
	name, err := t.String("name", "")
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{"text": cty.StringVal("hi " + name)}), nil
}

type greetModule struct{}

func (greetModule) Register(r *Registry) {
	r.Register(Kind{Name: "greet", Description: "says hi", Schema: greetSchema, New: func() task.Runnable { return task.RunnableFunc(greet) }})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	r.RegisterAll(greetModule{})
	r.Func("noop", "", func(ctx context.Context, t *task.Task) (cty.Value, error) { return cty.EmptyObjectVal, nil })

	// --- Act ---
	run, err := r.New("greet")

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, r.IsValidType("greet"))
	assert.True(t, r.IsValidType("noop"))
	assert.False(t, r.IsValidType("Greet"))

	out, err := run.Run(context.Background(), &task.Task{Params: map[string]cty.Value{"name": cty.StringVal("bob")}})
	require.NoError(t, err)
	assert.Equal(t, "hi bob", out.GetAttr("text").AsString())

	kinds := r.Kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, "greet", kinds[0].Name)
	assert.Equal(t, "noop", kinds[1].Name)

	k, ok := r.Kind("greet")
	require.True(t, ok)
	assert.Equal(t, "says hi", k.Description)
}

func TestRegistry_UnknownType(t *testing.T) {
	t.Parallel()
	r := New()

	_, err := r.New("missing")
	assert.ErrorIs(t, err, ErrUnknownType)

	err = r.Validate("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_RegisterPanics(t *testing.T) {
	t.Parallel()
	newFn := func() task.Runnable { return nil }

	testCases := []struct {
		name string
		kind Kind
	}{
		{name: "empty name", kind: Kind{New: newFn}},
		{name: "no constructor", kind: Kind{Name: "x"}},
		{name: "bad schema", kind: Kind{Name: "x", Schema: `{"type": 12}`, New: newFn}},
		{name: "duplicate", kind: Kind{Name: "greet", New: newFn}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := New()
			r.RegisterAll(greetModule{})
			assert.Panics(t, func() { r.Register(tc.kind) })
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterAll(greetModule{})
	r.Func("free", "", greet)

	testCases := []struct {
		name    string
		kind    string
		params  map[string]cty.Value
		wantErr string
	}{
		{name: "valid", kind: "greet", params: map[string]cty.Value{"name": cty.StringVal("a"), "times": cty.NumberIntVal(2)}},
		{name: "missing required", kind: "greet", params: nil, wantErr: "name is required"},
		{name: "wrong type", kind: "greet", params: map[string]cty.Value{"name": cty.NumberIntVal(3)}, wantErr: "Invalid type"},
		{name: "below minimum", kind: "greet", params: map[string]cty.Value{"name": cty.StringVal("a"), "times": cty.NumberIntVal(0)}, wantErr: "times"},
		{name: "no schema accepts anything", kind: "free", params: map[string]cty.Value{"x": cty.True}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := r.Validate(tc.kind, tc.params)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var pe *ParamsError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.kind, pe.Type)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
