package ctyutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFromGo(t *testing.T) {
	t.Parallel()

	v, err := FromGo(map[string]any{"name": "camera", "count": 3, "tags": []string{"a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, "camera", v.GetAttr("name").AsString())
	assert.True(t, v.GetAttr("count").RawEquals(cty.NumberIntVal(3)))
	assert.Equal(t, 2, v.GetAttr("tags").LengthInt())

	null, err := FromGo(nil)
	require.NoError(t, err)
	assert.True(t, null.IsNull())
}

func TestToJSON(t *testing.T) {
	t.Parallel()

	raw, err := ToJSON(cty.ObjectVal(map[string]cty.Value{"ok": cty.True}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	raw, err = ToJSON(cty.NilVal)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestStringMap(t *testing.T) {
	t.Parallel()

	assert.True(t, StringMap(nil).RawEquals(cty.MapValEmpty(cty.String)))
	m := StringMap(map[string]string{"HOME": "/root"})
	assert.Equal(t, "/root", m.Index(cty.StringVal("HOME")).AsString())
	assert.Equal(t, []string{"a", "b"}, SortedKeys(map[string]int{"b": 1, "a": 2}))
}
