package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueWalkThroughMapAndList(t *testing.T) {
	v := MapValue([]string{"items"}, map[string]Value{
		"items": ListValue([]Value{
			MapValue([]string{"name"}, map[string]Value{"name": StringValue("first")}),
			MapValue([]string{"name"}, map[string]Value{"name": StringValue("second")}),
		}),
	})

	got, ok := v.Walk([]string{"items", "1", "name"})
	require.True(t, ok)
	require.Equal(t, "second", got.Str)
}

func TestValueWalkMissingSegmentReturnsNull(t *testing.T) {
	v := MapValue([]string{"a"}, map[string]Value{"a": StringValue("x")})
	got, ok := v.Walk([]string{"b"})
	require.False(t, ok)
	require.True(t, got.IsNullOrUndefined())
}

func TestParseJSONTextRoundTripsThroughToJSON(t *testing.T) {
	v, err := ParseJSONText(`{"a": 1, "b": [true, null, "s"]}`)
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind)

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, float64(1), back["a"])
}

func TestParseJSONTextInvalidLiteralErrors(t *testing.T) {
	_, err := ParseJSONText(`{not json`)
	require.Error(t, err)
}

func TestValueToStructAndBack(t *testing.T) {
	v := MapValue([]string{"n", "ok"}, map[string]Value{
		"n":  NumberValue(42),
		"ok": BoolValue(true),
	})
	pv, err := v.ToStruct()
	require.NoError(t, err)

	back := FromStruct(pv)
	got, ok := back.Get("n")
	require.True(t, ok)
	require.Equal(t, float64(42), got.Num)
}

func TestFromStructNilIsNull(t *testing.T) {
	require.True(t, FromStruct(nil).IsNullOrUndefined())
}

func TestUnmarshalJSONUsesJSONNumberPath(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`3.5`), &v))
	require.Equal(t, KindNumber, v.Kind)
	require.Equal(t, 3.5, v.Num)
}
