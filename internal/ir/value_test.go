package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_SortedKeysUTF16(t *testing.T) {
	// U+1F600 is the surrogate pair D83D DE00 in UTF-16 and sorts before
	// U+FB33, the reverse of UTF-8 byte order.
	obj := Object{
		"\U0001F600": Int(1),
		"\uFB33":     Int(2),
		"a":          Int(3),
	}
	assert.Equal(t, []string{"a", "\U0001F600", "\uFB33"}, obj.SortedKeys())
}

func TestObject_JSONRoundTrip(t *testing.T) {
	obj := NewObject(
		O("shape", String("circle")),
		O("duration", Int(500)),
		O("visible", Bool(true)),
		O("steps", Array{Int(1), Int(2)}),
		O("nested", Object{"k": Null{}}),
	)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"duration":500,"nested":{"k":null},"shape":"circle","steps":[1,2],"visible":true}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestObject_UnmarshalRejectsFloat(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`{"zoom":1.5}`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are not allowed")
}

func TestObject_CloneIsDeep(t *testing.T) {
	obj := Object{"inner": Object{"x": Int(1)}, "list": Array{Int(1)}}
	cp := obj.Clone()

	cp["inner"].(Object)["x"] = Int(2)
	cp["list"].(Array)[0] = Int(9)

	assert.Equal(t, Int(1), obj["inner"].(Object)["x"])
	assert.Equal(t, Int(1), obj["list"].(Array)[0])
	assert.Nil(t, Object(nil).Clone())
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Object
		wantErr string
	}{
		{"simple", `{"a":1,"b":"x"}`, Object{"a": Int(1), "b": String("x")}, ""},
		{"large int keeps precision", `{"n":9007199254740993}`, Object{"n": Int(9007199254740993)}, ""},
		{"float rejected", `{"n":0.5}`, nil, "floats are forbidden"},
		{"exponent rejected", `{"n":1e3}`, nil, "floats are forbidden"},
		{"null rejected", `{"n":null}`, nil, "null is forbidden"},
		{"not an object", `[1,2]`, nil, "must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObject([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGo_YAMLShapes(t *testing.T) {
	// yaml.v3 decodes integers as int and mappings as map[string]any.
	v, err := FromGo(map[string]any{
		"duration": 300,
		"tags":     []any{"a", true},
	})
	require.NoError(t, err)
	assert.Equal(t, Object{"duration": Int(300), "tags": Array{String("a"), Bool(true)}}, v)

	_, err = FromGo(map[string]any{"zoom": 1.25})
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	got := ToGo(Object{"a": Array{Int(1), String("b")}, "c": Bool(false)})
	assert.Equal(t, map[string]any{"a": []any{int64(1), "b"}, "c": false}, got)
}
