package binding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindReplacesKnownKeys(t *testing.T) {
	got := Bind("host=${host} port=${port}", map[string]any{"host": "example.com", "port": 443})
	assert.Equal(t, "host=example.com port=443", got)
}

func TestBindLeavesUnknownPlaceholders(t *testing.T) {
	got := Bind("${known}/${missing}", map[string]any{"known": "a"})
	assert.Equal(t, "a/${missing}", got)
}

func TestBindIsSinglePass(t *testing.T) {
	params := map[string]any{"a": "${b}", "b": "nope"}
	assert.Equal(t, "${b}", Bind("${a}", params))
}

func TestBindNestedKeys(t *testing.T) {
	params := map[string]any{
		"translator": map[string]any{"region": "westeurope"},
		"labels":     map[string]string{"env": "dev"},
		"a.b":        "literal",
	}
	assert.Equal(t, "westeurope", Bind("${translator.region}", params))
	assert.Equal(t, "dev", Bind("${labels.env}", params))
	assert.Equal(t, "literal", Bind("${a.b}", params))
	assert.Equal(t, "${translator.zone}", Bind("${translator.zone}", params))
}

func TestBindUnterminatedPlaceholder(t *testing.T) {
	assert.Equal(t, "x ${open", Bind("x ${open", map[string]any{"open": "y"}))
	assert.Equal(t, "y ${", Bind("${open} ${", map[string]any{"open": "y"}))
}

func TestBindNoParams(t *testing.T) {
	assert.Equal(t, "${a}", Bind("${a}", nil))
}

func TestBindFormatsValues(t *testing.T) {
	params := map[string]any{"b": true, "f": 1.5, "n": nil}
	assert.Equal(t, "true 1.5 []", Bind("${b} ${f} [${n}]", params))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c", "a"}, Placeholders("${a}-${b.c}-${a}-${"))
	assert.Empty(t, Placeholders("plain"))
}

func TestBindJSON(t *testing.T) {
	doc, err := BindJSON(`{"servers":[{"url":"${endpoint}"}]}`, map[string]any{"endpoint": "https://api.example.com"})
	require.NoError(t, err)
	servers := doc["servers"].([]any)
	assert.Equal(t, "https://api.example.com", servers[0].(map[string]any)["url"])

	_, err = BindJSON(`{"a": ${n}}`, map[string]any{})
	require.Error(t, err)
}

// Parsing a bound template must equal parsing the same template with each
// placeholder replaced by hand.
func TestBindMatchesManualReplacement(t *testing.T) {
	cases := []struct {
		template string
		params   map[string]any
		manual   string
	}{
		{
			`{"url":"${endpoint}/translate","id":"${connection_id}"}`,
			map[string]any{"endpoint": "https://t.example.com", "connection_id": "/subscriptions/s/conn"},
			`{"url":"https://t.example.com/translate","id":"/subscriptions/s/conn"}`,
		},
		{
			`{"count": ${n}, "flag": ${ok}, "name": "${name}"}`,
			map[string]any{"n": 3, "ok": false, "name": "ü 白日"},
			`{"count": 3, "flag": false, "name": "ü 白日"}`,
		},
		{
			`{"nested":{"v":"${a.b}"},"keep":"${other}"}`,
			map[string]any{"a": map[string]any{"b": "deep"}},
			`{"nested":{"v":"deep"},"keep":"${other}"}`,
		},
		{
			`{"twice":["${x}","${x}"]}`,
			map[string]any{"x": "y"},
			`{"twice":["y","y"]}`,
		},
		{
			`{"servers":[{"url":"${translator_endpoint}"}],"region":"${translator_region}"}`,
			map[string]any{"translator_endpoint": "https://api.cognitive.microsofttranslator.com", "translator_region": "${translator_endpoint}"},
			`{"servers":[{"url":"https://api.cognitive.microsofttranslator.com"}],"region":"${translator_endpoint}"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			got, err := BindJSON(tc.template, tc.params)
			require.NoError(t, err)

			var want map[string]any
			require.NoError(t, json.Unmarshal([]byte(tc.manual), &want))
			assert.Equal(t, want, got)
		})
	}
}
