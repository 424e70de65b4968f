package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/errors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "conversational preamble before object",
			raw:  "Okay! I scanned the page. Here is the data:\n{\"productName\": \"Aero Mug\"}",
			want: `{"productName": "Aero Mug"}`,
		},
		{
			name: "markdown fenced object",
			raw:  "```json\n{\"angle\": \"FOMO\"}\n```",
			want: `{"angle": "FOMO"}`,
		},
		{
			name: "braces inside string literals do not break balance",
			raw:  `prefix {"note": "use {curly} and \"quoted\" text", "n": 1} suffix`,
			want: `{"note": "use {curly} and \"quoted\" text", "n": 1}`,
		},
		{
			name: "trailing comma repaired",
			raw:  `{"hooks": ["a", "b",], "n": 2,}`,
			want: `{"hooks": ["a", "b"], "n": 2}`,
		},
		{
			name: "singleton array unwrapped",
			raw:  `[{"selectedHook": "The Drop"}]`,
			want: `{"selectedHook": "The Drop"}`,
		},
		{
			name: "multi-element array kept intact",
			raw:  `[{"a":1},{"a":2}]`,
			want: `[{"a":1},{"a":2}]`,
		},
		{
			name:    "no JSON at all",
			raw:     "I'm sorry, I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "hopelessly broken payload",
			raw:     `{"scenes": ["one", "two"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.CodeMalformedResponse, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Clean objects and multi-element arrays must survive a second pass
// unchanged: extraction is idempotent on its own output.
func TestExtractJSONIdempotent(t *testing.T) {
	inputs := []string{
		`{"productName": "Aero Mug", "features": ["light", "sealed"]}`,
		`{"nested": {"deep": [1, 2, 3]}}`,
		`[{"a":1},{"a":2}]`,
	}
	for _, in := range inputs {
		first, err := ExtractJSON(in)
		require.NoError(t, err)
		second, err := ExtractJSON(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestUnmarshal(t *testing.T) {
	type strategy struct {
		Angle    string   `json:"angle"`
		Triggers []string `json:"triggers"`
	}

	t.Run("decodes wrapped payload", func(t *testing.T) {
		out, err := Unmarshal[strategy]("Sure thing:\n{\"angle\": \"Authority\", \"triggers\": [\"proof\"]}")
		require.NoError(t, err)
		assert.Equal(t, "Authority", out.Angle)
		assert.Equal(t, []string{"proof"}, out.Triggers)
	})

	t.Run("shape mismatch carries malformed code", func(t *testing.T) {
		_, err := Unmarshal[strategy](`{"angle": ["not", "a", "string"]}`)
		require.Error(t, err)
		assert.Equal(t, errors.CodeMalformedResponse, errors.GetCode(err))
	})
}

func TestRender(t *testing.T) {
	out := Render("Product: {PRODUCT_NAME} at {URL}", map[string]string{
		"PRODUCT_NAME": "Aero Mug",
		"URL":          "https://example.com/mug",
	})
	assert.Equal(t, "Product: Aero Mug at https://example.com/mug", out)

	// Missing keys stay visible so a forgotten replacement is noticeable.
	out = Render("Hello {WHO}", map[string]string{})
	assert.Equal(t, "Hello {WHO}", out)
}
