package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/yojana/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile_JSONC(t *testing.T) {
	path := writeFile(t, "me.jsonc", `{
		// declared annual household income
		"Income": "2,40,000",
		"age": 34,
		"state": "Maharashtra",
		"category": ["OBC", "BPL"], /* both apply */
	}`)

	p, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "2,40,000", p["income"])
	assert.Equal(t, float64(34), p["age"])
	assert.Equal(t, "Maharashtra", p["state"])
	assert.Equal(t, []any{"OBC", "BPL"}, p["category"])
}

func TestReadFile_YAML(t *testing.T) {
	path := writeFile(t, "me.yaml", `
income: 180000
age: 67
gender: female
occupation:
  - farmer
  - weaver
`)

	p, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 180000, p["income"])
	assert.Equal(t, 67, p["age"])
	assert.Equal(t, "female", p["gender"])
	assert.Equal(t, []any{"farmer", "weaver"}, p["occupation"])
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadFile(writeFile(t, "bad.json", `{"age": `))
	assert.Error(t, err)

	_, err = ReadFile(writeFile(t, "nested.yml", "address:\n  state: Goa\n"))
	assert.ErrorContains(t, err, "nested objects")
}

func TestParsePairs(t *testing.T) {
	p, err := ParsePairs([]string{
		"income=2,50,000",
		"age= 29",
		"State=Tamil Nadu",
		"category=SC, BPL",
		"occupation=farmer",
		"note=",
	})
	require.NoError(t, err)

	assert.Equal(t, model.UserProfile{
		"income":     float64(250000),
		"age":        float64(29),
		"state":      "Tamil Nadu",
		"category":   []string{"SC", "BPL"},
		"occupation": "farmer",
		"note":       "",
	}, p)
}

func TestParsePairs_Invalid(t *testing.T) {
	for _, pair := range []string{"income", "=5", " =x"} {
		_, err := ParsePairs([]string{pair})
		assert.True(t, errors.Is(err, ErrInvalidPair), pair)
	}
}

func TestMerge(t *testing.T) {
	base := model.UserProfile{"age": 30, "state": "Goa"}
	overrides := model.UserProfile{"state": "Kerala", "income": 100000.0}

	merged := Merge(base, overrides)

	assert.Equal(t, model.UserProfile{"age": 30, "state": "Kerala", "income": 100000.0}, merged)
	assert.Equal(t, "Goa", base["state"])
}

func TestUnknownFields(t *testing.T) {
	p := model.UserProfile{"age": 1, "pincode": "400001", "caste": "SC", "income": 1}
	assert.Equal(t, []string{"caste", "pincode"}, UnknownFields(p))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("p.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("p.jsonc"))
	assert.Equal(t, FormatJSON, FormatFromPath("profile"))
}
