// Package profile loads UserProfiles from JSON, JSONC and YAML files and
// from key=value pairs given on the command line.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/yojana/internal/model"
)

// Format is a profile file encoding
type Format string

const (
	FormatJSON Format = "json" // also accepts comments and trailing commas
	FormatYAML Format = "yaml"
)

// ErrInvalidPair means a command line pair was not of the form key=value
var ErrInvalidPair = errors.New("expected key=value")

// FormatFromPath picks the encoding from a file extension; unknown
// extensions are read as JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ReadFile reads a profile from disk
func ReadFile(path string) (model.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	p, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a flat profile mapping
func Parse(data []byte, format Format) (model.UserProfile, error) {
	raw := make(map[string]any)

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	}

	out := make(model.UserProfile, len(raw))
	for k, v := range raw {
		key := normalizeKey(k)
		if key == "" {
			continue
		}
		if _, nested := v.(map[string]any); nested {
			return nil, fmt.Errorf("profile field %q: nested objects are not supported", k)
		}
		out[key] = v
	}
	return out, nil
}

var numericPattern = regexp.MustCompile(`^\d[\d,]*(?:\.\d+)?$`)

// ParsePairs builds a profile from key=value pairs. Numbers (with Indian
// digit grouping) become float64, comma separated words become lists.
func ParsePairs(pairs []string) (model.UserProfile, error) {
	out := make(model.UserProfile, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		key := normalizeKey(k)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w, got %q", ErrInvalidPair, pair)
		}
		out[key] = parseValue(strings.TrimSpace(v))
	}
	return out, nil
}

func parseValue(v string) any {
	if numericPattern.MatchString(v) {
		if n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			return n
		}
	}
	if strings.Contains(v, ",") {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return v
}

// Merge returns base overlaid with overrides; neither input is modified
func Merge(base, overrides model.UserProfile) model.UserProfile {
	out := base.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// UnknownFields lists fields no criterion reads, sorted
func UnknownFields(p model.UserProfile) []string {
	known := make(map[string]bool, len(model.ProfileFields))
	for _, f := range model.ProfileFields {
		known[f] = true
	}

	var unknown []string
	for k := range p {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
