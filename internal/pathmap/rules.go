package pathmap

import (
	"context"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one ordered path replacement: paths starting with From are
// rewritten to start with To. Both sides are normalized to end with a
// separator so a rule can never match a partial component.
type Rule struct {
	From string
	To   string
}

// NewRule normalizes both prefixes.
func NewRule(from, to string) Rule {
	from = strings.ReplaceAll(from, "\\", "/")
	if !strings.HasSuffix(from, "/") {
		from += "/"
	}
	if !strings.HasSuffix(to, "/") {
		to += "/"
	}
	return Rule{From: from, To: to}
}

// Matches reports whether the path falls under the rule's From prefix.
func (r Rule) Matches(path string) bool {
	return strings.HasPrefix(path, r.From)
}

// Convert swaps the matched prefix.
func (r Rule) Convert(path string) string {
	return r.To + path[len(r.From):]
}

type ruleFile struct {
	Replacements []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"replacements"`
}

// LoadRules reads the replacement rule file and runs every rule's To side
// through the device's path conversion, preserving file order. A missing or
// unreadable file is a warning, not an error: the resolver still works, it
// just falls back to share conversion and HTTP streaming.
func LoadRules(ctx context.Context, path string, converter PathConverter, logger *log.Logger) ([]Rule, error) {
	if logger == nil {
		logger = log.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("pathmap: no replacement config at %s: %v", path, err)
		return nil, nil
	}

	var parsed ruleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(parsed.Replacements))
	for _, entry := range parsed.Replacements {
		to := entry.To
		if !strings.HasSuffix(to, "/") {
			to += "/"
		}
		converted, err := converter.ConvertedPath(ctx, to)
		if err != nil {
			logger.Printf("pathmap: cannot convert %s on device: %v", to, err)
			converted = to
		}
		rule := NewRule(entry.From, converted)
		logger.Printf("pathmap: will map %s to %s", rule.From, rule.To)
		rules = append(rules, rule)
	}

	if len(rules) == 0 {
		logger.Printf("pathmap: warning, no path replacements have been configured")
	}
	return rules, nil
}
