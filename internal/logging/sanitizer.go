package logging

import (
	"regexp"
)

// redactionRule pairs a label with the credential shape it redacts.
type redactionRule struct {
	name string
	re   *regexp.Regexp
}

// Sanitizer redacts credentials before they reach a log sink. The rule set
// covers what this system actually handles: provider API keys from
// team.json's model block, tokens resolved out of .env, and the generic
// key=value shapes agents may echo into conversation or debug dumps.
type Sanitizer struct {
	rules    []redactionRule
	redacted string
}

// sensitiveKeys are map keys whose values SanitizeMap redacts wholesale
// regardless of value shape — team.json's model block and resolved .env
// entries reach debug dumps under these names.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"authorization": true,
	"password":      true,
	"secret":        true,
	"token":         true,
}

// NewSanitizer creates a sanitizer with the default rule set. Anthropic
// keys are matched ahead of the broader OpenAI shape, which would otherwise
// swallow the sk-ant- prefix and leave the tail exposed.
func NewSanitizer() *Sanitizer {
	rules := []redactionRule{
		{"anthropic-key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{40,}`)},
		{"openai-key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
		{"google-key", regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`)},
		{"github-token", regexp.MustCompile(`gh[opus]_[A-Za-z0-9]{36}`)},
		{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		{"aws-secret", regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key["'\s:=]+[A-Za-z0-9/+=]{40}`)},
		{"slack-token", regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]{10,}`)},
		{"bearer", regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`)},
		{"generic-api-key", regexp.MustCompile(`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
		{"generic-secret", regexp.MustCompile(`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
		{"generic-password", regexp.MustCompile(`(?i)password["'\s:=]+[^\s"']{8,}`)},
		{"generic-token", regexp.MustCompile(`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
	}
	return &Sanitizer{rules: rules, redacted: "[REDACTED]"}
}

// Sanitize redacts every credential shape found in input.
func (s *Sanitizer) Sanitize(input string) string {
	out := input
	for _, rule := range s.rules {
		out = rule.re.ReplaceAllString(out, s.redacted)
	}
	return out
}

// SanitizeMap redacts a decoded JSON object: values under sensitive keys
// are replaced wholesale, string values are pattern-scanned, and nested
// objects recurse. Used for debug-dump records before they are persisted.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if sensitiveKeys[k] {
			out[k] = s.redacted
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = s.Sanitize(val)
		case map[string]interface{}:
			out[k] = s.SanitizeMap(val)
		default:
			out[k] = v
		}
	}
	return out
}

// AddPattern registers an extra redaction rule at the end of the chain.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, redactionRule{name: "custom", re: re})
	return nil
}
