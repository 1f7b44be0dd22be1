package importer

import (
	"regexp"
	"strings"
)

// provider describes a known credential format.
type provider struct {
	name    string
	envName string // conventional variable name
	token   *regexp.Regexp
	hints   []string // substrings of variable names
}

var providers = []provider{
	{"github", "GITHUB_TOKEN", regexp.MustCompile(`\b(?:gh[pousr]_[A-Za-z0-9]{20,}|github_pat_[A-Za-z0-9_]{20,})\b`), []string{"GITHUB", "GH_"}},
	{"gitlab", "GITLAB_TOKEN", regexp.MustCompile(`\bglpat-[A-Za-z0-9_\-]{20,}\b`), []string{"GITLAB"}},
	{"anthropic", "ANTHROPIC_API_KEY", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{20,}\b`), []string{"ANTHROPIC", "CLAUDE"}},
	{"openai", "OPENAI_API_KEY", regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_\-]{20,}\b`), []string{"OPENAI"}},
	{"stripe", "STRIPE_SECRET_KEY", regexp.MustCompile(`\b[sr]k_(?:live|test)_[A-Za-z0-9]{16,}\b`), []string{"STRIPE"}},
	{"aws", "AWS_ACCESS_KEY_ID", regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`), []string{"AWS_"}},
	{"slack", "SLACK_TOKEN", regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9\-]{10,}\b`), []string{"SLACK"}},
	{"google", "GOOGLE_API_KEY", regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`), []string{"GOOGLE", "GCP_", "FIREBASE"}},
}

// DetectProvider guesses the service a credential belongs to from its value,
// falling back to hints in the variable name. It returns "" when unknown.
func DetectProvider(name, value string) string {
	for _, p := range providers {
		if p.token.MatchString(value) {
			return p.name
		}
	}
	upper := strings.ToUpper(name)
	for _, p := range providers {
		for _, h := range p.hints {
			if strings.Contains(upper, h) {
				return p.name
			}
		}
	}
	return ""
}
