package memory

import (
	"regexp"

	"github.com/wildcard/caro/internal/validator"
)

// secretPatterns is the dedicated credential/secret set history persistence
// redacts on top of the validator's safety-pattern library: JWTs, AWS
// access keys, SSH private key blocks, emails, IPv4 addresses, home
// paths, and generic KEY=value env-style secrets. These are redaction
// rules, not risk classifications, so they live here rather than in
// internal/validator.
var secretPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)},
	{"aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"ssh-private-key", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"ipv4", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"home-path", regexp.MustCompile(`/(?:home|Users)/[^/\s]+`)},
	{"env-secret", regexp.MustCompile(`(?i)\b(?:[A-Z_]*(?:SECRET|TOKEN|PASSWORD|API_KEY|APIKEY)[A-Z_]*)\s*=\s*\S+`)},
}

// Redact replaces every matched secret in text with a tagged placeholder,
// e.g. "[redacted:aws-access-key]", preserving surrounding context so a
// mined LearnedPattern can still see the shape of the command.
func Redact(text string) string {
	for _, p := range secretPatterns {
		text = p.pattern.ReplaceAllString(text, "[redacted:"+p.name+"]")
	}
	return text
}

// RedactCommand runs Redact plus any validator rule tagged
// credential-handling"the same pattern library used
// by the validator plus a dedicated set." Commands (as opposed to
// clarification answers or free text) are the one place the validator's
// own rule set overlaps with what memory needs to scrub — e.g. a `cat
// ~/.ssh/id_rsa` the validator flagged for risk also needs its path
// scrubbed before it reaches history.
func RedactCommand(command string, rules []validator.Rule) string {
	for _, r := range rules {
		if r.Tag != validator.TagCredentialHandling {
			continue
		}
		command = r.Pattern.ReplaceAllString(command, "[redacted:"+string(r.Tag)+"]")
	}
	return Redact(command)
}
