// Package prompt maintains platform- and flavor-specific prompt templates
// with variable substitution and single-level parent/child inheritance.
package prompt

import (
	"fmt"
	"strings"
)

// Template is one structured prompt record. A template with a non-empty
// Parent is rendered by merging its Body into the parent's Body at the
// parent's {{child}} placeholder; composition is single-level only, so a
// child's own Parent (if any) is ignored during this merge (enforced by
// LoadDir's cycle/depth check at load time, not here).
type Template struct {
	Name     string   `yaml:"name"`
	Flavor   string   `yaml:"flavor"`
	Parent   string   `yaml:"parent"`
	Detailed bool     `yaml:"detailed"`
	Body     string   `yaml:"body"`
	Source   string   `yaml:"-"` // file path, for error messages
}

// Variables is the substitution set available to every template.
type Variables struct {
	OS                string
	UnixFlavor        string
	Shell             string
	Tools             []string
	UserInput         string
	Clarifications    []string
	ValidatorFeedback string
}

var placeholders = []string{"os", "unix_flavor", "shell", "tools", "user_input", "clarifications", "validator_feedback"}

// Render substitutes {{var}} placeholders in body with the fields of v.
func Render(body string, v Variables) string {
	replacer := strings.NewReplacer(
		"{{os}}", v.OS,
		"{{unix_flavor}}", v.UnixFlavor,
		"{{shell}}", v.Shell,
		"{{tools}}", strings.Join(v.Tools, ", "),
		"{{user_input}}", v.UserInput,
		"{{clarifications}}", strings.Join(v.Clarifications, "\n"),
		"{{validator_feedback}}", v.ValidatorFeedback,
	)
	return replacer.Replace(body)
}

// merge composes child into parent at the parent's {{child}} placeholder.
// If parent has no {{child}} placeholder, child's body is appended after
// a blank line so composition never silently drops content.
func merge(parent, child Template) Template {
	body := parent.Body
	if strings.Contains(body, "{{child}}") {
		body = strings.ReplaceAll(body, "{{child}}", child.Body)
	} else {
		body = body + "\n\n" + child.Body
	}
	return Template{
		Name:     child.Name,
		Flavor:   child.Flavor,
		Parent:   parent.Name,
		Detailed: child.Detailed || parent.Detailed,
		Body:     body,
		Source:   child.Source,
	}
}

func validatePlaceholdersKnown(body, source string) error {
	start := 0
	for {
		i := strings.Index(body[start:], "{{")
		if i < 0 {
			return nil
		}
		i += start
		end := strings.Index(body[i:], "}}")
		if end < 0 {
			return fmt.Errorf("%s: unterminated placeholder starting at byte %d", source, i)
		}
		name := body[i+2 : i+end]
		start = i + end + 2
		if name == "child" {
			continue
		}
		known := false
		for _, p := range placeholders {
			if p == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%s: unknown placeholder {{%s}}", source, name)
		}
	}
}
