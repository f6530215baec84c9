package transform

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the optional YAML header of a transformation script.
type Frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	DependsOn   []string `yaml:"depends_on"`
}

// frontmatterPattern matches a leading /*--- ... ---*/ block.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

var knownFields = map[string]bool{
	"name":        true,
	"description": true,
	"depends_on":  true,
}

// ExtractFrontmatter splits content into its frontmatter and the SQL that
// follows. Content without a header is returned unchanged with a zero
// Frontmatter.
func ExtractFrontmatter(content string) (*Frontmatter, string, error) {
	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return &Frontmatter{}, content, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(matches[1]), &raw); err != nil {
		return nil, "", &FrontmatterError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	for field := range raw {
		if !knownFields[field] {
			return nil, "", &FrontmatterError{Message: fmt.Sprintf("unknown field %q in frontmatter", field)}
		}
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(matches[1]), &fm); err != nil {
		return nil, "", &FrontmatterError{Message: fmt.Sprintf("failed to parse frontmatter: %v", err)}
	}

	body := strings.TrimSpace(content[len(matches[0]):])
	return &fm, body, nil
}

// FrontmatterError reports a malformed script header.
type FrontmatterError struct {
	File    string
	Message string
}

func (e *FrontmatterError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}
