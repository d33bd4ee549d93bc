// Package homepage reads links out of Homepage dashboard files
// (bookmarks.yaml and services.yaml) for the bulk importer.
package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Loader reads one Homepage file.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads the file and returns its entries in file order.
func (l *Loader) Load() ([]Entry, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.filePath, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.filePath, err)
	}
	return entries, nil
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// stripTemplateVariables blanks Homepage substitutions such as
// {{HOMEPAGE_VAR_ADGUARD_URL}}; the values live outside the file.
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}

// Parse walks the document node by node so entries keep file order,
// which plain map decoding would lose.
func Parse(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(stripTemplateVariables(data), &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of groups", root.Line)
	}

	var out []Entry
	for _, group := range root.Content {
		err := eachPair(group, func(groupName string, items *yaml.Node) error {
			if items.Kind != yaml.SequenceNode {
				return fmt.Errorf("line %d: group %q: expected a list", items.Line, groupName)
			}
			for _, item := range items.Content {
				err := eachPair(item, func(name string, value *yaml.Node) error {
					href, err := hrefOf(value)
					if err != nil {
						return fmt.Errorf("line %d: %q: %w", value.Line, name, err)
					}
					out = append(out, Entry{Group: groupName, Name: name, Href: href, Line: value.Line})
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func eachPair(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// hrefOf reads a bookmark entry list or a service mapping.
func hrefOf(value *yaml.Node) (string, error) {
	switch value.Kind {
	case yaml.SequenceNode:
		var entries []BookmarkEntry
		if err := value.Decode(&entries); err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", nil
		}
		return entries[0].Href, nil
	case yaml.MappingNode:
		var props ServiceProps
		if err := value.Decode(&props); err != nil {
			return "", err
		}
		return props.Href, nil
	default:
		return "", fmt.Errorf("unexpected %s", kindName(value.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return fmt.Sprintf("node kind %d", k)
	}
}
