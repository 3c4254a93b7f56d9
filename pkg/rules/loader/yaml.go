package loader

import (
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the intermediate structure of a rule document.
type yamlDocument struct {
	Version     string      `yaml:"version"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Fields      []yamlField `yaml:"fields"`

	keys []yamlKey
}

// yamlField is the intermediate structure of a field entry.
type yamlField struct {
	Target      string     `yaml:"target"`
	Description string     `yaml:"description"`
	Rules       []yamlRule `yaml:"rules"`

	keys   []yamlKey
	line   int
	column int
}

// yamlRule holds the union of all strategy parameters. The builder decides
// which of them apply to the rule's strategy.
type yamlRule struct {
	ID          string            `yaml:"id"`
	Description string            `yaml:"description"`
	Strategy    string            `yaml:"strategy"`
	Priority    int               `yaml:"priority"`
	Source      string            `yaml:"source"`
	Literal     string            `yaml:"literal"`
	Value       *string           `yaml:"value"`
	Token       string            `yaml:"token"`
	Tokens      []string          `yaml:"tokens"`
	WholeWord   bool              `yaml:"whole_word"`
	Pattern     string            `yaml:"pattern"`
	Group       string            `yaml:"group"`
	Transform   string            `yaml:"transform"`
	IgnoreCase  bool              `yaml:"ignore_case"`
	Table       map[string]string `yaml:"table"`
	From        []string          `yaml:"from"`
	Format      string            `yaml:"format"`
	Separator   *string           `yaml:"separator"`

	keys   []yamlKey
	line   int
	column int
}

// yamlKey is a mapping key with its position.
type yamlKey struct {
	name   string
	line   int
	column int
}

// UnmarshalYAML records the position and keys of a field entry.
func (f *yamlField) UnmarshalYAML(value *yaml.Node) error {
	type plain yamlField
	if err := value.Decode((*plain)(f)); err != nil {
		return err
	}
	f.keys = mappingKeys(value)
	f.line, f.column = value.Line, value.Column
	return nil
}

// UnmarshalYAML records the position and keys of a rule entry.
func (r *yamlRule) UnmarshalYAML(value *yaml.Node) error {
	type plain yamlRule
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	r.keys = mappingKeys(value)
	r.line, r.column = value.Line, value.Column
	return nil
}

// parseYAMLBytes decodes a rule document.
func parseYAMLBytes(data []byte) (*yamlDocument, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var doc yamlDocument
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}

	if len(node.Content) > 0 {
		doc.keys = mappingKeys(node.Content[0])
	}
	return &doc, nil
}

// mappingKeys returns the keys of a mapping node in document order.
func mappingKeys(node *yaml.Node) []yamlKey {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]yamlKey, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		keys = append(keys, yamlKey{name: k.Value, line: k.Line, column: k.Column})
	}
	return keys
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// errorLine extracts the line number from a yaml.v3 error message.
func errorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 1
	}
	line, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 1
	}
	return line
}
