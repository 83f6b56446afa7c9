package schema

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// schemaFile is the YAML layout of a schema file.
type schemaFile struct {
	Columns []string  `yaml:"columns"`
	Index   *string   `yaml:"index"`
	Date    string    `yaml:"date"`
	Time    string    `yaml:"time"`
	Groups  groupList `yaml:"groups"`
}

// groupList accepts groups either as a list of {name, label, channels}
// entries or as a mapping from group name to its channels.
type groupList []Group

// UnmarshalYAML implements yaml.Unmarshaler.
func (g *groupList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var groups []Group
		if err := node.Decode(&groups); err != nil {
			return err
		}
		if groups == nil {
			groups = []Group{}
		}
		*g = groups
		return nil
	case yaml.MappingNode:
		groups := make([]Group, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return err
			}
			var channels []string
			if err := node.Content[i+1].Decode(&channels); err != nil {
				return fmt.Errorf("group %s: %w", name, err)
			}
			groups = append(groups, Group{Name: name, Label: defaultLabel(name), Channels: channels})
		}
		*g = groups
		return nil
	default:
		return fmt.Errorf("line %d: groups must be a list or a mapping", node.Line)
	}
}

func defaultLabel(name string) string {
	for _, g := range DefaultGroups() {
		if g.Name == name {
			return g.Label
		}
	}
	return name
}

// Load reads a schema from a YAML file.
func Load(path string) (*Schema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader reads a schema from YAML. Missing columns, date, time and
// groups fall back to the defaults. A missing index is "VI" when the columns
// contain it; an explicit empty index means the files have none.
func LoadFromReader(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := Schema{
		Columns: f.Columns,
		Date:    f.Date,
		Time:    f.Time,
		Groups:  f.Groups,
	}
	if len(s.Columns) == 0 {
		s.Columns = DefaultColumns()
	}
	switch {
	case f.Index != nil:
		s.Index = *f.Index
	case slices.Contains(s.Columns, defaultIndex):
		s.Index = defaultIndex
	}
	if s.Date == "" {
		s.Date = "Datetime"
	}
	if s.Time == "" {
		s.Time = "Time"
	}
	if s.Groups == nil {
		s.Groups = DefaultGroups()
	}

	if err := s.init(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &s, nil
}
