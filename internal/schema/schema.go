// Package schema describes the fixed column layout of the pressure log files
// and the static partition of channels into chart groups.
package schema

import (
	"fmt"
	"strings"

	"github.com/lnies/pressure-display/internal/models"
)

// Group names exposed to the rendering layer.
const (
	GroupHighVacuum = "high_vacuum"
	GroupRoughing   = "roughing"
)

// StatusSuffix marks a column as the status flag of the preceding channel.
const StatusSuffix = "_status"

// Group is a named set of pressure channels drawn on one chart panel.
type Group struct {
	Name     string   `json:"name" yaml:"name" msgpack:"name"`
	Label    string   `json:"label" yaml:"label" msgpack:"label"`
	Channels []string `json:"channels" yaml:"channels" msgpack:"channels"`
}

// Schema is the ordered, positional column list shared by all log files.
type Schema struct {
	Columns []string `yaml:"columns"`
	Index   string   `yaml:"index"`
	Date    string   `yaml:"date"`
	Time    string   `yaml:"time"`
	Groups  []Group  `yaml:"groups"`

	positions map[string]int
	channels  []models.Channel
	channelAt []int // column position of each channel
}

// New builds a Schema and validates it.
func New(columns []string, index, date, clock string, groups []Group) (*Schema, error) {
	s := &Schema{
		Columns: columns,
		Index:   index,
		Date:    date,
		Time:    clock,
		Groups:  groups,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) init() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}

	s.positions = make(map[string]int, len(s.Columns))
	for i, col := range s.Columns {
		name := strings.TrimSpace(col)
		if name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := s.positions[name]; dup {
			return fmt.Errorf("duplicate column %q", name)
		}
		s.Columns[i] = name
		s.positions[name] = i
	}

	if s.Index != "" {
		pos, ok := s.positions[s.Index]
		if !ok {
			return fmt.Errorf("index column %q not in columns", s.Index)
		}
		if pos != 0 {
			return fmt.Errorf("index column %q must be the first column", s.Index)
		}
	}
	if _, ok := s.positions[s.Date]; !ok {
		return fmt.Errorf("date column %q not in columns", s.Date)
	}
	if _, ok := s.positions[s.Time]; !ok {
		return fmt.Errorf("time column %q not in columns", s.Time)
	}

	s.channels = s.channels[:0]
	s.channelAt = s.channelAt[:0]
	for i, name := range s.Columns {
		if name == s.Index || name == s.Date || name == s.Time {
			continue
		}
		kind := models.ChannelKindPressure
		if strings.HasSuffix(name, StatusSuffix) {
			kind = models.ChannelKindStatus
		}
		s.channels = append(s.channels, models.Channel{Name: name, Kind: kind})
		s.channelAt = append(s.channelAt, i)
	}
	if len(s.channels) == 0 {
		return fmt.Errorf("schema has no channel columns")
	}

	seen := make(map[string]string)
	for _, g := range s.Groups {
		if g.Name == "" {
			return fmt.Errorf("group with empty name")
		}
		for _, ch := range g.Channels {
			pos, ok := s.positions[ch]
			if !ok {
				return fmt.Errorf("group %s: unknown channel %q", g.Name, ch)
			}
			if pos == s.positions[s.Date] || pos == s.positions[s.Time] || ch == s.Index {
				return fmt.Errorf("group %s: %q is not a channel", g.Name, ch)
			}
			if strings.HasSuffix(ch, StatusSuffix) {
				return fmt.Errorf("group %s: %q is a status column", g.Name, ch)
			}
			if other, dup := seen[ch]; dup {
				return fmt.Errorf("channel %q is in groups %s and %s", ch, other, g.Name)
			}
			seen[ch] = g.Name
		}
	}

	return nil
}

// Width is the number of tab-separated fields every content line must have.
func (s *Schema) Width() int {
	return len(s.Columns)
}

// HasIndex reports whether the schema has a leading index column.
func (s *Schema) HasIndex() bool {
	return s.Index != ""
}

// Position returns the column position of name, or -1.
func (s *Schema) Position(name string) int {
	if pos, ok := s.positions[name]; ok {
		return pos
	}
	return -1
}

// DatePos returns the column position of the date field.
func (s *Schema) DatePos() int { return s.positions[s.Date] }

// TimePos returns the column position of the clock field.
func (s *Schema) TimePos() int { return s.positions[s.Time] }

// Channels returns the signal columns in schema order.
func (s *Schema) Channels() []models.Channel {
	out := make([]models.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// ChannelColumn returns the column position of the i-th channel.
func (s *Schema) ChannelColumn(i int) int {
	return s.channelAt[i]
}

// Group looks up a group by name.
func (s *Schema) Group(name string) (Group, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// GroupOf returns the group name a channel belongs to, or "".
func (s *Schema) GroupOf(channel string) string {
	for _, g := range s.Groups {
		for _, ch := range g.Channels {
			if ch == channel {
				return g.Name
			}
		}
	}
	return ""
}

// StatusOf returns the name of the status column paired with a pressure
// channel, if the schema has one.
func (s *Schema) StatusOf(channel string) (string, bool) {
	name := channel + StatusSuffix
	_, ok := s.positions[name]
	return name, ok
}
