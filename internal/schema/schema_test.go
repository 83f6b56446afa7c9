package schema

import (
	"strings"
	"testing"

	"github.com/lnies/pressure-display/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, 49, s.Width())
	assert.True(t, s.HasIndex())
	assert.Equal(t, 0, s.Position("VI"))
	assert.Equal(t, 1, s.DatePos())
	assert.Equal(t, 2, s.TimePos())
	assert.Equal(t, -1, s.Position("Nope"))

	channels := s.Channels()
	require.Len(t, channels, 46)
	assert.Equal(t, models.Channel{Name: "Alkali", Kind: models.ChannelKindPressure}, channels[0])
	assert.Equal(t, models.Channel{Name: "Alkali_status", Kind: models.ChannelKindStatus}, channels[1])
	assert.Equal(t, models.Channel{Name: "LIS_status", Kind: models.ChannelKindStatus}, channels[45])
	assert.Equal(t, 3, s.ChannelColumn(0))
	assert.Equal(t, 48, s.ChannelColumn(45))
}

func TestDefaultGroups(t *testing.T) {
	s := Default()

	hv, ok := s.Group(GroupHighVacuum)
	require.True(t, ok)
	assert.Len(t, hv.Channels, 14)
	assert.Contains(t, hv.Channels, "MR-ToF_UHV")

	rough, ok := s.Group(GroupRoughing)
	require.True(t, ok)
	assert.Len(t, rough.Channels, 9)
	assert.Equal(t, "Rough0", rough.Channels[0])

	assert.Equal(t, GroupHighVacuum, s.GroupOf("Helium"))
	assert.Equal(t, GroupRoughing, s.GroupOf("IsepPrevac1"))
	assert.Equal(t, "", s.GroupOf("Alkali_status"))

	_, ok = s.Group("turbo")
	assert.False(t, ok)

	status, ok := s.StatusOf("Cube")
	assert.True(t, ok)
	assert.Equal(t, "Cube_status", status)
}

func TestChannelsReturnsCopy(t *testing.T) {
	s := Default()
	channels := s.Channels()
	channels[0].Name = "mutated"
	assert.Equal(t, "Alkali", s.Channels()[0].Name)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		index   string
		groups  []Group
		wantErr string
	}{
		{"no columns", nil, "", nil, "no columns"},
		{"duplicate column", []string{"D", "T", "A", "A"}, "", nil, "duplicate column"},
		{"index not first", []string{"D", "T", "VI", "A"}, "VI", nil, "must be the first column"},
		{"missing index", []string{"D", "T", "A"}, "VI", nil, "index column"},
		{"no channels", []string{"D", "T"}, "", nil, "no channel columns"},
		{"unknown group channel", []string{"D", "T", "A"}, "", []Group{{Name: "g", Channels: []string{"B"}}}, "unknown channel"},
		{"status in group", []string{"D", "T", "A", "A_status"}, "", []Group{{Name: "g", Channels: []string{"A_status"}}}, "status column"},
		{"date in group", []string{"D", "T", "A"}, "", []Group{{Name: "g", Channels: []string{"D"}}}, "is not a channel"},
		{"channel in two groups", []string{"D", "T", "A"}, "", []Group{{Name: "g1", Channels: []string{"A"}}, {Name: "g2", Channels: []string{"A"}}}, "in groups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns, tt.index, "D", "T", tt.groups)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromReader(t *testing.T) {
	t.Run("custom schema", func(t *testing.T) {
		content := `
index: idx
date: day
time: clock
columns: [idx, day, clock, Turbo, Turbo_status, Fore]
groups:
  - name: high_vacuum
    label: HV
    channels: [Turbo]
  - name: roughing
    label: Rough
    channels: [Fore]
`
		s, err := LoadFromReader(strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, 6, s.Width())
		assert.Equal(t, 1, s.DatePos())
		assert.Len(t, s.Channels(), 3)
		assert.Equal(t, GroupRoughing, s.GroupOf("Fore"))
	})

	t.Run("empty document falls back to defaults", func(t *testing.T) {
		s, err := LoadFromReader(strings.NewReader("{}"))
		require.NoError(t, err)
		assert.Equal(t, 49, s.Width())
		assert.True(t, s.HasIndex())
		assert.Len(t, s.Groups, 2)
	})

	t.Run("groups as a name to channels mapping", func(t *testing.T) {
		content := `
groups:
  high_vacuum: [Alkali, Cube]
  roughing: [Rough0]
`
		s, err := LoadFromReader(strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, s.Groups, 2)
		assert.Equal(t, Group{Name: GroupHighVacuum, Label: "High vacuum", Channels: []string{"Alkali", "Cube"}}, s.Groups[0])
		assert.Equal(t, GroupRoughing, s.Groups[1].Name)
		assert.Equal(t, GroupRoughing, s.GroupOf("Rough0"))
		assert.Empty(t, s.GroupOf("Helium"))
	})

	t.Run("mapping with an unknown group name keeps the name as label", func(t *testing.T) {
		s, err := LoadFromReader(strings.NewReader("groups:\n  cryo: [Cryopot, Cryopump]\n"))
		require.NoError(t, err)
		g, ok := s.Group("cryo")
		require.True(t, ok)
		assert.Equal(t, "cryo", g.Label)
	})

	t.Run("groups of the wrong shape", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("groups: high_vacuum"))
		assert.Error(t, err)
	})

	t.Run("missing index defaults when VI is a column", func(t *testing.T) {
		s, err := LoadFromReader(strings.NewReader("columns: [VI, Datetime, Time, Alkali, Alkali_status]\ngroups: []"))
		require.NoError(t, err)
		assert.True(t, s.HasIndex())
		assert.Equal(t, "VI", s.Index)
		for _, ch := range s.Channels() {
			assert.NotEqual(t, "VI", ch.Name)
		}
		assert.Len(t, s.Channels(), 2)
	})

	t.Run("explicit empty index means no index column", func(t *testing.T) {
		s, err := LoadFromReader(strings.NewReader("index: \"\"\ncolumns: [Datetime, Time, Alkali]\ngroups: []"))
		require.NoError(t, err)
		assert.False(t, s.HasIndex())
		assert.Len(t, s.Channels(), 1)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("columns: [a"))
		assert.Error(t, err)
	})

	t.Run("invalid schema", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("columns: [Datetime, Time, A]\ngroups: [{name: g, channels: [B]}]"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid schema")
	})
}
