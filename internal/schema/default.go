package schema

const defaultIndex = "VI"

// The ISOLTRAP vacuum logger writes an index column, the date, the 12-hour
// clock and then a reading/status pair per gauge.
var defaultGauges = []string{
	"Alkali", "ISOLDE/Buncher", "Buncher/Isep1", "Buncher/Isep2",
	"MR-ToF_UHV", "Isep/Cube", "Cube", "Lower_Diff",
	"Upper_Diff", "Cryopot", "Cryopump",
	"MCP5", "Rough0", "Rough1",
	"IsepPrevac2", "IsepPrevac1",
	"Rough2", "Rough3", "Rough4",
	"Rough5", "Rough6", "Helium",
	"LIS",
}

var highVacuumGauges = []string{
	"Alkali", "ISOLDE/Buncher", "Buncher/Isep1", "Buncher/Isep2",
	"MR-ToF_UHV", "Isep/Cube", "Cube", "Lower_Diff", "Upper_Diff", "Cryopot", "Cryopump",
	"MCP5", "Helium", "LIS",
}

var roughingGauges = []string{
	"Rough0", "Rough1", "IsepPrevac2", "IsepPrevac1", "Rough2", "Rough3", "Rough4",
	"Rough5", "Rough6",
}

// DefaultColumns returns the full positional column list of the logger.
func DefaultColumns() []string {
	columns := []string{defaultIndex, "Datetime", "Time"}
	for _, gauge := range defaultGauges {
		columns = append(columns, gauge, gauge+StatusSuffix)
	}
	return columns
}

// DefaultGroups returns the static high-vacuum / roughing partition.
func DefaultGroups() []Group {
	return []Group{
		{Name: GroupHighVacuum, Label: "High vacuum", Channels: append([]string(nil), highVacuumGauges...)},
		{Name: GroupRoughing, Label: "Roughing / pre-vacuum", Channels: append([]string(nil), roughingGauges...)},
	}
}

// Default returns the built-in ISOLTRAP schema.
func Default() *Schema {
	s, err := New(DefaultColumns(), defaultIndex, "Datetime", "Time", DefaultGroups())
	if err != nil {
		panic("schema: invalid default schema: " + err.Error())
	}
	return s
}
