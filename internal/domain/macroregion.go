package domain

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// MacroRegionTable maps a macro-region name to the entities it groups.
type MacroRegionTable map[string][]string

// MacroRegions is the built-in table used by Filter and NewView. It partitions
// the 32 federal entities into six regions. Callers that load a table file
// pass it explicitly to FilterWith or View.WithMacroRegions; this variable is
// never reassigned.
var MacroRegions = MacroRegionTable{
	"NOROESTE":  {"BAJA CALIFORNIA", "BAJA CALIFORNIA SUR", "SONORA", "SINALOA", "CHIHUAHUA"},
	"NORESTE":   {"TAMAULIPAS", "NUEVO LEÓN", "COAHUILA", "SAN LUIS POTOSÍ", "ZACATECAS", "DURANGO"},
	"CENTRO":    {"CIUDAD DE MÉXICO", "ESTADO DE MÉXICO", "HIDALGO", "MORELOS", "PUEBLA", "TLAXCALA", "QUERÉTARO"},
	"OCCIDENTE": {"COLIMA", "MICHOACÁN", "NAYARIT", "JALISCO", "AGUASCALIENTES", "GUANAJUATO"},
	"SUR":       {"GUERRERO", "OAXACA", "CHIAPAS", "VERACRUZ", "TABASCO"},
	"PENÍNSULA": {"CAMPECHE", "QUINTANA ROO", "YUCATÁN"},
}

// Members returns the folded entity names of a macro-region, matched by folded
// name. Unknown names yield an empty set.
func (t MacroRegionTable) Members(name string) map[string]bool {
	want := foldName(name)
	set := make(map[string]bool)
	for macro, entities := range t {
		if foldName(macro) != want {
			continue
		}
		for _, e := range entities {
			set[foldName(e)] = true
		}
	}
	return set
}

// Names returns the macro-region names, sorted.
func (t MacroRegionTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadMacroRegions reads a macro-region table from a YAML mapping of
// region name to entity list.
func LoadMacroRegions(path string) (MacroRegionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macro-region file: %w", err)
	}
	var t MacroRegionTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse macro-region file: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("macro-region file %s defines no regions", path)
	}
	return t, nil
}
