package config

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Table rows accept the column headings of spreadsheet exports ("Attack
// bonus", "Uses/round", "Melee?") as well as the snake_case keys. Keys are
// matched after lower-casing and dropping everything but letters and digits.
var (
	memberColumns = map[string]string{
		"name": "name", "ac": "ac", "hp": "hp",
		"str": "str", "dex": "dex", "con": "con",
		"int": "int", "wis": "wis", "cha": "cha",
	}
	attackColumns = map[string]string{
		"name": "name", "type": "type",
		"attackbonus": "attack_bonus", "atkbonus": "attack_bonus",
		"dc": "dc", "save": "save", "damage": "damage",
		"usesperround": "uses_per_round", "usesround": "uses_per_round", "uses": "uses_per_round",
		"melee": "melee", "enabled": "enabled",
	}
	dprColumns = map[string]string{
		"member": "member", "name": "member", "dpr": "dpr",
	}
	novaColumns = map[string]string{
		"member": "member", "name": "member",
		"novadpr": "nova_dpr",
		"atkbonus": "atk_bonus", "attackbonus": "atk_bonus",
		"rollmode": "roll_mode", "mode": "roll_mode",
		"targetac": "target_ac",
		"critratio": "crit_ratio",
		"uptime": "uptime",
	}
)

func columnKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeRow renames the keys of a mapping node to the canonical column names
// and decodes it into out. A row whose keys are all unknown is an error.
func decodeRow(node *yaml.Node, table string, columns map[string]string, out any) error {
	if node.Kind != yaml.MappingNode {
		return node.Decode(out)
	}

	renamed := *node
	renamed.Content = make([]*yaml.Node, len(node.Content))
	known := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := *node.Content[i]
		if canon, ok := columns[columnKey(key.Value)]; ok {
			key.Value = canon
			known++
		}
		renamed.Content[i] = &key
		renamed.Content[i+1] = node.Content[i+1]
	}
	if len(node.Content) > 0 && known == 0 {
		return fmt.Errorf("line %d: %s row has no known columns", node.Line, table)
	}
	return renamed.Decode(out)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *MemberRow) UnmarshalYAML(node *yaml.Node) error {
	type row MemberRow
	return decodeRow(node, "party_table", memberColumns, (*row)(r))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *AttackRow) UnmarshalYAML(node *yaml.Node) error {
	type row AttackRow
	return decodeRow(node, "attacks_table", attackColumns, (*row)(r))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *DPRRow) UnmarshalYAML(node *yaml.Node) error {
	type row DPRRow
	return decodeRow(node, "party_dpr_table", dprColumns, (*row)(r))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *NovaRow) UnmarshalYAML(node *yaml.Node) error {
	type row NovaRow
	return decodeRow(node, "party_nova_table", novaColumns, (*row)(r))
}
