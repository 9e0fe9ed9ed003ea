package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/bossbalance/internal/balance"
	"github.com/lawnchairsociety/bossbalance/internal/stats"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
	"gopkg.in/yaml.v3"
)

// Profile is a saved encounter setup: the option values plus the party,
// boss attack, manual DPR and nova tables. Files may be YAML or JSON.
type Profile struct {
	Label   string `yaml:"label,omitempty" json:"label,omitempty"`
	Options `yaml:",inline"`

	Party   []MemberRow `yaml:"party_table" json:"party_table"`
	Attacks []AttackRow `yaml:"attacks_table" json:"attacks_table"`
	DPR     []DPRRow    `yaml:"party_dpr_table" json:"party_dpr_table"`
	Nova    []NovaRow   `yaml:"party_nova_table" json:"party_nova_table"`
}

// Options holds the scalar settings of a profile.
type Options struct {
	Mode           string  `yaml:"mode_select" json:"mode_select"`
	SpreadTargets  int     `yaml:"spread_targets" json:"spread_targets"`
	TempHP         string  `yaml:"thp_expr" json:"thp_expr"`
	LairEnabled    bool    `yaml:"lair_enabled" json:"lair_enabled"`
	LairAvg        float64 `yaml:"lair_avg" json:"lair_avg"`
	LairTargets    int     `yaml:"lair_targets" json:"lair_targets"`
	LairEveryN     int     `yaml:"lair_every_n" json:"lair_every_n"`
	RechEnabled    bool    `yaml:"rech_enabled" json:"rech_enabled"`
	RechargeText   string  `yaml:"recharge_text" json:"recharge_text"`
	RechAvg        float64 `yaml:"rech_avg" json:"rech_avg"`
	RechTargets    int     `yaml:"rech_targets" json:"rech_targets"`
	RiderMode      string  `yaml:"rider_mode" json:"rider_mode"`
	RiderDuration  int     `yaml:"rider_duration" json:"rider_duration"`
	RiderMeleeOnly bool    `yaml:"rider_melee_only" json:"rider_melee_only"`
	BossHP         float64 `yaml:"boss_hp" json:"boss_hp"`
	ResistFactor   float64 `yaml:"resist_factor" json:"resist_factor"`
	BossRegen      float64 `yaml:"boss_regen" json:"boss_regen"`
	MCRounds       int     `yaml:"mc_rounds" json:"mc_rounds"`
	MCTrials       int     `yaml:"mc_trials" json:"mc_trials"`
	EncTrials      int     `yaml:"enc_trials" json:"enc_trials"`
	EncMaxRounds   int     `yaml:"enc_max_rounds" json:"enc_max_rounds"`
	EncUseNova     bool    `yaml:"enc_use_nova" json:"enc_use_nova"`
	DPRCV          float64 `yaml:"dpr_cv" json:"dpr_cv"`
	InitiativeMode string  `yaml:"initiative_mode" json:"initiative_mode"`
	TuneTarget     float64 `yaml:"tune_target_median" json:"tune_target_median"`
	TuneTPKCap     float64 `yaml:"tune_tpk_cap" json:"tune_tpk_cap"`
}

// MemberRow is one row of the party table.
type MemberRow struct {
	Name string `yaml:"name" json:"name"`
	AC   *int   `yaml:"ac" json:"ac"`
	HP   *int   `yaml:"hp" json:"hp"`
	STR  int    `yaml:"str" json:"str"`
	DEX  int    `yaml:"dex" json:"dex"`
	CON  int    `yaml:"con" json:"con"`
	INT  int    `yaml:"int" json:"int"`
	WIS  int    `yaml:"wis" json:"wis"`
	CHA  int    `yaml:"cha" json:"cha"`
}

// AttackRow is one row of the boss attack table.
type AttackRow struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	AttackBonus int    `yaml:"attack_bonus" json:"attack_bonus"`
	DC          int    `yaml:"dc" json:"dc"`
	Save        string `yaml:"save" json:"save"`
	Damage      string `yaml:"damage" json:"damage"`
	Uses        *int   `yaml:"uses_per_round" json:"uses_per_round"`
	Melee       *bool  `yaml:"melee" json:"melee"`
	Enabled     *bool  `yaml:"enabled" json:"enabled"`
}

// DPRRow is one row of the manual DPR table.
type DPRRow struct {
	Member string  `yaml:"member" json:"member"`
	DPR    float64 `yaml:"dpr" json:"dpr"`
}

// NovaRow is one row of the nova DPR table.
type NovaRow struct {
	Member      string   `yaml:"member" json:"member"`
	NovaDPR     float64  `yaml:"nova_dpr" json:"nova_dpr"`
	AttackBonus int      `yaml:"atk_bonus" json:"atk_bonus"`
	RollMode    string   `yaml:"roll_mode" json:"roll_mode"`
	TargetAC    int      `yaml:"target_ac" json:"target_ac"`
	CritRatio   *float64 `yaml:"crit_ratio" json:"crit_ratio"`
	Uptime      *float64 `yaml:"uptime" json:"uptime"`
}

// Row defaults applied when a field is missing.
const (
	defaultAC        = 10
	defaultHP        = 1
	defaultDamage    = "1d6"
	defaultCritRatio = 1.5
	defaultUptime    = 0.85
)

// DefaultOptions returns the option values of a fresh profile.
func DefaultOptions() Options {
	return Options{
		Mode:           "normal",
		SpreadTargets:  1,
		TempHP:         "1d6+4",
		LairAvg:        6,
		LairTargets:    2,
		LairEveryN:     2,
		RechargeText:   "5-6",
		RechAvg:        22,
		RechTargets:    1,
		RiderMode:      "none",
		RiderDuration:  1,
		RiderMeleeOnly: true,
		BossHP:         150,
		ResistFactor:   1,
		BossRegen:      0,
		MCRounds:       3,
		MCTrials:       10000,
		EncTrials:      10000,
		EncMaxRounds:   12,
		EncUseNova:     false,
		DPRCV:          0.6,
		InitiativeMode: "random",
		TuneTarget:     4,
		TuneTPKCap:     0.05,
	}
}

func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func defaultParty() []MemberRow {
	return []MemberRow{
		{Name: "Fighter", AC: intPtr(18), HP: intPtr(40), STR: 4, DEX: 2, CON: 3, INT: 0, WIS: 1, CHA: 0},
		{Name: "Rogue", AC: intPtr(16), HP: intPtr(35), STR: 0, DEX: 5, CON: 2, INT: 1, WIS: 2, CHA: 1},
		{Name: "Cleric", AC: intPtr(19), HP: intPtr(38), STR: 3, DEX: 0, CON: 3, INT: 1, WIS: 4, CHA: 2},
		{Name: "Wizard", AC: intPtr(13), HP: intPtr(30), STR: 0, DEX: 3, CON: 2, INT: 5, WIS: 2, CHA: 1},
	}
}

func defaultAttacks() []AttackRow {
	return []AttackRow{
		{Name: "Bite", Type: "attack", AttackBonus: 7, Save: "DEX", Damage: "2d10+5", Uses: intPtr(1), Melee: boolPtr(true), Enabled: boolPtr(true)},
		{Name: "Claw", Type: "attack", AttackBonus: 7, Save: "DEX", Damage: "2d6+5", Uses: intPtr(2), Melee: boolPtr(true), Enabled: boolPtr(true)},
		{Name: "Fire Breath", Type: "save", DC: 15, Save: "DEX", Damage: "8d6", Uses: intPtr(1), Melee: boolPtr(false), Enabled: boolPtr(true)},
	}
}

func defaultDPR() []DPRRow {
	return []DPRRow{{Member: "Fighter", DPR: 15}}
}

func defaultNova() []NovaRow {
	return []NovaRow{{Member: "Fighter", NovaDPR: 25, AttackBonus: 8, RollMode: "normal", TargetAC: 17,
		CritRatio: floatPtr(1.5), Uptime: floatPtr(0.9)}}
}

// DefaultProfile returns a new profile with the stock roster and boss kit.
// Every call builds fresh tables.
func DefaultProfile() *Profile {
	return &Profile{
		Options: DefaultOptions(),
		Party:   defaultParty(),
		Attacks: defaultAttacks(),
		DPR:     defaultDPR(),
		Nova:    defaultNova(),
	}
}

// ParseProfile decodes a YAML or JSON profile. Missing options keep their
// defaults and an empty table is replaced by the default table.
func ParseProfile(data []byte) (*Profile, error) {
	p := &Profile{Options: DefaultOptions()}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	p.fillTables()
	return p, nil
}

// LoadProfile reads a profile file. An empty path yields the default profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SaveProfile writes the profile as YAML.
func (p *Profile) SaveProfile(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *Profile) fillTables() {
	if len(p.Party) == 0 {
		p.Party = defaultParty()
	}
	if len(p.Attacks) == 0 {
		p.Attacks = defaultAttacks()
	}
	if len(p.DPR) == 0 {
		p.DPR = defaultDPR()
	}
	if len(p.Nova) == 0 {
		p.Nova = defaultNova()
	}
}

// Config maps the options to a simulation config.
func (o Options) Config() balance.Config {
	return balance.Config{
		RollMode:      stats.ParseRollMode(o.Mode),
		SpreadTargets: o.SpreadTargets,
		TempHP:        stats.ParseDamage(o.TempHP),
		Lair: balance.LairAction{
			Enabled:   o.LairEnabled,
			AvgDamage: o.LairAvg,
			Targets:   o.LairTargets,
			EveryN:    o.LairEveryN,
		},
		Recharge: balance.RechargeAction{
			Enabled:   o.RechEnabled,
			Recharge:  o.RechargeText,
			AvgDamage: o.RechAvg,
			Targets:   o.RechTargets,
		},
		Rider: balance.RiderConfig{
			Kind:      balance.ParseRiderKind(o.RiderMode),
			Duration:  o.RiderDuration,
			MeleeOnly: o.RiderMeleeOnly,
		},
		BossHP:       o.BossHP,
		ResistFactor: o.ResistFactor,
		Regen:        o.BossRegen,
		SingleRounds: o.MCRounds,
		SingleTrials: o.MCTrials,
		Trials:       o.EncTrials,
		MaxRounds:    o.EncMaxRounds,
		DPRCV:        o.DPRCV,
		Initiative:   balance.ParseInitiativeMode(o.InitiativeMode),
		UseNova:      o.EncUseNova,
	}
}

// Encounter builds the typed encounter the simulators run.
func (p *Profile) Encounter() balance.Encounter {
	enc := balance.Encounter{Config: p.Options.Config()}

	for _, r := range p.Party {
		m := balance.PartyMember{
			Name:  strings.TrimSpace(r.Name),
			AC:    defaultAC,
			HP:    defaultHP,
			Saves: stats.SaveBonuses{r.STR, r.DEX, r.CON, r.INT, r.WIS, r.CHA},
		}
		if r.AC != nil {
			m.AC = *r.AC
		}
		if r.HP != nil {
			m.HP = *r.HP
		}
		enc.Party = append(enc.Party, m)
	}

	for _, r := range p.Attacks {
		a := balance.Attack{
			Name:         r.Name,
			Kind:         balance.ParseAttackKind(r.Type),
			AttackBonus:  r.AttackBonus,
			DC:           r.DC,
			UsesPerRound: 1,
			Melee:        true,
			Enabled:      true,
		}
		if strings.TrimSpace(a.Name) == "" {
			a.Name = "Attack"
		}
		a.SaveStat, _ = stats.ParseAbility(r.Save)
		damage := r.Damage
		if strings.TrimSpace(damage) == "" {
			damage = defaultDamage
		}
		a.Damage = stats.ParseDamage(damage)
		if r.Uses != nil {
			a.UsesPerRound = max(0, *r.Uses)
		}
		if r.Melee != nil {
			a.Melee = *r.Melee
		}
		if r.Enabled != nil {
			a.Enabled = *r.Enabled
		}
		enc.Attacks = append(enc.Attacks, a)
	}

	for _, r := range p.DPR {
		enc.DPR = append(enc.DPR, balance.DPREntry{Member: strings.TrimSpace(r.Member), DPR: r.DPR})
	}

	for _, r := range p.Nova {
		n := balance.NovaEntry{
			Member:      strings.TrimSpace(r.Member),
			NovaDPR:     r.NovaDPR,
			AttackBonus: r.AttackBonus,
			RollMode:    stats.ParseRollMode(r.RollMode),
			TargetAC:    r.TargetAC,
			CritRatio:   defaultCritRatio,
			Uptime:      defaultUptime,
		}
		if r.CritRatio != nil {
			n.CritRatio = *r.CritRatio
		}
		if r.Uptime != nil {
			n.Uptime = min(1, max(0, *r.Uptime))
		}
		enc.Nova = append(enc.Nova, n)
	}

	return enc
}

// TuneOptions returns the tuner settings of the profile.
func (p *Profile) TuneOptions(seed int64, workers int) tuner.Options {
	return tuner.Options{
		TargetMedian: p.TuneTarget,
		TPKCap:       p.TuneTPKCap,
		Seed:         seed,
		Workers:      workers,
	}
}
