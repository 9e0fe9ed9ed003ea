// Package balance resolves boss-versus-party combat: closed-form threat tables,
// the single-target damage simulator and the full encounter simulator.
package balance

import (
	"strings"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

// AttackKind distinguishes attack rolls against AC from save-for-half effects.
type AttackKind int

const (
	AttackRoll AttackKind = iota
	SavingThrow
)

// ParseAttackKind maps "save" to SavingThrow; everything else is an attack roll.
func ParseAttackKind(s string) AttackKind {
	if strings.EqualFold(strings.TrimSpace(s), "save") {
		return SavingThrow
	}
	return AttackRoll
}

func (k AttackKind) String() string {
	if k == SavingThrow {
		return "save"
	}
	return "attack"
}

// MarshalText implements encoding.TextMarshaler.
func (k AttackKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AttackKind) UnmarshalText(text []byte) error {
	*k = ParseAttackKind(string(text))
	return nil
}

// Attack is one entry of the boss's offense.
type Attack struct {
	Name         string
	Kind         AttackKind
	AttackBonus  int
	DC           int
	SaveStat     stats.Ability
	Damage       stats.DamageExpression
	UsesPerRound int
	Melee        bool
	Enabled      bool
}

// PartyMember is a roster entry. HP is the starting value of every trial.
type PartyMember struct {
	Name  string
	AC    int
	HP    int
	Saves stats.SaveBonuses
}

// DPREntry is a manual damage-per-round figure for one party member.
type DPREntry struct {
	Member string
	DPR    float64
}

// NovaEntry is a burst damage figure that is converted to sustained DPR
// through hit and crit chances and an uptime fraction.
type NovaEntry struct {
	Member      string
	NovaDPR     float64
	AttackBonus int
	RollMode    stats.RollMode
	TargetAC    int
	CritRatio   float64
	Uptime      float64
}

// InitiativeMode decides which side acts first in each round.
type InitiativeMode int

const (
	InitiativeRandom InitiativeMode = iota
	InitiativePartyFirst
	InitiativeBossFirst
)

// ParseInitiativeMode accepts "random", "party_first" and "boss_first".
// Unknown values are random.
func ParseInitiativeMode(s string) InitiativeMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "party_first", "party":
		return InitiativePartyFirst
	case "boss_first", "boss":
		return InitiativeBossFirst
	default:
		return InitiativeRandom
	}
}

func (m InitiativeMode) String() string {
	switch m {
	case InitiativePartyFirst:
		return "party_first"
	case InitiativeBossFirst:
		return "boss_first"
	default:
		return "random"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m InitiativeMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *InitiativeMode) UnmarshalText(text []byte) error {
	*m = ParseInitiativeMode(string(text))
	return nil
}

// LairAction fires every EveryN rounds against up to Targets living members.
type LairAction struct {
	Enabled   bool
	AvgDamage float64
	Targets   int
	EveryN    int
}

// RechargeAction fires each round with the probability given by its
// recharge text ("5-6", "6", ...).
type RechargeAction struct {
	Enabled   bool
	Recharge  string
	AvgDamage float64
	Targets   int
}

// Config is the immutable option snapshot for one run.
type Config struct {
	RollMode      stats.RollMode
	SpreadTargets int
	TempHP        stats.DamageExpression

	Lair     LairAction
	Recharge RechargeAction
	Rider    RiderConfig

	BossHP       float64
	ResistFactor float64
	Regen        float64

	// Single-target simulator bounds
	SingleRounds int
	SingleTrials int

	// Encounter simulator bounds
	Trials     int
	MaxRounds  int
	DPRCV      float64
	Initiative InitiativeMode
	UseNova    bool
}

// spread returns the target-spread count, at least 1.
func (c Config) spread() int {
	return max(1, c.SpreadTargets)
}

// resist returns the resistance divisor, kept away from zero.
func (c Config) resist() float64 {
	return max(1e-6, c.ResistFactor)
}

// tempHPAverage is the expected temporary hit points absorbed per hit.
func (c Config) tempHPAverage() float64 {
	return max(0, c.TempHP.Average())
}

// EnabledAttacks filters out disabled attacks.
func EnabledAttacks(attacks []Attack) []Attack {
	out := make([]Attack, 0, len(attacks))
	for _, a := range attacks {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}
