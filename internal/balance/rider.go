package balance

import (
	"strings"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

// RiderKind is the status effect a qualifying boss hit leaves on its target.
type RiderKind int

const (
	RiderNone RiderKind = iota
	// RiderACPenalty lowers the target's AC by 2 while active.
	RiderACPenalty
	// RiderAdvantage gives the boss advantage on attack rolls against the target while active.
	RiderAdvantage
)

// riderACPenalty is the AC lost under RiderACPenalty.
const riderACPenalty = 2

// ParseRiderKind accepts the short names ("ac_penalty", "advantage") as well
// as the descriptive labels used by older profiles.
func ParseRiderKind(s string) RiderKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac_penalty", "ac", "-2 ac next round":
		return RiderACPenalty
	case "advantage", "adv", "grant advantage on melee next round":
		return RiderAdvantage
	default:
		return RiderNone
	}
}

func (k RiderKind) String() string {
	switch k {
	case RiderACPenalty:
		return "ac_penalty"
	case RiderAdvantage:
		return "advantage"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RiderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RiderKind) UnmarshalText(text []byte) error {
	*k = ParseRiderKind(string(text))
	return nil
}

// RollContext is what a boss attack roll is resolved against.
type RollContext struct {
	AC   int
	Mode stats.RollMode
}

// Apply returns the context modified by an active rider of this kind.
func (k RiderKind) Apply(ctx RollContext) RollContext {
	switch k {
	case RiderACPenalty:
		ctx.AC = max(1, ctx.AC-riderACPenalty)
	case RiderAdvantage:
		ctx.Mode = stats.RollAdvantage
	}
	return ctx
}

// RiderConfig selects the rider and how long it lasts.
type RiderConfig struct {
	Kind      RiderKind
	Duration  int
	MeleeOnly bool
}

// Context returns the roll context for a target whose rider counter is remaining.
func (r RiderConfig) Context(base RollContext, remaining int) RollContext {
	if remaining <= 0 {
		return base
	}
	return r.Kind.Apply(base)
}

// Triggers reports whether a hit by the attack starts the rider.
func (r RiderConfig) Triggers(a Attack) bool {
	return r.Kind != RiderNone && (a.Melee || !r.MeleeOnly)
}

// Advance moves one rider counter past the end of a round.
func (r RiderConfig) Advance(remaining int, struck bool) int {
	if struck {
		return max(0, r.Duration)
	}
	return max(0, remaining-1)
}
