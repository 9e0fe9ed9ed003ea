package balance

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/bossbalance/internal/stats"
)

// trialChunk is the number of trials sharing one random source. The chunk
// layout depends only on the trial count, so a seed reproduces the same
// metrics for any number of workers.
const trialChunk = 256

// actionCV is the variation of lair and recharge damage.
const actionCV = 0.5

// Encounter is everything one encounter run needs.
type Encounter struct {
	Config  Config
	Party   []PartyMember
	Attacks []Attack
	DPR     []DPREntry
	Nova    []NovaEntry
}

// Validate checks the preconditions of an encounter run.
func (e Encounter) Validate() error {
	if len(e.Party) == 0 {
		return &ConfigError{Err: ErrNoParty, Reason: "add at least one party member"}
	}
	if len(EnabledAttacks(e.Attacks)) == 0 && !e.Config.Lair.Enabled && !e.Config.Recharge.Enabled {
		return &ConfigError{Err: ErrNoBossOffense, Reason: "enable at least one attack, the lair action or the recharge power"}
	}
	if len(e.EffectiveDPR()) == 0 {
		table := "manual DPR"
		if e.Config.UseNova {
			table = "nova DPR"
		}
		return &ConfigError{Err: ErrNoDPRSource, Reason: fmt.Sprintf("the %s table is empty", table)}
	}
	return nil
}

// RunOptions controls how a run is executed. Neither field changes what a
// run means: Workers only bounds parallelism.
type RunOptions struct {
	Seed    int64
	Workers int
}

// RunEncounter validates the encounter and simulates Config.Trials fights of
// up to Config.MaxRounds rounds each. Cancellation is checked between chunks.
func RunEncounter(ctx context.Context, e Encounter, opts RunOptions) (*Metrics, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	p := newPlan(e)
	trials := max(0, e.Config.Trials)
	ttk := make([]float64, trials)
	wiped := make([]bool, trials)
	downs := make([]int, trials)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for chunk, start := 0, 0; start < trials; chunk, start = chunk+1, start+trialChunk {
		end := min(trials, start+trialChunk)
		seed := chunkSeed(opts.Seed, chunk)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := stats.NewSource(seed)
			st := newTrialState(len(p.party))
			for i := start; i < end; i++ {
				ttk[i], wiped[i], downs[i] = p.runTrial(src, st)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return newMetrics(ttk, wiped, downs, e.Config.MaxRounds), nil
}

func chunkSeed(seed int64, chunk int) int64 {
	return seed ^ int64(uint64(chunk+1)*0x9E3779B97F4A7C15)
}

// plan is the read-only view of an encounter shared by every trial.
type plan struct {
	cfg       Config
	party     []PartyMember
	attacks   []Attack
	dprMeans  []float64
	base      []RollContext
	thp       float64
	rechargeP float64
}

func newPlan(e Encounter) *plan {
	p := &plan{
		cfg:       e.Config,
		party:     e.Party,
		attacks:   EnabledAttacks(e.Attacks),
		dprMeans:  make([]float64, len(e.Party)),
		base:      make([]RollContext, len(e.Party)),
		thp:       e.Config.tempHPAverage(),
		rechargeP: RechargeProbability(e.Config.Recharge.Recharge),
	}

	byName := make(map[string]float64)
	for _, row := range e.EffectiveDPR() {
		byName[row.Member] = row.DPR
	}
	for j, m := range e.Party {
		p.dprMeans[j] = byName[m.Name]
		p.base[j] = RollContext{AC: m.AC, Mode: e.Config.RollMode}
	}
	return p
}

// trialState is the mutable state of one trial, reused across the trials of a chunk.
type trialState struct {
	hp      []float64
	alive   []bool
	rider   []int
	struck  []bool
	ctx     []RollContext
	pool    []int
	living  []int
	targets []int
}

func newTrialState(n int) *trialState {
	return &trialState{
		hp:      make([]float64, n),
		alive:   make([]bool, n),
		rider:   make([]int, n),
		struck:  make([]bool, n),
		ctx:     make([]RollContext, n),
		pool:    make([]int, 0, n),
		living:  make([]int, 0, n),
		targets: make([]int, 0, n),
	}
}

// runTrial plays one fight. It returns the round the boss fell (+Inf if it
// survived the round cap), whether the party was wiped first and how many
// members were down when the boss fell.
func (p *plan) runTrial(src stats.Source, st *trialState) (ttk float64, wiped bool, downs int) {
	bossHP := p.cfg.BossHP
	if bossHP <= 0 {
		return 0, false, 0
	}
	st.reset(p.party)

	for rnd := 1; rnd <= p.cfg.MaxRounds; rnd++ {
		bossFirst := p.bossFirst(src)

		if !bossFirst {
			bossHP -= p.partyDamage(src, st)
			if bossHP <= 0 {
				return float64(rnd), false, st.downed()
			}
		}

		p.bossPhase(src, st, rnd)
		if st.downed() == len(p.party) {
			// Nobody is left to hurt the boss.
			return math.Inf(1), true, 0
		}

		if bossFirst {
			bossHP -= p.partyDamage(src, st)
			if bossHP <= 0 {
				return float64(rnd), false, st.downed()
			}
		}
	}
	return math.Inf(1), false, 0
}

func (p *plan) bossFirst(src stats.Source) bool {
	switch p.cfg.Initiative {
	case InitiativeBossFirst:
		return true
	case InitiativePartyFirst:
		return false
	default:
		return src.Float64() < 0.5
	}
}

// partyDamage draws every living member's damage for the round and returns
// what gets through resistance and regeneration.
func (p *plan) partyDamage(src stats.Source, st *trialState) float64 {
	total := 0.0
	for j := range p.party {
		if st.alive[j] {
			total += stats.Gamma(src, p.dprMeans[j], p.cfg.DPRCV)
		}
	}
	return max(0, total/p.cfg.resist()-p.cfg.Regen)
}

func (p *plan) bossPhase(src stats.Source, st *trialState, rnd int) {
	for j := range p.party {
		st.ctx[j] = p.cfg.Rider.Context(p.base[j], st.rider[j])
		st.struck[j] = false
	}

	st.pool = st.sampleLiving(src, p.cfg.spread(), st.pool)
	for _, a := range p.attacks {
		for use := 0; use < a.UsesPerRound; use++ {
			target, ok := st.pickTarget(src)
			if !ok {
				break
			}
			dmg, hit := resolveUse(src, a, st.ctx[target], p.party[target].Saves)
			if hit && p.cfg.Rider.Triggers(a) {
				st.struck[target] = true
			}
			st.damage(target, max(0, dmg-p.thp))
		}
	}

	if lair := p.cfg.Lair; lair.Enabled && rnd%max(1, lair.EveryN) == 0 {
		p.areaDamage(src, st, lair.Targets, lair.AvgDamage)
	}
	if rech := p.cfg.Recharge; rech.Enabled && src.Float64() < p.rechargeP {
		p.areaDamage(src, st, rech.Targets, rech.AvgDamage)
	}

	for j := range p.party {
		st.rider[j] = p.cfg.Rider.Advance(st.rider[j], st.struck[j])
	}
}

// areaDamage hits up to n distinct living members with gamma-distributed damage.
func (p *plan) areaDamage(src stats.Source, st *trialState, n int, avg float64) {
	st.targets = st.sampleLiving(src, n, st.targets)
	for _, j := range st.targets {
		st.damage(j, max(0, stats.Gamma(src, avg, actionCV)-p.thp))
	}
}

// reset starts a trial with every member standing at full HP, including
// members entered with 0 HP, who only drop once damaged.
func (st *trialState) reset(party []PartyMember) {
	for j, m := range party {
		st.hp[j] = float64(m.HP)
		st.alive[j] = true
		st.rider[j] = 0
	}
}

func (st *trialState) damage(j int, amount float64) {
	st.hp[j] -= amount
	if st.hp[j] <= 0 {
		st.alive[j] = false
	}
}

func (st *trialState) downed() int {
	n := 0
	for _, a := range st.alive {
		if !a {
			n++
		}
	}
	return n
}

// sampleLiving fills dst with up to n distinct living members chosen
// uniformly without replacement.
func (st *trialState) sampleLiving(src stats.Source, n int, dst []int) []int {
	st.living = st.living[:0]
	for j, a := range st.alive {
		if a {
			st.living = append(st.living, j)
		}
	}
	k := min(max(0, n), len(st.living))
	for i := 0; i < k; i++ {
		r := i + src.Intn(len(st.living)-i)
		st.living[i], st.living[r] = st.living[r], st.living[i]
	}
	return append(dst[:0], st.living[:k]...)
}

// pickTarget chooses one target for an attack use from the round's pool,
// falling back to any living member once the whole pool is down.
func (st *trialState) pickTarget(src stats.Source) (int, bool) {
	st.living = st.living[:0]
	for _, j := range st.pool {
		if st.alive[j] {
			st.living = append(st.living, j)
		}
	}
	if len(st.living) == 0 {
		for j, a := range st.alive {
			if a {
				st.living = append(st.living, j)
			}
		}
	}
	if len(st.living) == 0 {
		return 0, false
	}
	return st.living[src.Intn(len(st.living))], true
}
