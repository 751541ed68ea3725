package domain

// Phase is the state of the convergence loop.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSeeded    Phase = "seeded"
	PhaseExpanding Phase = "expanding"
	PhaseConverged Phase = "converged"
)

// StopReason records why the loop reached PhaseConverged.
type StopReason string

const (
	StopNone        StopReason = ""
	StopConverged   StopReason = "converged"
	StopEmptySeed   StopReason = "empty_seed"
	StopMaxRounds   StopReason = "max_rounds"
	StopInterrupted StopReason = "interrupted"
)

// ShouldContinue reports whether another round is needed.
func ShouldContinue(prevSize, currSize int) bool {
	return currSize > prevSize
}

// Gate drives the seeded -> expanding -> converged state machine.
// PhaseConverged is terminal.
type Gate struct {
	maxRounds int

	phase  Phase
	reason StopReason
	prev   int
	curr   int
	rounds int
}

// NewGate returns a gate in PhaseIdle. maxRounds <= 0 means unlimited.
func NewGate(maxRounds int) *Gate {
	if maxRounds < 0 {
		maxRounds = 0
	}
	return &Gate{maxRounds: maxRounds, phase: PhaseIdle}
}

// Seed records the size of the seeded frontier. A zero-size seed converges
// immediately so the loop never spins on nothing.
func (g *Gate) Seed(size int) Phase {
	if g.phase != PhaseIdle {
		return g.phase
	}
	g.prev, g.curr = 0, size
	if !ShouldContinue(0, size) {
		g.converge(StopEmptySeed)
		return g.phase
	}
	g.phase = PhaseSeeded
	return g.phase
}

// Observe records the frontier size after a round and decides whether the
// loop goes on.
func (g *Gate) Observe(size int) Phase {
	if g.phase == PhaseConverged || g.phase == PhaseIdle {
		return g.phase
	}

	g.rounds++
	g.prev, g.curr = g.curr, size

	switch {
	case !ShouldContinue(g.prev, g.curr):
		g.converge(StopConverged)
	case g.maxRounds > 0 && g.rounds >= g.maxRounds:
		g.converge(StopMaxRounds)
	default:
		g.phase = PhaseExpanding
	}
	return g.phase
}

// Halt forces convergence, e.g. on interrupt. It is a no-op once converged.
func (g *Gate) Halt(reason StopReason) {
	if g.phase == PhaseConverged {
		return
	}
	g.converge(reason)
}

func (g *Gate) converge(reason StopReason) {
	g.phase = PhaseConverged
	g.reason = reason
}

func (g *Gate) Phase() Phase            { return g.phase }
func (g *Gate) Reason() StopReason      { return g.reason }
func (g *Gate) Rounds() int             { return g.rounds }
func (g *Gate) Sizes() (prev, curr int) { return g.prev, g.curr }

// Continue reports whether another round should be dispatched.
func (g *Gate) Continue() bool {
	return g.phase == PhaseSeeded || g.phase == PhaseExpanding
}
