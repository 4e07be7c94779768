package engine

// LightsOut is the two player Lights Out variant. On each turn the moving
// player picks an ON cell; that cell and its right and lower neighbours are
// toggled. The player who switches off the last light wins.
type LightsOut struct {
	*matchState

	// changes is the append-only flip log
	changes []Change
}

// NewLightsOut creates a lights match from map text. A Lights Out board is
// defined by its ON cells, so the map is always read in scenario mode.
func NewLightsOut(mapText string, opts Options) (*LightsOut, error) {
	data, err := ParseMap(Lights, mapText, true)
	if err != nil {
		return nil, err
	}
	state, err := newMatchState(Lights, data, opts)
	if err != nil {
		return nil, err
	}
	return &LightsOut{matchState: state}, nil
}

// IsPlayersTurn reports whether player moves this turn; players alternate,
// with player 0 moving on odd turns.
func (g *LightsOut) IsPlayersTurn(player int) bool {
	if !g.IsAlive(player) {
		return false
	}
	return (g.turn+1)%2 == player
}

// FinishTurn applies the stored orders of every player owning the turn
func (g *LightsOut) FinishTurn() error {
	if g.phase != TurnActive {
		return ErrNoActiveTurn
	}
	for p := 0; p < g.numPlayers; p++ {
		if !g.IsPlayersTurn(p) {
			continue
		}
		for _, loc := range g.orders[p] {
			g.press(loc)
		}
	}
	g.phase = BetweenTurns
	g.recordScores()
	return nil
}

// press toggles loc and its right and lower neighbours
func (g *LightsOut) press(loc Location) {
	g.flip(loc)
	g.flip(Location{Row: loc.Row, Col: loc.Col + 1})
	g.flip(Location{Row: loc.Row + 1, Col: loc.Col})
}

// flip toggles a single cell and logs it; out of bounds is a no-op
func (g *LightsOut) flip(loc Location) {
	state, err := g.board.Get(loc)
	if err != nil {
		return
	}
	if state == On {
		state = Off
	} else {
		state = On
	}
	_ = g.board.Set(loc, state)
	g.changes = append(g.changes, Change{Loc: loc, Turn: g.turn})
}

// RankStabilized reports whether every light is off
func (g *LightsOut) RankStabilized() bool {
	return g.board.Count(On) == 0
}

// GameOver reports whether the match has ended and records the cutoff.
// Player count conditions take precedence over a dark board.
func (g *LightsOut) GameOver() bool {
	if g.phase == GameOver {
		return true
	}
	if g.survivorCutoff() {
		return true
	}
	if g.RankStabilized() {
		g.setCutoff(CutoffRankStabilized)
		return true
	}
	return false
}

// FinishGame settles final scores. When the board went dark the player who
// made the last move scores 100; with a single seat that index may not
// exist, and then nobody is awarded.
func (g *LightsOut) FinishGame() {
	if g.phase == GameOver {
		return
	}
	switch g.cutoff {
	case "":
		g.setCutoff(CutoffTurnLimit)
	case CutoffRankStabilized:
		if winner := (g.turn + 1) % 2; winner < g.numPlayers {
			g.score[winner] = 100
		}
	default:
		g.rewardSurvivors()
	}
	g.recordScores()
	g.phase = GameOver
}

// Changes returns a copy of the flip log in application order
func (g *LightsOut) Changes() []Change {
	return append([]Change(nil), g.changes...)
}

// Replay builds the summary record of the match
func (g *LightsOut) Replay() *Replay {
	r := g.replayBase()
	r.Changes = ChangeEvents(g.changes)
	return r
}
