package engine

// LifeGame is the two player Game of Life variant. Players take turns placing
// cells on empty squares; when the match ends by turn limit the board is run
// through SimSteps generations and each player scores its surviving cells.
type LifeGame struct {
	*matchState

	// live is the index-keyed store of cells currently on the board
	live map[Location]Cell
	// born is the append-only log of cells created by orders, in order
	born []Cell
}

// NewLifeGame creates a life match from map text. Pre-populated cells are
// only accepted when opts.Scenario is set.
func NewLifeGame(mapText string, opts Options) (*LifeGame, error) {
	data, err := ParseMap(Life, mapText, opts.Scenario)
	if err != nil {
		return nil, err
	}
	state, err := newMatchState(Life, data, opts)
	if err != nil {
		return nil, err
	}
	g := &LifeGame{matchState: state, live: make(map[Location]Cell)}
	for _, c := range data.Cells {
		g.live[c.Loc] = Cell{Loc: c.Loc, Owner: int(c.State), SpawnTurn: 0}
	}
	return g, nil
}

// IsPlayersTurn reports whether player may place a cell this turn. Ownership
// follows the parity of the number of live cells, not the turn number.
func (g *LifeGame) IsPlayersTurn(player int) bool {
	if !g.IsAlive(player) {
		return false
	}
	return len(g.live)%2 == player
}

// FinishTurn applies the stored orders of the player owning the turn
func (g *LifeGame) FinishTurn() error {
	if g.phase != TurnActive {
		return ErrNoActiveTurn
	}
	// ownership is fixed before any birth changes the parity
	movers := make([]bool, g.numPlayers)
	for p := range movers {
		movers[p] = g.IsPlayersTurn(p)
	}
	for p := 0; p < g.numPlayers; p++ {
		if !movers[p] {
			continue
		}
		for _, loc := range g.orders[p] {
			// a repeated order line passes validation twice
			if _, taken := g.live[loc]; taken {
				continue
			}
			if err := g.board.Set(loc, Owner(p)); err != nil {
				return err
			}
			cell := Cell{Loc: loc, Owner: p, SpawnTurn: g.turn}
			g.live[loc] = cell
			g.born = append(g.born, cell)
		}
	}
	g.phase = BetweenTurns
	g.recordScores()
	return nil
}

// GameOver reports whether the match has ended and records the cutoff
func (g *LifeGame) GameOver() bool {
	if g.phase == GameOver {
		return true
	}
	return g.survivorCutoff()
}

// FinishGame settles final scores. A match that ran to its turn limit is
// simulated and scored by live cells; any other cutoff means a bot failed,
// and every remaining player gets the maximum score.
func (g *LifeGame) FinishGame() {
	if g.phase == GameOver {
		return
	}
	if g.cutoff == "" {
		g.setCutoff(CutoffTurnLimit)
		g.Simulate(g.opts.SimSteps)
		for _, c := range g.live {
			g.score[c.Owner]++
		}
	} else {
		g.rewardSurvivors()
	}
	g.recordScores()
	g.phase = GameOver
}

// Simulate advances the board by steps generations. Every generation is
// computed from a snapshot of the previous one and applied in one go.
func (g *LifeGame) Simulate(steps int) {
	for i := 0; i < steps; i++ {
		next := g.board.Clone()
		for r := 0; r < g.board.Height(); r++ {
			for c := 0; c < g.board.Width(); c++ {
				loc := Location{Row: r, Col: c}
				counts, _ := g.board.CountNeighborOwners(loc, g.numPlayers)
				total := 0
				for _, n := range counts {
					total += n
				}
				state := g.board.at(r, c)
				switch {
				case state != Empty && (total < 2 || total > 3):
					next.cells[r*next.width+c] = Empty
					delete(g.live, loc)
				case state == Empty && total == 3:
					owner := plurality(counts)
					next.cells[r*next.width+c] = Owner(owner)
					g.live[loc] = Cell{Loc: loc, Owner: owner, SpawnTurn: g.turn}
				}
			}
		}
		g.board = next
	}
}

// plurality returns the index of the largest count, lowest index on ties
func plurality(counts []int) int {
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
}

// LiveCells returns the number of cells each player currently owns
func (g *LifeGame) LiveCells() []int {
	out := make([]int, g.numPlayers)
	for _, c := range g.live {
		out[c.Owner]++
	}
	return out
}

// Born returns a copy of the birth log in application order
func (g *LifeGame) Born() []Cell {
	return append([]Cell(nil), g.born...)
}

// Replay builds the summary record of the match
func (g *LifeGame) Replay() *Replay {
	r := g.replayBase()
	r.Cells = CellEvents(g.born)
	return r
}
