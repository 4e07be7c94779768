package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/match"
)

var (
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrPlayerEliminated = errors.New("player has been eliminated")
	ErrAutomatedMatch   = errors.New("match is driven by bots")
	ErrMatchInProgress  = errors.New("match has not finished")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Event names sent to the notifier
const (
	EventTurnUpdate = "turn_update"
	EventGameOver   = "game_over"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	maps     MapManager
	results  ResultStore
	notifier Notifier
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithResultStore records finished matches in store
func WithResultStore(store ResultStore) Option {
	return func(s *gameServiceImpl) {
		s.results = store
	}
}

// WithNotifier sends match events to n
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) {
		s.notifier = n
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, maps MapManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		maps:     maps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveVariant defaults an empty game name to life
func resolveVariant(v engine.Variant) (engine.Variant, error) {
	if v == "" {
		return engine.Life, nil
	}
	return engine.ParseVariant(string(v))
}

// matchOptions overlays request values on the map manager defaults
func (s *gameServiceImpl) matchOptions(turns, simSteps int, seed int64, scenario bool) (engine.Options, error) {
	if turns < 0 || simSteps < 0 {
		return engine.Options{}, fmt.Errorf("%w: turns and sim_steps must not be negative", ErrInvalidRequest)
	}
	opts := s.maps.DefaultOptions()
	if turns > 0 {
		opts.Turns = turns
	}
	if simSteps > 0 {
		opts.SimSteps = simSteps
	}
	if seed != 0 {
		opts.EngineSeed = seed
		opts.PlayerSeed = seed
	}
	opts.Scenario = scenario
	return opts, nil
}

// CreateMatch creates a match and starts its first turn
func (s *gameServiceImpl) CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchInfo, error) {
	variant, err := resolveVariant(req.Game)
	if err != nil {
		return nil, err
	}
	m, err := s.maps.LoadMap(variant, req.Map)
	if err != nil {
		return nil, err
	}
	opts, err := s.matchOptions(req.Turns, req.SimSteps, req.Seed, req.Scenario)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(m, opts, req.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()
	if err := sess.Game.StartTurn(); err != nil {
		return nil, err
	}
	sess.Touch()

	log.Info().Str("match_id", sess.ID).Str("game", string(variant)).Str("map", m.Name).Msg("match started")
	return buildMatchInfo(sess), nil
}

// GetMatch returns the current view of a match
func (s *gameServiceImpl) GetMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return buildMatchInfo(sess), nil
}

// ListMatches returns every in-memory match
func (s *gameServiceImpl) ListMatches(ctx context.Context) ([]*MatchInfo, error) {
	sessions := s.sessions.List()
	result := make([]*MatchInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		result = append(result, buildMatchInfo(sess))
		sess.Unlock()
	}
	return result, nil
}

// DeleteMatch removes a match and its saved replay
func (s *gameServiceImpl) DeleteMatch(ctx context.Context, matchID string) error {
	return s.sessions.Delete(matchID)
}

// PlayerState returns what the seat's bot would receive this turn
func (s *gameServiceImpl) PlayerState(ctx context.Context, matchID string, player int) (string, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return "", err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.Game.PlayerState(player)
}

// manualSeat checks that a seat may act by hand this turn. The caller holds
// the session lock.
func manualSeat(sess *Session, player int) error {
	g := sess.Game
	switch {
	case sess.Automated:
		return ErrAutomatedMatch
	case g.Phase() == engine.GameOver:
		return engine.ErrGameFinished
	case player < 0 || player >= g.NumPlayers():
		return fmt.Errorf("%w: %d", engine.ErrUnknownPlayer, player)
	case !g.IsAlive(player):
		return fmt.Errorf("%w: %d", ErrPlayerEliminated, player)
	}
	return nil
}

// SubmitOrders validates a seat's orders for the current turn. A later
// submission in the same turn replaces the earlier one.
func (s *gameServiceImpl) SubmitOrders(ctx context.Context, matchID string, player int, lines []string) (*OrdersResult, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	if err := manualSeat(sess, player); err != nil {
		return nil, err
	}
	g := sess.Game
	if !g.IsPlayersTurn(player) {
		return nil, fmt.Errorf("%w: player %d on turn %d", ErrNotYourTurn, player, g.Turn())
	}

	if limit := g.MovesLimit(player); len(lines) > limit {
		lines = lines[:limit]
	}
	report, err := g.DoMoves(player, lines)
	if err != nil {
		return nil, err
	}
	sess.LastOrders[player] = report
	sess.Touch()

	return &OrdersResult{
		MatchID: sess.ID,
		Player:  player,
		Turn:    g.Turn(),
		Valid:   report.Valid,
		Ignored: report.IgnoredLines(),
		Invalid: report.InvalidLines(),
	}, nil
}

// KillPlayer removes a seat from the match. The end of the match is
// detected when the turn is advanced.
func (s *gameServiceImpl) KillPlayer(ctx context.Context, matchID string, player int) (*MatchInfo, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	if err := manualSeat(sess, player); err != nil {
		return nil, err
	}
	if err := sess.Game.KillPlayer(player); err != nil {
		return nil, err
	}
	delete(sess.LastOrders, player)
	sess.Touch()

	log.Info().Str("match_id", sess.ID).Int("player", player).Msg("player removed")
	return buildMatchInfo(sess), nil
}

// AdvanceTurn applies the current turn's orders. When the match is over or
// the turn limit is reached the match is finished, otherwise the next turn
// starts.
func (s *gameServiceImpl) AdvanceTurn(ctx context.Context, matchID string) (*MatchInfo, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	if sess.Automated {
		sess.Unlock()
		return nil, ErrAutomatedMatch
	}
	g := sess.Game
	if err := g.FinishTurn(); err != nil {
		finished := g.Phase() == engine.GameOver
		sess.Unlock()
		if finished {
			return nil, engine.ErrGameFinished
		}
		return nil, err
	}

	applied := make([][]string, g.NumPlayers())
	for p, report := range sess.LastOrders {
		applied[p] = report.Valid
	}
	turn := g.Turn()

	over := g.GameOver() || g.Turn() >= g.Turns()
	if over {
		g.FinishGame()
	} else if err := g.StartTurn(); err != nil {
		sess.Unlock()
		return nil, err
	}
	sess.LastOrders = make(map[int]engine.OrderReport)
	sess.Touch()
	info := buildMatchInfo(sess)
	sess.Unlock()

	if over {
		s.finishMatch(ctx, sess, info)
	} else {
		s.notify(sess.ID, EventTurnUpdate, &MatchEvent{Match: info, Turn: turn, Applied: applied})
	}
	return info, nil
}

// finishMatch saves the replay and result of a settled match and tells the
// spectators. Storage failures are logged, the match itself is over either
// way.
func (s *gameServiceImpl) finishMatch(ctx context.Context, sess *Session, info *MatchInfo) {
	logger := log.With().Str("match_id", sess.ID).Str("cutoff", info.Cutoff).Logger()

	if err := s.sessions.Save(sess.ID); err != nil {
		logger.Error().Err(err).Msg("failed to save replay")
	}

	if s.results != nil {
		result := &MatchResult{
			ID:         sess.ID,
			Game:       info.Game,
			Map:        info.Map,
			Players:    info.Players,
			Scores:     info.Scores,
			Winners:    info.Winners,
			Cutoff:     info.Cutoff,
			Turns:      info.Turn,
			FinishedAt: info.UpdatedAt,
		}
		if err := s.results.SaveResult(ctx, result); err != nil {
			logger.Error().Err(err).Msg("failed to save result")
		}
	}

	logger.Info().Ints("scores", info.Scores).Msg("match over")
	s.notify(sess.ID, EventGameOver, &MatchEvent{Match: info, Turn: info.Turn})
}

func (s *gameServiceImpl) notify(matchID, event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.BroadcastEvent(matchID, event, data)
	}
}

// Replay returns the replay of a finished match
func (s *gameServiceImpl) Replay(ctx context.Context, matchID string) (*engine.Replay, error) {
	if sess, err := s.sessions.Get(matchID); err == nil {
		sess.Lock()
		finished := sess.Finished()
		sess.Unlock()
		if !finished {
			return nil, ErrMatchInProgress
		}
	}
	return s.sessions.LoadReplay(matchID)
}

// RunBots plays a whole match between bots and waits for the result.
// Spectators can follow it through the notifier while it runs.
func (s *gameServiceImpl) RunBots(ctx context.Context, req RunRequest) (*RunResult, error) {
	variant, err := resolveVariant(req.Game)
	if err != nil {
		return nil, err
	}
	m, err := s.maps.LoadMap(variant, req.Map)
	if err != nil {
		return nil, err
	}
	if len(req.Bots) != m.Data.NumPlayers {
		return nil, fmt.Errorf("%w: map %s needs %d bots, got %d", ErrInvalidRequest, m.Name, m.Data.NumPlayers, len(req.Bots))
	}
	opts, err := s.matchOptions(req.Turns, req.SimSteps, req.Seed, false)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(m, opts, req.Bots)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	sess.Lock()
	sess.Automated = true
	playerSeed := sess.Game.Options().PlayerSeed
	sess.Unlock()

	bots := make([]match.Bot, len(req.Bots))
	for i, spec := range req.Bots {
		bot, err := match.NewBot(spec, variant, playerSeed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("%w: bot %d: %v", ErrInvalidRequest, i, err)
		}
		bots[i] = bot
	}

	observer := func(u match.TurnUpdate) {
		sess.Lock()
		sess.Touch()
		info := buildMatchInfo(sess)
		sess.Unlock()
		applied := make([][]string, len(bots))
		for _, r := range u.Reports {
			applied[r.Player] = r.Report.Valid
		}
		s.notify(sess.ID, EventTurnUpdate, &MatchEvent{Match: info, Turn: u.Turn, Applied: applied})
	}

	runner, err := match.NewRunner(sess.Game, bots, match.WithLocker(sess), match.WithObserver(observer))
	if err != nil {
		return nil, err
	}

	log.Info().Str("match_id", sess.ID).Strs("bots", req.Bots).Msg("bot match started")
	result, err := runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("bot match %s aborted: %w", sess.ID, err)
	}

	sess.Lock()
	sess.Touch()
	info := buildMatchInfo(sess)
	sess.Unlock()
	s.finishMatch(ctx, sess, info)

	errs := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		errs[i] = e.String()
	}
	return &RunResult{
		MatchID: sess.ID,
		Game:    variant,
		Map:     m.Name,
		Bots:    req.Bots,
		Turns:   result.Turns,
		Scores:  result.Scores,
		Winners: result.Winners,
		Cutoff:  result.Cutoff,
		Errors:  errs,
	}, nil
}

// ListMaps lists the maps of one variant, or all of them
func (s *gameServiceImpl) ListMaps(ctx context.Context, variant engine.Variant) ([]*MapInfo, error) {
	return s.maps.ListMaps(variant)
}

// LoadMap returns a map by name
func (s *gameServiceImpl) LoadMap(ctx context.Context, variant engine.Variant, name string) (*Map, error) {
	v, err := resolveVariant(variant)
	if err != nil {
		return nil, err
	}
	return s.maps.LoadMap(v, name)
}

// Leaderboard ranks players across stored results. It is empty when no
// result store is configured.
func (s *gameServiceImpl) Leaderboard(ctx context.Context, variant engine.Variant, limit int) ([]*LeaderboardEntry, error) {
	if s.results == nil {
		return []*LeaderboardEntry{}, nil
	}
	if variant != "" {
		v, err := engine.ParseVariant(string(variant))
		if err != nil {
			return nil, err
		}
		variant = v
	}
	return s.results.Leaderboard(ctx, variant, limit)
}

// buildMatchInfo snapshots a session. The caller holds the session lock.
func buildMatchInfo(sess *Session) *MatchInfo {
	g := sess.Game
	info := &MatchInfo{
		ID:        sess.ID,
		Game:      g.Variant(),
		Map:       sess.Map.Name,
		Players:   sess.Players,
		Phase:     g.Phase().String(),
		Turn:      g.Turn(),
		Turns:     g.Turns(),
		ToMove:    []int{},
		Alive:     make([]bool, g.NumPlayers()),
		Scores:    g.Scores(),
		Cutoff:    g.Cutoff(),
		Board:     g.Snapshot(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	for p := 0; p < g.NumPlayers(); p++ {
		info.Alive[p] = g.IsAlive(p)
		if g.Phase() == engine.TurnActive && g.IsAlive(p) && g.IsPlayersTurn(p) {
			info.ToMove = append(info.ToMove, p)
		}
	}
	if g.Phase() == engine.GameOver {
		info.Winners = g.Replay().Winners()
	}
	return info
}
