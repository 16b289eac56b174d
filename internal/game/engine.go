package game

import (
	"math"
	rand "math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/mau-cards/maud/internal/deck"
	"github.com/mau-cards/maud/internal/randutil"
)

// State is the phase of the turn state machine
type State int

const (
	// StateIdle means the room exists but no game is running
	StateIdle State = iota
	// StatePlay is the normal turn loop
	StatePlay
	// StateShotgun means a revolver episode is in progress
	StateShotgun
	// StateBluffPending means the current player may challenge the
	// wild take that targets them before drawing
	StateBluffPending
	// StateChooseColor waits for a wild card's color
	StateChooseColor
	// StateTwistHand waits for a hand-swap target
	StateTwistHand
	// StateEnded is terminal; a new game is created afresh
	StateEnded
)

// String returns the string representation of a state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlay:
		return "play"
	case StateShotgun:
		return "shotgun"
	case StateBluffPending:
		return "bluff_pending"
	case StateChooseColor:
		return "choose_color"
	case StateTwistHand:
		return "twist_hand"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// DefaultHandSize is the opening hand dealt to each player
const DefaultHandSize = 7

// DefaultMinPlayers is the smallest game worth starting
const DefaultMinPlayers = 2

// bluffWindow records whether the last wild take was legal at the
// moment it was played. Resolved exactly once.
type bluffWindow struct {
	accused  *Player
	legal    bool
	resolved bool
}

// Game is the turn state machine for one room. Every mutating
// operation runs under the game mutex; events are handed to the sink
// only after the lock is released.
type Game struct {
	mu sync.RWMutex

	logger zerolog.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	sink   Sink

	roomID string
	owner  *Player
	rules  Rules

	handSize     int
	cylinderSize int
	minPlayers   int
	fixedDeck    []deck.Card

	deck  *deck.Deck
	pm    *PlayerManager
	state State

	takeCounter  int
	bluff        *bluffWindow
	colorChooser *Player
	twistChooser *Player

	gameStart time.Time
	turnStart time.Time
	gameEnd   time.Time
}

// Option configures a new game
type Option func(*Game)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Game) { g.logger = logger }
}

// WithClock sets the clock, mockable in tests
func WithClock(clock quartz.Clock) Option {
	return func(g *Game) { g.clock = clock }
}

// WithRNG sets the random source for shuffling and the revolver
func WithRNG(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithSink sets the event sink
func WithSink(sink Sink) Option {
	return func(g *Game) { g.sink = sink }
}

// WithRules sets the room rule toggles
func WithRules(rules Rules) Option {
	return func(g *Game) { g.rules = rules }
}

// WithHandSize sets the opening hand size
func WithHandSize(n int) Option {
	return func(g *Game) { g.handSize = n }
}

// WithCylinderSize sets the revolver cylinder size
func WithCylinderSize(n int) Option {
	return func(g *Game) { g.cylinderSize = n }
}

// WithMinPlayers sets the minimum player count for Start
func WithMinPlayers(n int) Option {
	return func(g *Game) { g.minPlayers = n }
}

// WithDeckCards replaces the standard deck with a fixed, unshuffled
// card list. Test hook: the last card of the list is drawn first.
func WithDeckCards(cards []deck.Card) Option {
	return func(g *Game) { g.fixedDeck = cards }
}

// NewGame creates a game for a room. The owner joins immediately as
// the first player.
func NewGame(roomID string, owner BaseUser, opts ...Option) *Game {
	g := &Game{
		logger:       zerolog.Nop(),
		clock:        quartz.NewReal(),
		rng:          randutil.New(time.Now().UnixNano()),
		sink:         NopSink{},
		roomID:       roomID,
		rules:        DefaultRules(),
		handSize:     DefaultHandSize,
		cylinderSize: DefaultCylinderSize,
		minPlayers:   DefaultMinPlayers,
		pm:           NewPlayerManager(),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With().Str("component", "game").Str("room_id", roomID).Logger()

	g.owner = newPlayer(owner, g.cylinderSize)
	g.pm.Add(g.owner)
	return g
}

// RoomID returns the room this game is bound to
func (g *Game) RoomID() string {
	return g.roomID
}

// Owner returns the player who created the game
func (g *Game) Owner() *Player {
	return g.owner
}

// Rules returns the room rule toggles
func (g *Game) Rules() Rules {
	return g.rules
}

// State returns the current phase
func (g *Game) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Started reports whether a game is running
func (g *Game) Started() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.startedLocked()
}

func (g *Game) startedLocked() bool {
	return g.state != StateIdle && g.state != StateEnded
}

// Ended reports whether the game reached its terminal state
func (g *Game) Ended() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateEnded
}

// TakeCounter returns the pending forced-draw penalty
func (g *Game) TakeCounter() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.takeCounter
}

// CurrentPlayer returns the player whose turn it is
func (g *Game) CurrentPlayer() *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pm.Current()
}

// Player finds a participant by user id, in the ring or already
// finished
func (g *Game) Player(userID string) *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.playerLocked(userID)
}

func (g *Game) playerLocked(userID string) *Player {
	if p := g.pm.ByUserID(userID); p != nil {
		return p
	}
	for _, p := range g.pm.Winners() {
		if p.UserID == userID {
			return p
		}
	}
	for _, p := range g.pm.Losers() {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Participants returns everyone who ever joined this game
func (g *Game) Participants() []BaseUser {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var users []BaseUser
	for _, p := range g.pm.Active() {
		users = append(users, p.User())
	}
	for _, p := range g.pm.Winners() {
		users = append(users, p.User())
	}
	for _, p := range g.pm.Losers() {
		users = append(users, p.User())
	}
	return users
}

// Join adds a user to the game. Joining a running game deals an
// opening hand immediately.
func (g *Game) Join(user BaseUser) (*Player, error) {
	g.mu.Lock()
	p, event, err := g.joinLocked(user)
	g.mu.Unlock()
	g.publish(event)
	return p, err
}

func (g *Game) joinLocked(user BaseUser) (*Player, *Event, error) {
	if g.state == StateEnded {
		return nil, nil, ErrGameEnded
	}
	if g.playerLocked(user.ID) != nil {
		return nil, nil, ErrAlreadyJoined
	}

	p := newPlayer(user, g.cylinderSize)
	if g.startedLocked() {
		cards, err := g.deck.Draw(g.handSize)
		if err != nil {
			return nil, nil, err
		}
		p.addCards(cards)
	}
	g.pm.Add(p)
	g.logger.Info().Str("user_id", user.ID).Msg("player joined")
	return p, g.newEventLocked(EventPlayerJoined, p, ""), nil
}

// Leave removes a player from the game. During a running game a player
// with an empty hand finishes as a winner, anyone else as a loser; a
// pre-game leave is just a departure. Kicking is a leave initiated by
// the room owner.
func (g *Game) Leave(p *Player) error {
	g.mu.Lock()
	event, err := g.leaveLocked(p)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) leaveLocked(p *Player) (*Event, error) {
	if p == nil || g.pm.ByUserID(p.UserID) == nil {
		return nil, ErrNotInGame
	}

	if !g.startedLocked() {
		g.pm.Drop(p)
		p.Status = StatusLeft
		return g.newEventLocked(EventPlayerLeft, p, ""), nil
	}

	g.removeFromRingLocked(p)
	g.logger.Info().Str("user_id", p.UserID).Str("status", p.Status.String()).Msg("player left")
	event := g.newEventLocked(EventPlayerLeft, p, p.Status.String())
	return event, nil
}

// removeFromRingLocked reclassifies a departing player and ends the
// game if at most one active player remains
func (g *Game) removeFromRingLocked(p *Player) {
	if p.HandSize() == 0 {
		g.pm.MoveToWinners(p)
	} else {
		if p.Status == StatusActive {
			p.Status = StatusLeft
		}
		g.pm.MoveToLosers(p)
	}
	if g.colorChooser == p {
		g.colorChooser = nil
		g.state = StatePlay
	}
	if g.twistChooser == p {
		g.twistChooser = nil
		g.state = StatePlay
	}
	if g.pm.ActiveCount() <= 1 {
		g.finishLocked()
		return
	}
	g.turnStart = g.clock.Now()
}

// finishLocked drains the remaining ring into the losers list and
// moves the machine to its terminal state
func (g *Game) finishLocked() {
	for _, p := range g.pm.Active() {
		if p.Status == StatusActive {
			p.Status = StatusLost
		}
		g.pm.MoveToLosers(p)
	}
	g.state = StateEnded
	g.gameEnd = g.clock.Now()
	g.takeCounter = 0
	g.colorChooser = nil
	g.twistChooser = nil
	g.logger.Info().Msg("game ended")
}

// Start deals the opening hands, flips the first discard card and
// enters the turn loop. The opening flip has no side effect: if it is
// a wild card, the unchosen top simply matches anything.
func (g *Game) Start() error {
	g.mu.Lock()
	event, err := g.startGameLocked()
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) startGameLocked() (*Event, error) {
	if g.state != StateIdle {
		return nil, ErrGameAlreadyStarted
	}
	if g.pm.ActiveCount() < g.minPlayers {
		return nil, ErrInsufficientPlayers
	}

	cards := g.fixedDeck
	if cards == nil {
		cards = deck.Standard(deck.Composition{TwistHand: g.rules.TwistHand})
	}
	g.deck = deck.New(g.rng, cards)
	if g.fixedDeck == nil {
		g.deck.Shuffle()
	}

	for _, p := range g.pm.Active() {
		dealt, err := g.deck.Draw(g.handSize)
		if err != nil {
			return nil, err
		}
		p.addCards(dealt)
	}
	flip, err := g.deck.Draw(1)
	if err != nil {
		return nil, err
	}
	g.deck.Play(flip[0])

	now := g.clock.Now()
	g.gameStart = now
	g.turnStart = now
	g.state = StatePlay
	g.logger.Info().Int("players", g.pm.ActiveCount()).Msg("game started")
	return g.newEventLocked(EventGameStart, g.owner, ""), nil
}

// End force-finishes the game, archiving everyone still holding cards
// as losers
func (g *Game) End() error {
	g.mu.Lock()
	event, err := g.endGameLocked()
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) endGameLocked() (*Event, error) {
	if g.state == StateIdle {
		return nil, ErrGameNotStarted
	}
	if g.state == StateEnded {
		return nil, ErrGameEnded
	}
	g.finishLocked()
	return g.newEventLocked(EventGameEnd, g.owner, ""), nil
}

// advanceLocked passes the turn in the direction of play
func (g *Game) advanceLocked(skip bool) {
	g.pm.Next()
	if skip {
		g.pm.Next()
	}
	g.turnStart = g.clock.Now()
}

// ProcessTurn plays a card from the player's hand. The card must be
// legal against the discard top given the pending penalty; its effect
// is applied and the turn advances unless the card demands a follow-up
// choice.
func (g *Game) ProcessTurn(p *Player, card deck.Card) error {
	g.mu.Lock()
	event, err := g.processTurnLocked(p, card)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) processTurnLocked(p *Player, card deck.Card) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	switch g.state {
	case StatePlay, StateShotgun, StateBluffPending:
	default:
		return nil, ErrInvalidMove
	}
	if p != g.pm.Current() {
		return nil, ErrNotYourTurn
	}
	top, _ := g.deck.Top()
	if !card.Playable(top, g.takeCounter) {
		return nil, ErrInvalidMove
	}

	// A wild take is honest only when the hand held no color match for
	// the previous top. Decided now, challenged later.
	legal := true
	if card.Behavior == deck.WildTake {
		legal = !p.hasColorMatch(top)
	}

	if !p.removeCard(card) {
		return nil, ErrInvalidMove
	}
	g.deck.Play(card)
	g.state = StatePlay
	p.Shotgun.Reset()

	skip := false
	switch card.Behavior {
	case deck.Number:
	case deck.Skip:
		skip = true
	case deck.Reverse:
		g.pm.Reverse()
		// with two players a reverse behaves like a skip
		skip = g.pm.ActiveCount() == 2
	case deck.Take:
		g.takeCounter += card.Value
	case deck.WildTake:
		g.takeCounter += card.Value
		g.bluff = &bluffWindow{accused: p, legal: legal}
		g.colorChooser = p
		g.state = StateChooseColor
	case deck.ChooseColor:
		g.colorChooser = p
		g.state = StateChooseColor
	case deck.TwistHand:
		g.twistChooser = p
		g.state = StateTwistHand
	}

	data := card.String()
	if p.HandSize() == 0 {
		// Pending choices die with the winning card; an unchosen wild
		// top matches anything, so no color needs picking.
		g.colorChooser = nil
		g.twistChooser = nil
		if card.Behavior == deck.WildTake {
			g.bluff = nil
		}
		g.state = StatePlay
		g.pm.MoveToWinners(p)
		data += " win"
		if g.pm.ActiveCount() <= 1 {
			g.finishLocked()
			return g.newEventLocked(EventCardPlayed, p, data), nil
		}
		// removal already moved the turn to the next seat
		if skip {
			g.pm.Next()
		}
		g.turnStart = g.clock.Now()
	} else if g.state == StatePlay {
		g.advanceLocked(skip)
	}

	g.logger.Debug().
		Str("user_id", p.UserID).
		Str("card", card.String()).
		Int("take_counter", g.takeCounter).
		Msg("card played")
	return g.newEventLocked(EventCardPlayed, p, data), nil
}

// NextTurn passes the turn without playing, the player's own choice
func (g *Game) NextTurn(p *Player) error {
	g.mu.Lock()
	event, err := g.nextTurnLocked(p)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) nextTurnLocked(p *Player) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	if g.state != StatePlay {
		return nil, ErrInvalidMove
	}
	if p != g.pm.Current() {
		return nil, ErrNotYourTurn
	}
	g.advanceLocked(false)
	return g.newEventLocked(EventTurnPassed, p, ""), nil
}

// TakeCards draws the pending penalty, or a single card when none is
// pending. Taking clears the counter, ends the player's revolver
// episode and, when a penalty was served, passes the turn.
func (g *Game) TakeCards(p *Player) error {
	g.mu.Lock()
	event, err := g.takeCardsLocked(p)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) takeCardsLocked(p *Player) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	switch g.state {
	case StatePlay, StateShotgun, StateBluffPending:
	default:
		return nil, ErrInvalidMove
	}
	if p != g.pm.Current() {
		return nil, ErrNotYourTurn
	}

	n := g.takeCounter
	penalty := n > 0
	if n == 0 {
		n = 1
	}
	cards, err := g.deck.Draw(n)
	p.addCards(cards)
	if err != nil {
		return nil, err
	}

	g.takeCounter = 0
	p.Shotgun.Reset()
	if g.bluff != nil {
		g.bluff.resolved = true
	}
	g.state = StatePlay
	if penalty {
		g.advanceLocked(false)
	}

	g.logger.Debug().Str("user_id", p.UserID).Int("cards", n).Msg("cards taken")
	return g.newEventLocked(EventCardsTaken, p, cardCountData(n)), nil
}

// SkipCurrent force-draws the stalled current player and passes the
// turn, bumping the penalty by one first
func (g *Game) SkipCurrent() error {
	g.mu.Lock()
	event, err := g.skipCurrentLocked()
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) skipCurrentLocked() (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	p := g.pm.Current()
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	g.takeCounter++
	n := g.takeCounter
	cards, err := g.deck.Draw(n)
	p.addCards(cards)
	if err != nil {
		return nil, err
	}
	g.takeCounter = 0
	p.Shotgun.Reset()
	if g.bluff != nil {
		g.bluff.resolved = true
	}
	// a stalled chooser must not wedge the machine in a pending state
	g.colorChooser = nil
	g.twistChooser = nil
	g.state = StatePlay
	g.advanceLocked(false)

	g.logger.Info().Str("user_id", p.UserID).Int("cards", n).Msg("stalled player skipped")
	return g.newEventLocked(EventPlayerSkipped, p, cardCountData(n)), nil
}

// Shot fires the revolver instead of drawing the pending penalty.
// Elimination removes the player; survival escalates the penalty by
// half, hands the turn to the survivor and keeps the episode open.
func (g *Game) Shot(p *Player) error {
	g.mu.Lock()
	event, err := g.shotLocked(p)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) shotLocked(p *Player) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	if !g.rules.Shotgun {
		return nil, ErrInvalidMove
	}
	switch g.state {
	case StatePlay, StateShotgun, StateBluffPending:
	default:
		return nil, ErrInvalidMove
	}
	if p != g.pm.Current() {
		return nil, ErrNotYourTurn
	}
	if g.takeCounter == 0 {
		return nil, ErrInvalidMove
	}

	if g.bluff != nil {
		g.bluff.resolved = true
	}

	if p.Shotgun.Shot(g.rng) {
		p.Status = StatusEliminated
		g.logger.Info().Str("user_id", p.UserID).Int("tried", p.Shotgun.Tried()).Msg("player eliminated")
		g.removeFromRingLocked(p)
		if g.state != StateEnded {
			if g.takeCounter > 0 {
				g.state = StateShotgun
			} else {
				g.state = StatePlay
			}
		}
		return g.newEventLocked(EventShotgunShot, p, "eliminated"), nil
	}

	g.takeCounter = int(math.Round(float64(g.takeCounter) * 1.5))
	if err := g.pm.SetCurrent(p); err != nil {
		return nil, err
	}
	g.state = StateShotgun
	g.turnStart = g.clock.Now()
	g.logger.Debug().
		Str("user_id", p.UserID).
		Int("tried", p.Shotgun.Tried()).
		Int("take_counter", g.takeCounter).
		Msg("player survived the shot")
	return g.newEventLocked(EventShotgunShot, p, "survived"), nil
}

// CallBluff challenges the last wild take. A caught bluffer draws the
// pending penalty; a wrong challenger draws double. Each window
// resolves exactly once.
func (g *Game) CallBluff(challenger *Player) error {
	g.mu.Lock()
	event, err := g.callBluffLocked(challenger)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) callBluffLocked(challenger *Player) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	if g.bluff == nil {
		return nil, ErrInvalidMove
	}
	if g.bluff.resolved {
		return nil, ErrBluffAlreadyResolved
	}
	if g.state != StateBluffPending {
		return nil, ErrInvalidMove
	}
	if challenger != g.pm.Current() {
		return nil, ErrNotYourTurn
	}

	window := g.bluff
	window.resolved = true
	g.state = StatePlay

	if !window.legal {
		// Caught: the penalty lands on the accused and the challenger
		// keeps the turn.
		cards, err := g.deck.Draw(g.takeCounter)
		window.accused.addCards(cards)
		if err != nil {
			return nil, err
		}
		g.takeCounter = 0
		g.logger.Debug().
			Str("challenger", challenger.UserID).
			Str("accused", window.accused.UserID).
			Msg("bluff caught")
		return g.newEventLocked(EventBluffResolved, challenger, "caught"), nil
	}

	cards, err := g.deck.Draw(2 * g.takeCounter)
	challenger.addCards(cards)
	if err != nil {
		return nil, err
	}
	g.takeCounter = 0
	g.advanceLocked(false)
	g.logger.Debug().Str("challenger", challenger.UserID).Msg("bluff call was wrong")
	return g.newEventLocked(EventBluffResolved, challenger, "wrong"), nil
}

// ChooseColor resolves a pending wild color choice and advances the
// turn. After a wild take the turn lands on the victim with the bluff
// window still open.
func (g *Game) ChooseColor(p *Player, color deck.Color) error {
	g.mu.Lock()
	event, err := g.chooseColorLocked(p, color)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) chooseColorLocked(p *Player, color deck.Color) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	if g.state != StateChooseColor {
		return nil, ErrNoPendingChoice
	}
	if p != g.colorChooser {
		return nil, ErrInvalidMove
	}
	switch color {
	case deck.Red, deck.Yellow, deck.Green, deck.Blue:
	default:
		return nil, ErrInvalidColorChoice
	}

	g.deck.SetTopColor(color)
	g.colorChooser = nil
	if g.bluff != nil && !g.bluff.resolved && g.takeCounter > 0 {
		g.state = StateBluffPending
	} else {
		g.state = StatePlay
	}
	g.advanceLocked(false)
	return g.newEventLocked(EventColorChosen, p, color.String()), nil
}

// TwistHand swaps the full hand contents of the caller and the chosen
// target, then advances the turn
func (g *Game) TwistHand(p, target *Player) error {
	g.mu.Lock()
	event, err := g.twistHandLocked(p, target)
	g.mu.Unlock()
	g.publish(event)
	return err
}

func (g *Game) twistHandLocked(p, target *Player) (*Event, error) {
	if !g.startedLocked() {
		return nil, ErrGameNotStarted
	}
	if g.state != StateTwistHand {
		return nil, ErrNoPendingChoice
	}
	if p != g.twistChooser {
		return nil, ErrInvalidMove
	}
	if target == nil || target == p || g.pm.ByUserID(target.UserID) == nil {
		return nil, ErrPlayerNotFound
	}

	p.hand, target.hand = target.hand, p.hand
	g.twistChooser = nil
	g.state = StatePlay
	g.advanceLocked(false)
	g.logger.Debug().Str("user_id", p.UserID).Str("target", target.UserID).Msg("hands twisted")
	return g.newEventLocked(EventHandsTwisted, p, target.UserID), nil
}

func cardCountData(n int) string {
	return strconv.Itoa(n)
}
