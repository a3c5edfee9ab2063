package table

import (
	"errors"
	rand "math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/poker"
)

func TestHeadsUpBlindsAndFirstStreet(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()

	st := h.tbl.State("")
	require.Equal(t, PhasePreflop, st.Phase)
	assert.Equal(t, 0, st.Dealer)
	assert.Equal(t, 30, st.Pot)
	assert.Equal(t, 990, st.Seats[0].Chips)
	assert.Equal(t, 980, st.Seats[1].Chips)
	assert.Equal(t, 20, st.CurrentBet)
	assert.Equal(t, 0, st.CurrentPlayer, "dealer acts first preflop heads-up")

	h.act("p0", Call())

	st = h.tbl.State("")
	require.Equal(t, PhaseFlop, st.Phase)
	assert.Equal(t, 40, st.Pot)
	assert.Equal(t, 980, st.Seats[0].Chips)
	assert.Equal(t, 980, st.Seats[1].Chips)
	assert.Len(t, st.Board, 3)
	assert.Equal(t, 0, st.CurrentBet)
	assert.Equal(t, 1, st.CurrentPlayer, "non-dealer acts first after the flop")

	started := eventsOf[HandStarted](h.rec)
	require.Len(t, started, 1)
	assert.Equal(t, 0, started[0].SmallBlind)
	assert.Equal(t, 1, started[0].BigBlind)
	assert.Equal(t, [2]int{10, 20}, started[0].Blinds)
}

func TestIllegalActionLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()

	before := h.tbl.State("p0")
	assert.Equal(t, []ActionKind{ActionFold, ActionCall, ActionRaise, ActionAllIn}, before.LegalActions)

	err := h.tbl.SubmitAction("p0", Bet(100))
	require.ErrorIs(t, err, ErrIllegalAction)
	assert.Equal(t, "illegal_action", Code(err))

	require.ErrorIs(t, h.tbl.SubmitAction("p1", Check()), ErrNotYourTurn)
	require.ErrorIs(t, h.tbl.SubmitAction("ghost", Fold()), ErrNotSeated)

	after := h.tbl.State("p0")
	assert.Equal(t, before.Pot, after.Pot)
	assert.Equal(t, before.CurrentPlayer, after.CurrentPlayer)
	assert.Equal(t, before.Seats[0].Chips, after.Seats[0].Chips)
}

func TestActionOutsideBettingIsWrongPhase(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	require.ErrorIs(t, h.tbl.SubmitAction("p0", Check()), ErrWrongPhase)
}

func TestHoleCardsAreRedacted(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()

	own := h.tbl.State("p0")
	assert.Equal(t, 0, own.ViewerSeat)
	assert.Len(t, own.Seats[0].HoleCards, 2)
	assert.Empty(t, own.Seats[1].HoleCards)
	assert.True(t, own.Seats[1].HasCards)

	spectator := h.tbl.State("")
	assert.Equal(t, -1, spectator.ViewerSeat)
	assert.Empty(t, spectator.Seats[0].HoleCards)
	assert.Empty(t, spectator.LegalActions)
}

func TestTurnTimeoutChecksWhenFree(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()
	h.act("p0", Call())
	require.Equal(t, 1, h.tbl.State("").CurrentPlayer)

	h.rec.reset()
	h.advance()

	acted := eventsOf[PlayerActed](h.rec)
	require.Len(t, acted, 1)
	assert.Equal(t, "p1", acted[0].PlayerID)
	assert.Equal(t, ActionCheck, acted[0].Action.Kind)
	assert.True(t, acted[0].IsTimeout)
	assert.Empty(t, eventsOf[AutoFold](h.rec))
	assert.Equal(t, 0, h.tbl.State("").CurrentPlayer)
}

func TestTurnTimeoutFoldsFacingBet(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()

	h.advance()

	folds := eventsOf[AutoFold](h.rec)
	require.Len(t, folds, 1)
	assert.Equal(t, "p0", folds[0].PlayerID)

	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.True(t, results[0].Uncontested)
	assert.Equal(t, map[int]int{1: 30}, results[0].Awards)

	st := h.tbl.State("")
	assert.Equal(t, PhaseShowdown, st.Phase)
	assert.Equal(t, 990, st.Seats[0].Chips)
	assert.Equal(t, 1010, st.Seats[1].Chips)

	h.advance()
	assert.Equal(t, PhaseWaiting, h.tbl.Phase())
}

func TestThreeHandedTurnOrder(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"})
	h.deal()

	started := eventsOf[HandStarted](h.rec)
	require.Len(t, started, 1)
	assert.Equal(t, 0, started[0].Dealer)
	assert.Equal(t, 1, started[0].SmallBlind)
	assert.Equal(t, 2, started[0].BigBlind)

	h.act("p0", Call())
	h.act("p1", Call())
	require.Equal(t, PhaseFlop, h.tbl.Phase())
	h.act("p1", Check())
	h.act("p2", Check())
	h.act("p0", Check())
	require.Equal(t, PhaseTurn, h.tbl.Phase())

	var order []int
	for _, ev := range eventsOf[TurnStarted](h.rec) {
		order = append(order, ev.Seat)
	}
	assert.Equal(t, []int{0, 1, 1, 2, 0, 1}, order)
}

func TestSidePotsAtShowdown(t *testing.T) {
	t.Parallel()
	deck := stackedDeck(t, []string{"Kh Kd", "Qh Qd", "Ah Ad"}, "2c 7s 9d Jc 3h")
	h := newHarness(t, testConfig(), deck)
	h.seat([]string{"a", "b", "c"}, 100, 300, 300)
	h.deal()

	h.act("a", AllIn())
	h.act("b", AllIn())
	h.act("c", Call())

	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, 700, res.Pot)
	require.Len(t, res.Pots, 2)
	assert.Equal(t, 300, res.Pots[0].Amount)
	assert.Equal(t, []int{0}, res.Pots[0].Winners)
	assert.Equal(t, 400, res.Pots[1].Amount)
	assert.Equal(t, []int{1}, res.Pots[1].Winners)
	assert.Equal(t, map[int]int{0: 300, 1: 400}, res.Awards)
	assert.Len(t, res.Revealed, 3)

	st := h.tbl.State("")
	assert.Equal(t, 300, st.Seats[0].Chips)
	assert.Equal(t, 400, st.Seats[1].Chips)
	assert.Equal(t, 0, st.Seats[2].Chips)
	assert.True(t, st.Seats[2].SittingOut)
	assert.Len(t, st.Seats[1].HoleCards, 2, "showdown hands are revealed")
	assert.Len(t, st.Board, 5)

	elim := eventsOf[PlayerEliminated](h.rec)
	require.Len(t, elim, 1)
	assert.Equal(t, "c", elim[0].PlayerID)
	assert.Equal(t, 2, elim[0].Remaining)
	assert.Empty(t, eventsOf[GameOver](h.rec))
}

func TestOddChipGoesLeftOfDealer(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.SmallBlind, cfg.BigBlind = 5, 10
	deck := stackedDeck(t, []string{"2c 3d", "4c 5d", "6c 7d"}, "Ts Js Qs Ks As")
	h := newHarness(t, cfg, deck)
	h.seat([]string{"p0", "p1", "p2"})
	h.deal()

	h.act("p0", Call())
	h.act("p1", Fold())
	for range 3 {
		h.act("p2", Check())
		h.act("p0", Check())
	}

	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.Equal(t, 25, results[0].Pot)
	assert.Equal(t, map[int]int{0: 12, 2: 13}, results[0].Awards)
	assert.Equal(t, "Royal Flush", results[0].Winners[0].HandName)

	st := h.tbl.State("")
	assert.Equal(t, 1002, st.Seats[0].Chips)
	assert.Equal(t, 995, st.Seats[1].Chips)
	assert.Equal(t, 1003, st.Seats[2].Chips)
}

func TestGameOver(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.AutoStart = true
	deck := stackedDeck(t, []string{"Ah Ad", "7c 2d"}, "Ks 9h 8c Js 3d")
	h := newHarness(t, cfg, deck)
	h.seat([]string{"short", "big"}, 100, 1000)
	h.deal()

	h.act("short", AllIn())
	h.act("big", Call())

	over := eventsOf[GameOver](h.rec)
	require.Len(t, over, 1)
	assert.Equal(t, "big", over[0].WinnerID)
	assert.Equal(t, 1100, over[0].Chips)
	assert.Equal(t, 1, over[0].Hands)

	h.advance()
	assert.Equal(t, PhaseWaiting, h.tbl.Phase(), "no new hand once the game is over")
}

func TestDisconnectGraceRemovesPlayer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})

	require.NoError(t, h.tbl.Disconnect("p1"))
	disc := eventsOf[PlayerDisconnected](h.rec)
	require.Len(t, disc, 1)
	assert.Equal(t, time.Minute, disc[0].Grace)
	assert.False(t, h.tbl.State("").Seats[1].Connected)

	h.advance()

	left := eventsOf[PlayerLeft](h.rec)
	require.Len(t, left, 1)
	assert.Equal(t, "p1", left[0].PlayerID)
	assert.Equal(t, "disconnected", left[0].Reason)
	assert.Nil(t, h.tbl.State("").Seats[1])
}

func TestReconnectCancelsGrace(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})

	require.NoError(t, h.tbl.Disconnect("p1"))
	_, pending := h.clk.Peek()
	require.True(t, pending)

	require.NoError(t, h.tbl.Reconnect("p1"))
	_, pending = h.clk.Peek()
	assert.False(t, pending)
	assert.True(t, h.tbl.State("").Seats[1].Connected)
	assert.Len(t, eventsOf[PlayerReconnected](h.rec), 1)
}

func TestLeaveMidHandFoldsAndSettles(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"})
	h.deal()

	require.NoError(t, h.tbl.Leave("p1"))
	st := h.tbl.State("")
	require.NotNil(t, st.Seats[1], "seat stays until the hand ends")
	assert.True(t, st.Seats[1].Folded)
	assert.Equal(t, PhasePreflop, st.Phase)

	h.act("p0", Fold())

	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.Equal(t, map[int]int{2: 30}, results[0].Awards)

	left := eventsOf[PlayerLeft](h.rec)
	require.Len(t, left, 1)
	assert.Equal(t, 990, left[0].Chips)
	assert.Nil(t, h.tbl.State("").Seats[1])
}

func TestLeaveOutOfTurnClosesStreet(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"}, 1000, 100, 1000)
	h.deal()

	h.act("p0", Call())
	h.act("p1", AllIn())
	h.act("p2", Call())
	h.act("p0", Call())
	require.Equal(t, PhaseFlop, h.tbl.Phase())
	require.Equal(t, 2, h.tbl.State("").CurrentPlayer)

	// p2 is the only seat left who can bet, and nobody owes it a call.
	require.NoError(t, h.tbl.Leave("p0"))

	st := h.tbl.State("")
	assert.Equal(t, PhaseShowdown, st.Phase)
	assert.Equal(t, -1, st.CurrentPlayer)
	assert.Len(t, st.Board, 5)
	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.Equal(t, 300, results[0].Pot)

	left := eventsOf[PlayerLeft](h.rec)
	require.Len(t, left, 1)
	assert.Equal(t, "p0", left[0].PlayerID)
	assert.Equal(t, 900, left[0].Chips)
	assert.Equal(t, 1200, totalChips(st))
}

func TestDisconnectGraceMidHandReportsDisconnect(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.DisconnectGrace = 10 * time.Second
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1", "p2"})
	h.deal()

	require.NoError(t, h.tbl.Disconnect("p1"))
	h.advance() // grace runs out before p0's turn timer
	require.True(t, h.tbl.State("").Seats[1].Folded)
	require.Equal(t, PhasePreflop, h.tbl.Phase())

	h.act("p0", Fold())
	left := eventsOf[PlayerLeft](h.rec)
	require.Len(t, left, 1)
	assert.Equal(t, "p1", left[0].PlayerID)
	assert.Equal(t, "disconnected", left[0].Reason)
	assert.Equal(t, 990, left[0].Chips)
}

func TestLeaveDuringReadyUpReturnsToWaiting(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	require.NoError(t, h.tbl.StartReadyUp(""))
	require.NoError(t, h.tbl.Leave("p1"))
	assert.Equal(t, PhaseWaiting, h.tbl.Phase())
	_, pending := h.clk.Peek()
	assert.False(t, pending)
}

func TestReadyUpExpirySitsOutStragglers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"})
	require.NoError(t, h.tbl.StartReadyUp(""))
	require.Len(t, eventsOf[ReadyPrompt](h.rec), 1)
	require.NoError(t, h.tbl.Ready("p0"))
	require.NoError(t, h.tbl.Ready("p1"))
	require.Equal(t, PhaseReadyUp, h.tbl.Phase())

	h.advance()

	notReady := eventsOf[PlayerNotReady](h.rec)
	require.Len(t, notReady, 1)
	assert.Equal(t, "p2", notReady[0].PlayerID)
	require.Equal(t, PhaseCountdown, h.tbl.Phase())

	h.advance()
	started := eventsOf[HandStarted](h.rec)
	require.Len(t, started, 1)
	assert.Equal(t, []int{0, 1}, started[0].Seats)
	assert.False(t, h.tbl.State("").Seats[2].InHand)
}

func TestCountdownTicks(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.CountdownDuration = 3 * time.Second
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	h.deal()

	var remaining []time.Duration
	for _, ev := range eventsOf[CountdownUpdate](h.rec) {
		remaining = append(remaining, ev.Remaining)
	}
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second, time.Second}, remaining)
	assert.Equal(t, PhasePreflop, h.tbl.Phase())
}

func TestStartReadyUpErrors(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.CreatorID = "owner"
	h := newHarness(t, cfg)

	h.seat([]string{"owner"})
	require.ErrorIs(t, h.tbl.StartReadyUp("owner"), ErrInsufficientPlayers)
	_, err := h.tbl.Join(Player{ID: "guest"}, -1)
	require.NoError(t, err)
	require.ErrorIs(t, h.tbl.StartReadyUp("guest"), ErrNotCreator)
	require.NoError(t, h.tbl.StartReadyUp("owner"))
	require.ErrorIs(t, h.tbl.StartReadyUp("owner"), ErrWrongPhase)
	require.ErrorIs(t, h.tbl.Ready("nobody"), ErrNotSeated)
}

func TestJoinErrors(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxPlayers = 2
	h := newHarness(t, cfg)

	seat, err := h.tbl.Join(Player{ID: "p0"}, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
	assert.Equal(t, 1000, h.tbl.State("").Seats[0].Chips, "zero chips takes the buy-in")

	_, err = h.tbl.Join(Player{ID: "p0"}, -1)
	require.ErrorIs(t, err, ErrAlreadySeated)
	_, err = h.tbl.Join(Player{ID: "p1"}, 0)
	require.ErrorIs(t, err, ErrSeatTaken)
	_, err = h.tbl.Join(Player{ID: "p1"}, 7)
	require.ErrorIs(t, err, ErrInvalidSeat)
	_, err = h.tbl.Join(Player{ID: "p1"}, -1)
	require.NoError(t, err)
	_, err = h.tbl.Join(Player{ID: "p2"}, -1)
	require.ErrorIs(t, err, ErrTableFull)
	assert.Equal(t, "table_full", Code(err))
}

func TestResetGameDropsStaleTimers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()
	h.act("p0", Raise(60))

	var fired atomic.Bool
	h.tbl.mu.Lock()
	h.tbl.schedule("probe", time.Second, func() error {
		fired.Store(true)
		return nil
	})
	h.tbl.mu.Unlock()

	require.NoError(t, h.tbl.ResetGame())
	h.advance()
	assert.False(t, fired.Load(), "timer armed before the reset must not run")

	st := h.tbl.State("")
	assert.Equal(t, PhaseWaiting, st.Phase)
	assert.Equal(t, 1, st.Generation)
	assert.Equal(t, 0, st.HandNumber)
	assert.Equal(t, 0, st.Pot)
	assert.Equal(t, 1000, st.Seats[0].Chips)
	assert.Equal(t, 1000, st.Seats[1].Chips)
	assert.Empty(t, st.Seats[0].HoleCards)

	h.deal()
	assert.Equal(t, PhasePreflop, h.tbl.Phase())
}

func TestCloseRefundsAndRejects(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1"})
	h.deal()

	require.NoError(t, h.tbl.Close("shutdown"))

	left := eventsOf[PlayerLeft](h.rec)
	require.Len(t, left, 2)
	for _, ev := range left {
		assert.Equal(t, 1000, ev.Chips)
	}
	closed := eventsOf[TableClosed](h.rec)
	require.Len(t, closed, 1)
	assert.Equal(t, "shutdown", closed[0].Reason)

	assert.Equal(t, PhaseClosed, h.tbl.Phase())
	_, err := h.tbl.Join(Player{ID: "late"}, -1)
	require.ErrorIs(t, err, ErrTableClosed)
	require.NoError(t, h.tbl.Close("again"))
	_, pending := h.clk.Peek()
	assert.False(t, pending)
}

func TestBlindIncreaseAppliesAtNextHand(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BlindIncreaseInterval = 2 * time.Minute
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	h.deal()

	h.act("p0", Fold())
	h.advance() // showdown delay
	require.Equal(t, PhaseWaiting, h.tbl.Phase())
	h.advance() // blind level
	assert.Equal(t, 20, h.tbl.State("").BigBlind, "new level waits for the next hand")

	h.deal()
	inc := eventsOf[BlindsIncreased](h.rec)
	require.Len(t, inc, 1)
	assert.Equal(t, 20, inc[0].SmallBlind)
	assert.Equal(t, 40, inc[0].BigBlind)

	st := h.tbl.State("")
	assert.Equal(t, 40, st.BigBlind)
	assert.Equal(t, 60, st.Pot)
	assert.Equal(t, 1, st.Dealer, "button moves")
}

func TestBlindClockStopsWhenTableIdles(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BlindIncreaseInterval = 2 * time.Minute
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	h.deal()

	require.NoError(t, h.tbl.SitOut("p1"))
	h.act("p0", Fold())
	h.advance() // showdown delay
	require.Equal(t, PhaseWaiting, h.tbl.Phase())
	_, pending := h.clk.Peek()
	assert.False(t, pending, "no blind level accrues on an idle table")

	require.NoError(t, h.tbl.SitIn("p1"))
	h.deal()
	assert.Empty(t, eventsOf[BlindsIncreased](h.rec))
	assert.Equal(t, 20, h.tbl.State("").BigBlind)
	d, pending := h.clk.Peek()
	require.True(t, pending)
	assert.Equal(t, cfg.TurnTimeLimit, d)

	require.NoError(t, h.tbl.Leave("p0"))
	h.advance() // showdown delay
	require.NoError(t, h.tbl.Leave("p1"))
	_, pending = h.clk.Peek()
	assert.False(t, pending)
}

func TestBlindIncreaseStopsAtTableChips(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.BlindIncreaseInterval = time.Minute
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	h.deal()

	h.act("p0", Fold())
	h.advance() // showdown delay
	require.Equal(t, PhaseWaiting, h.tbl.Phase())
	for range 20 {
		h.advance() // blind level
	}

	h.deal()
	inc := eventsOf[BlindsIncreased](h.rec)
	require.Len(t, inc, 1)
	assert.Equal(t, 640, inc[0].SmallBlind)
	assert.Equal(t, 1280, inc[0].BigBlind, "doubling stops below the 2000 chips in play")

	st := h.tbl.State("")
	assert.Equal(t, 1280, st.BigBlind)
	assert.Equal(t, 2000, totalChips(st))
}

func TestAutoStartBeginsNextReadyUp(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.AutoStart = true
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	h.deal()

	h.act("p0", Fold())
	h.advance()
	assert.Equal(t, PhaseReadyUp, h.tbl.Phase())
	assert.Len(t, eventsOf[ReadyPrompt](h.rec), 2)
}

func TestInviteBotSeatsImmediatelyForLoneHuman(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0"})

	res, err := h.tbl.InviteBot("p0", BotProfile{Name: "caller", Strategy: "calling"}, 0)
	require.NoError(t, err)
	assert.False(t, res.PendingApproval)
	assert.Equal(t, 1, res.Seat)
	assert.NotEmpty(t, res.BotID)

	seat := h.tbl.State("").Seats[1]
	require.NotNil(t, seat)
	assert.True(t, seat.Bot)
	assert.True(t, seat.Ready)
	assert.Equal(t, "calling", seat.Strategy)
	assert.Equal(t, 1000, seat.Chips)

	_, err = h.tbl.InviteBot("stranger", BotProfile{}, 0)
	require.ErrorIs(t, err, ErrNotSeated)
}

func TestInviteBotNeedsMajority(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"})

	res, err := h.tbl.InviteBot("p0", BotProfile{Name: "shark", Strategy: "aggressive"}, 500)
	require.NoError(t, err)
	require.True(t, res.PendingApproval)
	assert.Equal(t, 3, res.Seat)

	pending := eventsOf[BotInvitePending](h.rec)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Needed)

	// The reserved seat is skipped by auto-seating.
	seat, err := h.tbl.Join(Player{ID: "p3"}, -1)
	require.NoError(t, err)
	assert.Equal(t, 4, seat)
	require.NoError(t, h.tbl.Leave("p3"))

	require.ErrorIs(t, h.tbl.ApproveBot("p1", "nope", true), ErrNoPendingInvite)
	require.NoError(t, h.tbl.ApproveBot("p1", res.InviteID, true))

	resolved := eventsOf[BotInviteResolved](h.rec)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].Approved)
	bot := h.tbl.State("").Seats[3]
	require.NotNil(t, bot)
	assert.Equal(t, resolved[0].BotID, bot.PlayerID)
	assert.Equal(t, 500, bot.Chips)
}

func TestInviteBotRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	h.seat([]string{"p0", "p1", "p2"})

	res, err := h.tbl.InviteBot("p0", BotProfile{Name: "shark"}, 0)
	require.NoError(t, err)
	require.NoError(t, h.tbl.ApproveBot("p1", res.InviteID, false))
	assert.Empty(t, eventsOf[BotInviteResolved](h.rec), "still winnable")
	require.NoError(t, h.tbl.ApproveBot("p2", res.InviteID, false))

	resolved := eventsOf[BotInviteResolved](h.rec)
	require.Len(t, resolved, 1)
	assert.False(t, resolved[0].Approved)
	assert.Nil(t, h.tbl.State("").Seats[3])

	seat, err := h.tbl.Join(Player{ID: "p3"}, 3)
	require.NoError(t, err, "rejected reservation frees the seat")
	assert.Equal(t, 3, seat)
}

// callingObserver plays every turn from inside event delivery.
type callingObserver struct {
	tbl  *Table
	mu   sync.Mutex
	errs []error
}

func (o *callingObserver) OnTableEvent(_ string, ev Event) {
	turn, ok := ev.(TurnStarted)
	if !ok {
		return
	}
	a := Check()
	if turn.ToCall > 0 {
		a = Call()
	}
	if err := o.tbl.SubmitAction(turn.PlayerID, a); err != nil {
		o.mu.Lock()
		o.errs = append(o.errs, err)
		o.mu.Unlock()
	}
}

func TestObserverMayActReentrantly(t *testing.T) {
	t.Parallel()
	h := newHarness(t, testConfig())
	obs := &callingObserver{tbl: h.tbl}
	h.tbl.AddObserver(obs)
	h.seat([]string{"p0", "p1", "p2"})
	h.deal()

	assert.Empty(t, obs.errs)
	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.False(t, results[0].Uncontested)
	assert.Equal(t, 60, results[0].Pot)
	assert.Equal(t, 3000, totalChips(h.tbl.State("")))

	// Events arrive in commit order: the hand starts before anyone acts.
	var sawStart bool
	for _, ev := range h.rec.all() {
		switch ev.(type) {
		case HandStarted:
			sawStart = true
		case PlayerActed:
			require.True(t, sawStart)
		}
	}
}

func TestRandomPlayConservesChips(t *testing.T) {
	t.Parallel()
	const players = 4
	cfg := testConfig()
	h := newHarness(t, cfg, WithRNG(rand.New(rand.NewPCG(7, 11))))
	ids := []string{"p0", "p1", "p2", "p3"}
	h.seat(ids)
	rng := rand.New(rand.NewPCG(3, 9))

	for hand := range 60 {
		h.deal()
		for steps := 0; h.tbl.Phase().IsBetting(); steps++ {
			require.Less(t, steps, 200)
			st := h.tbl.State("")
			require.Equal(t, players*cfg.BuyIn, totalChips(st))
			id := st.Seats[st.CurrentPlayer].PlayerID
			view := h.tbl.State(id)
			a := randomAction(rng, view)
			require.NoError(t, h.tbl.SubmitAction(id, a), "hand %d: %s by %s", hand, a, id)
		}
		require.Equal(t, PhaseShowdown, h.tbl.Phase())
		st := h.tbl.State("")
		require.Equal(t, players*cfg.BuyIn, totalChips(st))
		require.NotNil(t, st.LastResult)
		require.False(t, st.LastResult.Forced)
		h.advance()

		withChips := 0
		for _, s := range h.tbl.State("").Seats {
			if s != nil && s.Chips > 0 {
				withChips++
			}
		}
		if withChips < 2 {
			require.NoError(t, h.tbl.ResetGame())
		}
	}
}

func randomAction(rng *rand.Rand, view TableState) Action {
	seat := view.Seats[view.ViewerSeat]
	kind := view.LegalActions[rng.IntN(len(view.LegalActions))]
	switch kind {
	case ActionBet:
		return Bet(min(view.BigBlind*(1+rng.IntN(4)), seat.Chips))
	case ActionRaise:
		return Raise(min(view.MinRaiseTo+rng.IntN(3)*view.BigBlind, seat.CurrentBet+seat.Chips))
	default:
		return Action{Kind: kind}
	}
}

func TestNewTableRejectsBadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too many seats", func(c *Config) { c.MaxPlayers = 12 }},
		{"one seat", func(c *Config) { c.MaxPlayers = 1 }},
		{"big blind not above small", func(c *Config) { c.BigBlind = c.SmallBlind }},
		{"buy-in below big blind", func(c *Config) { c.BuyIn = 5 }},
		{"negative small blind", func(c *Config) { c.SmallBlind = -1 }},
		{"negative grace", func(c *Config) { c.DisconnectGrace = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewTable(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, "invalid_config", Code(err))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{SmallBlind: 25, BigBlind: 50}.WithDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2500, cfg.BuyIn)
	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, 30*time.Second, cfg.TurnTimeLimit)
	assert.Equal(t, 3*time.Second, cfg.CountdownDuration)
	assert.Equal(t, 5*time.Second, cfg.ShowdownDelay)
}

func TestZeroDelaysUseDefaults(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.CountdownDuration = 0
	cfg.ShowdownDelay = 0
	h := newHarness(t, cfg)
	h.seat([]string{"p0", "p1"})
	require.NoError(t, h.tbl.StartReadyUp(""))
	require.NoError(t, h.tbl.Ready("p0"))
	require.NoError(t, h.tbl.Ready("p1"))
	require.Equal(t, PhaseCountdown, h.tbl.Phase())
	ticks := eventsOf[CountdownUpdate](h.rec)
	require.Len(t, ticks, 1)
	assert.Equal(t, 3*time.Second, ticks[0].Remaining)

	for h.tbl.Phase() == PhaseCountdown {
		h.advance()
	}
	h.act("p0", Fold())
	require.Equal(t, PhaseShowdown, h.tbl.Phase())
	d, pending := h.clk.Peek()
	require.True(t, pending)
	assert.Equal(t, 5*time.Second, d)
}

func TestCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "not_your_turn", Code(ErrNotYourTurn))
	assert.Equal(t, "deck_exhausted", Code(poker.ErrDeckExhausted))
	assert.Equal(t, "internal", Code(errors.New("boom")))
}

func TestExhaustedDeckForcesResolution(t *testing.T) {
	t.Parallel()
	calls := 0
	factory := WithDeckFactory(func() *poker.Deck {
		calls++
		d := poker.NewDeck(rand.New(rand.NewPCG(1, 2)))
		// Leave only the hole cards.
		_, err := d.Draw(poker.DeckSize - 4)
		require.NoError(t, err)
		return d
	})
	h := newHarness(t, testConfig(), factory)
	h.seat([]string{"p0", "p1"})
	h.deal()
	h.act("p0", Call())

	results := eventsOf[HandComplete](h.rec)
	require.Len(t, results, 1)
	assert.True(t, results[0].Forced)
	assert.Equal(t, 40, results[0].Pot)
	assert.Equal(t, map[int]int{1: 40}, results[0].Awards)
	assert.Equal(t, 2000, totalChips(h.tbl.State("")))
	assert.Equal(t, 1, calls)
}
