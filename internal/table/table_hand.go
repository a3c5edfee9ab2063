package table

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/poker"
)

// SubmitAction performs a player's betting action.
func (t *Table) SubmitAction(playerID string, a Action) error {
	return t.mutate(func() error {
		if !t.phase.IsBetting() {
			return fmt.Errorf("%w: no betting in %s", ErrWrongPhase, t.phase)
		}
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		if idx != t.current {
			return ErrNotYourTurn
		}
		if err := t.round.Validate(idx, a); err != nil {
			return err
		}
		return t.applyAction(idx, a, false)
	})
}

func (t *Table) applyAction(idx int, a Action, timeout bool) error {
	s := t.seats[idx]
	committed := t.round.Apply(idx, a)
	t.pot += committed
	t.cancelTimer(timerTurn)
	t.turnSeq++

	t.logger.Debug().
		Str("hand_id", t.handID).
		Str("player_id", s.PlayerID).
		Stringer("action", a).
		Int("committed", committed).
		Int("pot", t.pot).
		Bool("timeout", timeout).
		Msg("Player acted")
	t.emit(PlayerActed{
		PlayerID:  s.PlayerID,
		Seat:      idx,
		Action:    a,
		Committed: committed,
		Pot:       t.pot,
		IsTimeout: timeout,
	})
	if timeout && a.Kind == ActionFold {
		t.emit(AutoFold{PlayerID: s.PlayerID, Seat: idx})
	}
	return t.advance(idx)
}

// advance moves action on after seat 'from' acted.
func (t *Table) advance(from int) error {
	if t.liveCount() <= 1 {
		return t.finishUncontested()
	}
	next := t.round.NextActor(from)
	if next < 0 {
		return t.endStreet()
	}
	t.startTurn(next)
	return nil
}

func (t *Table) liveCount() int {
	n := 0
	for _, s := range t.seats {
		if s.Live() {
			n++
		}
	}
	return n
}

func (t *Table) activeCount() int {
	n := 0
	for _, s := range t.seats {
		if s.CanAct() {
			n++
		}
	}
	return n
}

// nextInHand returns the first seat clockwise after i that is dealt in.
func (t *Table) nextInHand(i int) int {
	n := len(t.seats)
	for k := 1; k <= n; k++ {
		j := ((i+k)%n + n) % n
		if t.seats[j].InHand() {
			return j
		}
	}
	return -1
}

func (t *Table) startHandOrWait() {
	if err := t.startHand(); err != nil {
		t.logger.Error().Err(err).Msg("Failed to start hand")
	}
}

func (t *Table) startHand() error {
	if t.nextBlinds[1] > 0 {
		t.smallBlind, t.bigBlind = t.nextBlinds[0], t.nextBlinds[1]
		t.nextBlinds = [2]int{}
		t.logger.Info().Int("small_blind", t.smallBlind).Int("big_blind", t.bigBlind).Msg("Blinds increased")
		t.emit(BlindsIncreased{SmallBlind: t.smallBlind, BigBlind: t.bigBlind})
	}

	var players []int
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		s.resetHand()
		if s.playing() {
			players = append(players, i)
		}
	}
	if len(players) < 2 {
		t.logger.Info().Int("players", len(players)).Msg("Not enough players to deal")
		t.phase = PhaseWaiting
		t.stopBlindsIfIdle()
		return nil
	}
	for _, i := range players {
		t.seats[i].inHand = true
	}

	t.handNumber++
	t.handID = uuid.NewString()
	t.board = nil
	t.revealed = nil
	t.pot = 0
	t.dealer = t.nextInHand(t.dealer)
	if len(players) == 2 {
		t.sbSeat = t.dealer
	} else {
		t.sbSeat = t.nextInHand(t.dealer)
	}
	t.bbSeat = t.nextInHand(t.sbSeat)
	t.deck = t.newDeck()

	t.handChips = 0
	for _, i := range players {
		t.handChips += t.seats[i].Chips
	}
	t.pot += t.seats[t.sbSeat].commit(t.smallBlind)
	t.pot += t.seats[t.bbSeat].commit(t.bigBlind)

	t.phase = PhasePreflop
	t.round = NewBettingRound(t.seats, t.bigBlind, t.bigBlind)
	t.round.markPosted(t.bbSeat)
	t.logger.Info().
		Str("hand_id", t.handID).
		Int("hand_number", t.handNumber).
		Int("dealer", t.dealer).
		Ints("seats", players).
		Msg("Hand started")
	t.emit(HandStarted{
		HandID:     t.handID,
		HandNumber: t.handNumber,
		Dealer:     t.dealer,
		SmallBlind: t.sbSeat,
		BigBlind:   t.bbSeat,
		Blinds:     [2]int{t.smallBlind, t.bigBlind},
		Seats:      players,
	})

	// One card at a time, starting left of the dealer.
	for range 2 {
		for k, i := 0, t.dealer; k < len(players); k++ {
			i = t.nextInHand(i)
			cards, err := t.deck.Draw(1)
			if err != nil {
				return t.forceResolve(err)
			}
			t.seats[i].HoleCards = append(t.seats[i].HoleCards, cards[0])
		}
	}

	if t.cfg.BlindIncreaseInterval > 0 && t.timers[timerBlinds] == nil {
		t.armBlindIncrease()
	}
	return t.advance(t.bbSeat)
}

func (t *Table) startTurn(idx int) {
	t.current = idx
	t.turnSeq++
	seq := t.turnSeq
	t.turnDeadline = t.clock.Now().Add(t.cfg.TurnTimeLimit)
	t.arm(timerTurn, t.cfg.TurnTimeLimit, func() error {
		if !t.phase.IsBetting() || t.turnSeq != seq || t.current != idx {
			return errStale
		}
		a := Fold()
		if t.round.ToCall(idx) == 0 {
			a = Check()
		}
		t.logger.Warn().Str("player_id", t.seats[idx].PlayerID).Stringer("action", a).Msg("Turn timed out")
		return t.applyAction(idx, a, true)
	})
	s := t.seats[idx]
	t.emit(TurnStarted{
		PlayerID: s.PlayerID,
		Seat:     idx,
		ToCall:   t.round.ToCall(idx),
		Legal:    t.round.LegalActions(idx),
		Deadline: t.turnDeadline,
		Turn:     seq,
	})
}

// endStreet deals the next street, running the board out without betting
// when fewer than two seats can still act.
func (t *Table) endStreet() error {
	t.current = -1
	for {
		for _, s := range t.seats {
			if s != nil {
				s.CurrentBet = 0
			}
		}
		if t.phase == PhaseRiver {
			return t.showdown()
		}
		n := 1
		if t.phase == PhasePreflop {
			n = 3
		}
		// Burn one.
		if _, err := t.deck.Draw(1); err != nil {
			return t.forceResolve(err)
		}
		cards, err := t.deck.Draw(n)
		if err != nil {
			return t.forceResolve(err)
		}
		t.phase++
		t.board = append(t.board, cards...)
		t.round = NewBettingRound(t.seats, t.bigBlind, 0)
		t.logger.Debug().Str("hand_id", t.handID).Stringer("street", t.phase).Str("board", poker.FormatCards(t.board)).Msg("Street dealt")
		t.emit(StreetDealt{
			Phase: t.phase,
			Cards: cards,
			Board: append([]poker.Card(nil), t.board...),
		})
		if t.activeCount() >= 2 {
			t.startTurn(t.round.NextActor(t.dealer))
			return nil
		}
	}
}

func (t *Table) contributions() []Contribution {
	var out []Contribution
	for i, s := range t.seats {
		if s.InHand() {
			out = append(out, Contribution{Seat: i, Amount: s.TotalBet, Folded: s.Folded})
		}
	}
	return out
}

func (t *Table) showdown() error {
	t.phase = PhaseShowdown
	ranks := make(map[int]poker.HandRank)
	t.revealed = make(map[int][]poker.Card)
	for i, s := range t.seats {
		if !s.Live() {
			continue
		}
		cards := append(append([]poker.Card(nil), s.HoleCards...), t.board...)
		rank, err := poker.Evaluate(cards)
		if err != nil {
			return t.forceResolve(err)
		}
		ranks[i] = rank
		t.revealed[i] = s.HoleCards
	}

	pots := BuildPots(t.contributions())
	result := t.newResult()
	result.Revealed = t.revealed
	total := 0
	for _, pot := range pots {
		var winners []int
		var best poker.HandRank
		for _, i := range pot.Eligible {
			rank := ranks[i]
			switch c := poker.Compare(rank, best); {
			case len(winners) == 0 || c > 0:
				winners, best = []int{i}, rank
			case c == 0:
				winners = append(winners, i)
			}
		}
		for seat, amount := range splitPot(pot.Amount, winners, t.dealer, len(t.seats)) {
			result.Awards[seat] += amount
			total += amount
		}
		result.Pots = append(result.Pots, PotResult{
			Amount:   pot.Amount,
			Eligible: pot.Eligible,
			Winners:  winners,
			HandName: best.Describe(),
		})
	}
	if total != t.pot {
		return t.forceResolve(fmt.Errorf("pot conservation violated: awarded %d of %d", total, t.pot))
	}
	for seat, amount := range result.Awards {
		t.seats[seat].Chips += amount
		result.Winners = append(result.Winners, Winner{
			PlayerID: t.seats[seat].PlayerID,
			Seat:     seat,
			Amount:   amount,
			HandName: ranks[seat].Describe(),
		})
	}
	sortWinners(result.Winners)
	if err := t.checkConservation(); err != nil {
		return t.forceResolve(err)
	}
	return t.completeHand(result)
}

func (t *Table) newResult() *HandComplete {
	r := &HandComplete{
		HandID:     t.handID,
		HandNumber: t.handNumber,
		Board:      append([]poker.Card(nil), t.board...),
		Pot:        t.pot,
		Awards:     make(map[int]int),
	}
	for _, s := range t.seats {
		if s.InHand() {
			r.Players = append(r.Players, s.PlayerID)
		}
	}
	return r
}

// checkConservation verifies that once the pot is paid out the seats dealt
// in hold exactly what they held at hand start.
func (t *Table) checkConservation() error {
	sum := 0
	for _, s := range t.seats {
		if s.InHand() {
			sum += s.Chips
		}
	}
	if sum != t.handChips {
		return fmt.Errorf("chip conservation violated: %d in play, %d at hand start", sum, t.handChips)
	}
	return nil
}

func (t *Table) finishUncontested() error {
	winner := -1
	for i, s := range t.seats {
		if s.Live() {
			winner = i
			break
		}
	}
	if winner < 0 {
		return t.forceResolve(fmt.Errorf("no live seat left in hand %s", t.handID))
	}
	t.phase = PhaseShowdown
	s := t.seats[winner]
	result := t.newResult()
	result.Uncontested = true
	result.Awards[winner] = t.pot
	result.Pots = []PotResult{{Amount: t.pot, Eligible: []int{winner}, Winners: []int{winner}}}
	result.Winners = []Winner{{PlayerID: s.PlayerID, Seat: winner, Amount: t.pot}}
	s.Chips += t.pot
	return t.completeHand(result)
}

// forceResolve ends a hand that hit an internal invariant violation. Chips
// already credited by the failed resolution are rolled back and the whole
// pot goes to the first live seat after the dealer.
func (t *Table) forceResolve(cause error) error {
	t.logger.Error().
		Err(cause).
		Str("hand_id", t.handID).
		Stringer("phase", t.phase).
		Int("pot", t.pot).
		Str("board", poker.FormatCards(t.board)).
		Array("seats", seatsLog(t.seats)).
		Msg("Hand invariant violated, forcing resolution")

	var candidates []int
	for i, s := range t.seats {
		if s.Live() {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i, s := range t.seats {
			if s.InHand() {
				candidates = append(candidates, i)
			}
		}
	}
	if len(candidates) == 0 {
		t.clearHand()
		t.phase = PhaseWaiting
		return nil
	}

	// Restore every stack to its pre-award value, then pay the pot out once.
	sum := 0
	for _, s := range t.seats {
		if s.InHand() {
			sum += s.Chips
		}
	}
	if over := sum + t.pot - t.handChips; over > 0 {
		for _, i := range candidates {
			take := min(over, t.seats[i].Chips)
			t.seats[i].Chips -= take
			over -= take
		}
	}

	winner := firstAfter(candidates, t.dealer, len(t.seats))
	t.phase = PhaseShowdown
	s := t.seats[winner]
	s.Chips += t.pot
	result := t.newResult()
	result.Forced = true
	result.Awards[winner] = t.pot
	result.Pots = []PotResult{{Amount: t.pot, Eligible: candidates, Winners: []int{winner}}}
	result.Winners = []Winner{{PlayerID: s.PlayerID, Seat: winner, Amount: t.pot}}
	return t.completeHand(result)
}

// completeHand publishes the result, settles departures and busts, and
// arms the delay back to waiting.
func (t *Table) completeHand(result *HandComplete) error {
	t.cancelTimer(timerTurn)
	t.current = -1
	t.round = nil
	t.pot = 0
	t.handsPlayed++
	t.lastResult = result

	t.logger.Info().
		Str("hand_id", result.HandID).
		Int("pot", result.Pot).
		Bool("uncontested", result.Uncontested).
		Bool("forced", result.Forced).
		Interface("awards", result.Awards).
		Msg("Hand complete")
	t.emit(*result)

	eliminated := 0
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		s.inHand = false
		s.CurrentBet = 0
		switch {
		case s.leaving:
			t.removeSeat(i, s.leaveReason)
		case s.Chips == 0 && !s.SittingOut:
			eliminated++
			s.SittingOut = true
			t.emit(PlayerEliminated{
				PlayerID:   s.PlayerID,
				Seat:       i,
				HandNumber: result.HandNumber,
				Remaining:  t.withChips(),
			})
			if s.Bot {
				t.removeSeat(i, "eliminated")
			}
		}
	}

	if eliminated > 0 && t.withChips() == 1 {
		for i, s := range t.seats {
			if s != nil && s.Chips > 0 {
				t.gameOver = true
				t.logger.Info().Str("winner_id", s.PlayerID).Int("hands", t.handsPlayed).Msg("Game over")
				t.emit(GameOver{WinnerID: s.PlayerID, Seat: i, Chips: s.Chips, Hands: t.handsPlayed})
				break
			}
		}
	}

	t.arm(timerShowdown, t.cfg.ShowdownDelay, func() error {
		if t.phase != PhaseShowdown {
			return errStale
		}
		t.afterShowdown()
		return nil
	})
	return nil
}

func (t *Table) afterShowdown() {
	t.phase = PhaseWaiting
	t.stopBlindsIfIdle()
	if t.cfg.AutoStart && !t.gameOver && t.playingCount() >= 2 {
		t.beginReadyUp()
	}
}

func (t *Table) withChips() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.Chips > 0 {
			n++
		}
	}
	return n
}

func sortWinners(ws []Winner) {
	slices.SortFunc(ws, func(a, b Winner) int { return a.Seat - b.Seat })
}

type seatsLog []*Seat

func (sl seatsLog) MarshalZerologArray(a *zerolog.Array) {
	for i, s := range sl {
		if s == nil {
			continue
		}
		a.Dict(zerolog.Dict().
			Int("seat", i).
			Str("player_id", s.PlayerID).
			Int("chips", s.Chips).
			Int("total_bet", s.TotalBet).
			Bool("folded", s.Folded).
			Bool("all_in", s.AllIn))
	}
}
