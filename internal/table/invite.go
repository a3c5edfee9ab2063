package table

import (
	"fmt"

	"github.com/google/uuid"
)

// BotProfile names a bot and the strategy that drives it.
type BotProfile struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
}

// InviteResult reports where an invited bot sits, or will sit once approved.
type InviteResult struct {
	InviteID        string `json:"invite_id,omitempty"`
	BotID           string `json:"bot_id,omitempty"`
	Seat            int    `json:"seat"`
	PendingApproval bool   `json:"pending_approval"`
}

type botInvite struct {
	id        string
	inviterID string
	profile   BotProfile
	chips     int
	seat      int
	votes     map[string]bool
}

// InviteBot reserves a seat for a bot. When the inviter is the only human
// at the table the bot sits immediately; otherwise a majority of seated
// humans must approve it through ApproveBot.
func (t *Table) InviteBot(inviterID string, profile BotProfile, buyIn int) (InviteResult, error) {
	var res InviteResult
	err := t.mutate(func() error {
		if t.seatOf(inviterID) < 0 && inviterID != t.cfg.CreatorID {
			return ErrNotSeated
		}
		seat := t.freeSeat()
		if seat < 0 {
			return ErrTableFull
		}
		if buyIn <= 0 {
			buyIn = t.cfg.BuyIn
		}
		if profile.Name == "" {
			profile.Name = "bot"
		}
		inv := &botInvite{
			id:        uuid.NewString(),
			inviterID: inviterID,
			profile:   profile,
			chips:     buyIn,
			seat:      seat,
			votes:     make(map[string]bool),
		}
		humans := t.humans()
		if len(humans) == 0 || (len(humans) == 1 && humans[0] == inviterID) {
			botID, err := t.seatBot(inv)
			res = InviteResult{BotID: botID, Seat: seat}
			return err
		}

		t.invites[inv.id] = inv
		t.reserved[seat] = inv.id
		if t.seatOf(inviterID) >= 0 {
			inv.votes[inviterID] = true
		}
		res = InviteResult{InviteID: inv.id, Seat: seat, PendingApproval: true}
		t.logger.Info().Str("invite_id", inv.id).Str("inviter_id", inviterID).Str("bot", profile.Name).Msg("Bot invite pending approval")
		t.emit(BotInvitePending{
			InviteID:  inv.id,
			InviterID: inviterID,
			BotName:   profile.Name,
			Seat:      seat,
			Needed:    len(humans)/2 + 1,
		})
		t.resolveInvite(inv)
		return nil
	})
	return res, err
}

// ApproveBot records a seated human's vote on a pending invite.
func (t *Table) ApproveBot(playerID, inviteID string, approve bool) error {
	return t.mutate(func() error {
		inv, ok := t.invites[inviteID]
		if !ok {
			return ErrNoPendingInvite
		}
		idx := t.seatOf(playerID)
		if idx < 0 || t.seats[idx].Bot {
			return ErrNotSeated
		}
		inv.votes[playerID] = approve
		t.resolveInvite(inv)
		return nil
	})
}

// resolveInvite seats or discards the bot once the vote is decided.
func (t *Table) resolveInvite(inv *botInvite) {
	humans := t.humans()
	needed := len(humans)/2 + 1
	yes, no := 0, 0
	for _, id := range humans {
		vote, voted := inv.votes[id]
		switch {
		case !voted:
		case vote:
			yes++
		default:
			no++
		}
	}

	switch {
	case yes >= needed:
		delete(t.invites, inv.id)
		delete(t.reserved, inv.seat)
		botID, err := t.seatBot(inv)
		if err != nil {
			t.logger.Warn().Err(err).Str("invite_id", inv.id).Msg("Approved bot could not be seated")
			t.emit(BotInviteResolved{InviteID: inv.id, Approved: false, Seat: inv.seat})
			return
		}
		t.emit(BotInviteResolved{InviteID: inv.id, Approved: true, BotID: botID, Seat: inv.seat})
	case len(humans)-no < needed:
		delete(t.invites, inv.id)
		delete(t.reserved, inv.seat)
		t.logger.Info().Str("invite_id", inv.id).Msg("Bot invite rejected")
		t.emit(BotInviteResolved{InviteID: inv.id, Approved: false, Seat: inv.seat})
	}
}

func (t *Table) seatBot(inv *botInvite) (string, error) {
	botID := fmt.Sprintf("bot-%s", uuid.NewString()[:8])
	_, err := t.join(Player{
		ID:       botID,
		Name:     inv.profile.Name,
		Chips:    inv.chips,
		Bot:      true,
		Strategy: inv.profile.Strategy,
	}, inv.seat)
	return botID, err
}

func (t *Table) humans() []string {
	var ids []string
	for _, s := range t.seats {
		if s != nil && !s.Bot {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}
