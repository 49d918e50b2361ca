package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/aprp/electionbot/src/components/session"
	"github.com/aprp/electionbot/src/types"
	"github.com/bwmarrin/discordgo"
)

// messageRef is a handle to a message that async callbacks edit. The
// callbacks can fire before the message is posted, so access is guarded
// and a no-op until the ref is set.
type messageRef struct {
	mu        sync.Mutex
	channelID string
	messageID string
}

func (r *messageRef) set(channelID, messageID string) {
	r.mu.Lock()
	r.channelID = channelID
	r.messageID = messageID
	r.mu.Unlock()
}

func (r *messageRef) get() (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channelID, r.messageID, r.messageID != ""
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	parts := strings.SplitN(customID, ":", 3)
	switch parts[0] {
	case "seat":
		if len(parts) == 3 {
			b.handleSeatButton(s, i, parts[1], parts[2])
		}
	case "vote":
		if len(parts) == 3 {
			b.handleVoteButton(s, i, parts[1], parts[2])
		}
	case "pollstop":
		if len(parts) == 2 {
			b.handlePollStop(s, i, parts[1])
		}
	default:
		log.Printf("Unknown component ID %q", customID)
	}
}

// --- signup seat selection ---

func (b *Bot) openSeatButtons(s *discordgo.Session, i *discordgo.InteractionCreate, userID, name, party, state string, seats []types.Seat) {
	ref := &messageRef{}
	sess := b.sessions.Open(userID, name, party, state, seats, func(_ *session.Session) {
		channelID, messageID, ok := ref.get()
		if !ok {
			return
		}
		content := "Seat selection timed out. Run `/signup` again when you're ready."
		_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel:    channelID,
			ID:         messageID,
			Content:    &content,
			Components: &[]discordgo.MessageComponent{},
		})
		if err != nil {
			log.Printf("Failed to expire seat selection message: %v", err)
		}
	})

	msg, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:    fmt.Sprintf("**%s**, pick the seat you want to contest in %s (60 seconds):", name, state),
		Components: seatButtonRows(sess.ID, seats),
	})
	if err != nil {
		log.Printf("Failed to post seat buttons: %v", err)
		b.sessions.Cancel(sess.ID)
		return
	}
	ref.set(msg.ChannelID, msg.ID)
}

func seatButtonRows(sessionID string, seats []types.Seat) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for _, seat := range seats {
		label := seat.SeatID
		if seat.Office != "" {
			label = fmt.Sprintf("%s (%s)", seat.SeatID, seat.Office)
		}
		if len(label) > 80 {
			label = label[:80]
		}
		row = append(row, discordgo.Button{
			Label:    label,
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("seat:%s:%s", sessionID, seat.SeatID),
		})
		if len(row) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func (b *Bot) handleSeatButton(s *discordgo.Session, i *discordgo.InteractionCreate, sessionID, seatID string) {
	userID := b.userID(i)

	sess, seat, ok := b.sessions.Resolve(sessionID, userID, seatID)
	if !ok {
		ephemeral(s, i, "This seat selection isn't yours, or it has already finished.")
		return
	}

	clock, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.respondSeatOutcome(s, i, "An error occurred. Please run `/signup` again.")
		return
	}
	if clock.Phase != types.PhaseSignups {
		b.respondSeatOutcome(s, i, "Signups are closed!")
		return
	}

	c, err := b.candidacies.Signup(b.ctx, sess.UserID, sess.Name, sess.Party, seat.SeatID, sess.State, seat.Office, clock.Phase)
	if err != nil {
		if types.IsUserError(err) {
			b.respondSeatOutcome(s, i, err.Error())
		} else {
			log.Printf("Signup for %s failed: %v", sess.Name, err)
			b.respondSeatOutcome(s, i, "An error occurred. Please run `/signup` again.")
		}
		return
	}

	b.publishEvent(map[string]interface{}{
		"event": "signup",
		"name":  c.Name,
		"seat":  c.SeatID,
		"party": c.Party,
		"state": c.State,
	})
	b.respondSeatOutcome(s, i, fmt.Sprintf("**%s** (%s) is running for %s in %s! Good luck on the trail. 🎉",
		c.Name, c.Party, c.Office, c.State))
}

// respondSeatOutcome replaces the seat-button message with the outcome,
// dropping the buttons so the one-shot window can't be clicked again.
func (b *Bot) respondSeatOutcome(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		log.Printf("Failed to update seat selection message: %v", err)
	}
}

// --- poll buttons ---

func (b *Bot) handleVoteButton(s *discordgo.Session, i *discordgo.InteractionCreate, pollID, rawIdx string) {
	idx, err := strconv.Atoi(rawIdx)
	if err != nil {
		return
	}
	voterID := b.userID(i)

	if !b.polls.Vote(pollID, voterID, idx) {
		// Closed poll or stale button. Acknowledge without a message.
		ackUpdate(s, i)
		return
	}

	p, ok := b.polls.Get(pollID)
	if ok && idx >= 0 && idx < len(p.Candidates) {
		ephemeral(s, i, fmt.Sprintf("Vote recorded for **%s**. You can change it while the poll is open.", p.Candidates[idx].Name))
		return
	}
	ackUpdate(s, i)
}

func (b *Bot) handlePollStop(s *discordgo.Session, i *discordgo.InteractionCreate, pollID string) {
	err := b.polls.Close(pollID, b.userID(i), b.isAdmin(i))
	if err != nil {
		if types.IsUserError(err) {
			ephemeral(s, i, err.Error())
		} else {
			ephemeral(s, i, "This poll has already closed.")
		}
		return
	}
	ackUpdate(s, i)
}

// ackUpdate acknowledges a component click without changing anything.
func ackUpdate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Printf("Failed to acknowledge component click: %v", err)
	}
}
