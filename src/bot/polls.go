package bot

import (
	"fmt"
	"log"
	"time"

	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/discord"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/bwmarrin/discordgo"
)

// maxPollCandidates keeps the vote buttons within Discord's component
// limit of five rows: four rows of candidates plus the control row.
const maxPollCandidates = 20

func (b *Bot) cmdRegionPoll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	office := stringOption(opts, "office")
	state := stringOption(opts, "state")
	pollType := stringOption(opts, "type")
	party := stringOption(opts, "party")

	if !deferReply(s, i) {
		return
	}

	clock, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	table := ledger.TableSignups
	if clock.Phase.IsGeneral() {
		table = ledger.TableGeneral
	}

	if pollType == "simulated" {
		res, err := b.polls.SimulateRegion(b.ctx, table, office, state, party)
		if err != nil {
			b.renderErr(s, i, err)
			return
		}
		followUpEmbed(s, i, discord.BuildRegionPollEmbed(res))
		return
	}

	b.launchLivePoll(s, i, table, office, state, party)
}

func (b *Bot) launchLivePoll(s *discordgo.Session, i *discordgo.InteractionCreate, table, office, state, party string) {
	ref := &messageRef{}

	p, err := b.polls.Launch(b.ctx, poll.LaunchRequest{
		CreatorID:   b.userID(i),
		SourceTable: table,
		Office:      office,
		State:       state,
		Party:       party,
		OnCountdown: func(p *poll.Poll, remaining time.Duration) {
			channelID, messageID, ok := ref.get()
			if !ok {
				return
			}
			embeds := []*discordgo.MessageEmbed{discord.BuildPollEmbed(p, remaining)}
			_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
				Channel: channelID,
				ID:      messageID,
				Embeds:  &embeds,
			})
			if err != nil {
				log.Printf("Poll %s: countdown redraw failed: %v", p.ID, err)
			}
		},
		OnClose: func(p *poll.Poll, res poll.Results) {
			b.publishEvent(map[string]interface{}{
				"event":   "poll_closed",
				"office":  p.Office,
				"state":   p.State,
				"party":   p.Party,
				"votes":   res.TotalVotes,
				"winners": len(res.WinnerIdxs),
			})
			channelID, messageID, ok := ref.get()
			if !ok {
				return
			}
			embeds := []*discordgo.MessageEmbed{discord.BuildPollResultsEmbed(p, res)}
			_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
				Channel:    channelID,
				ID:         messageID,
				Embeds:     &embeds,
				Components: &[]discordgo.MessageComponent{},
			})
			if err != nil {
				log.Printf("Poll %s: results redraw failed: %v", p.ID, err)
			}
		},
	})
	if err != nil {
		b.renderErr(s, i, err)
		return
	}

	msg, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{discord.BuildPollEmbed(p, p.Remaining())},
		Components: voteButtonRows(p),
	})
	if err != nil {
		log.Printf("Poll %s: failed to post poll message: %v", p.ID, err)
		if closeErr := b.polls.Close(p.ID, p.CreatorID, true); closeErr != nil && closeErr != types.ErrNotFound {
			log.Printf("Poll %s: cleanup close failed: %v", p.ID, closeErr)
		}
		return
	}
	ref.set(msg.ChannelID, msg.ID)
}

func voteButtonRows(p *poll.Poll) []discordgo.MessageComponent {
	candidates := p.Candidates
	if len(candidates) > maxPollCandidates {
		candidates = candidates[:maxPollCandidates]
	}

	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent
	for idx, c := range candidates {
		label := fmt.Sprintf("%d. %s", idx+1, c.Name)
		if len(label) > 80 {
			label = label[:80]
		}
		row = append(row, discordgo.Button{
			Label:    label,
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("vote:%s:%d", p.ID, idx),
		})
		if len(row) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}

	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Close poll",
			Style:    discordgo.DangerButton,
			CustomID: "pollstop:" + p.ID,
		},
	}})
	return rows
}
