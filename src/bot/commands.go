package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/aprp/electionbot/src/components/campaign"
	"github.com/aprp/electionbot/src/data"
	"github.com/aprp/electionbot/src/discord"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/bwmarrin/discordgo"
)

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	switch name {
	case discord.CommandSignup:
		b.cmdSignup(s, i)
	case discord.CommandWithdraw:
		b.cmdWithdraw(s, i)
	case discord.CommandSpeech:
		b.cmdAction(s, i, campaign.ActionSpeech)
	case discord.CommandCanvassing:
		b.cmdAction(s, i, campaign.ActionCanvassing)
	case discord.CommandDonor:
		b.cmdAction(s, i, campaign.ActionDonor)
	case discord.CommandSpecial:
		b.cmdAction(s, i, campaign.ActionSpecial)
	case discord.CommandAd:
		b.cmdAction(s, i, campaign.ActionAd)
	case discord.CommandPoster:
		b.cmdAction(s, i, campaign.ActionPoster)
	case discord.CommandRegionPoll:
		b.cmdRegionPoll(s, i)
	case discord.CommandListSignups:
		b.cmdListSignups(s, i)
	case discord.CommandTime:
		b.cmdTime(s, i)
	case discord.CommandTallyWinners:
		b.cmdTallyWinners(s, i)
	case discord.CommandTransferWinners:
		b.cmdTransferWinners(s, i)
	case discord.CommandPause:
		b.cmdPause(s, i)
	case discord.CommandChangeDate:
		b.cmdChangeDate(s, i)
	default:
		log.Printf("Unknown command %q", name)
	}
}

// --- responders ---

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return false
	}
	return true
}

func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content}); err != nil {
		log.Printf("Failed to send followup: %v", err)
	}
}

func followUpEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		log.Printf("Failed to send followup embed: %v", err)
	}
}

func ephemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Failed to send ephemeral response: %v", err)
	}
}

// renderErr reports domain errors verbatim and masks storage trouble.
func (b *Bot) renderErr(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if types.IsUserError(err) {
		followUp(s, i, err.Error())
		return
	}
	log.Printf("Command %s failed: %v", i.ApplicationCommandData().Name, err)
	followUp(s, i, "An error occurred. Please try again or contact an admin.")
}

// --- option helpers ---

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		out[opt.Name] = opt
	}
	return out
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func attachmentName(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := opts[name]
	if !ok {
		return ""
	}
	resolved := i.ApplicationCommandData().Resolved
	if resolved == nil {
		return ""
	}
	if att, ok := resolved.Attachments[opt.Value.(string)]; ok {
		return att.Filename
	}
	return ""
}

// --- player commands ---

func (b *Bot) cmdSignup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	state := stringOption(opts, "state")
	name := stringOption(opts, "name")
	party := stringOption(opts, "party")
	userID := b.userID(i)

	if !deferReply(s, i) {
		return
	}

	clock, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	if clock.Phase != types.PhaseSignups {
		followUp(s, i, "Signups are closed!")
		return
	}

	if _, found, err := b.candidacies.FindByOwner(b.ctx, userID); err != nil {
		b.renderErr(s, i, err)
		return
	} else if found {
		followUp(s, i, "You are already signed up! Use `/withdraw` to cancel your current candidacy.")
		return
	}

	seats, err := b.clock.EligibleSeats(b.ctx, clock.Year, state)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	if len(seats) == 0 {
		followUp(s, i, fmt.Sprintf("No eligible seats for %s in %d.", state, clock.Year))
		return
	}
	if len(seats) > 25 {
		// Discord allows at most 25 buttons on one message.
		seats = seats[:25]
	}

	b.openSeatButtons(s, i, userID, name, party, state, seats)
}

func (b *Bot) cmdWithdraw(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	name := stringOption(opts, "name")
	userID := b.userID(i)

	if !deferReply(s, i) {
		return
	}

	c, err := b.candidacies.Withdraw(b.ctx, userID, name)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	followUp(s, i, fmt.Sprintf("**%s** has withdrawn from the %s race in %s.", c.Name, c.Office, c.State))
}

func (b *Bot) cmdAction(s *discordgo.Session, i *discordgo.InteractionCreate, action campaign.Action) {
	opts := options(i)
	userID := b.userID(i)

	if wait, ok := b.cooldowns.Try(userID); !ok {
		ephemeral(s, i, fmt.Sprintf("Please wait %d seconds before your next campaign action.", int(wait.Seconds())+1))
		return
	}

	if !deferReply(s, i) {
		return
	}

	req := campaign.Request{
		Action:  action,
		OwnerID: userID,
		Name:    stringOption(opts, "name"),
		Text:    stringOption(opts, "text"),
	}
	switch action {
	case campaign.ActionAd:
		req.Attachment = attachmentName(i, opts, "video")
	case campaign.ActionPoster:
		req.Attachment = attachmentName(i, opts, "image")
	}

	res, err := b.actions.Perform(b.ctx, req)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}

	title, detail := actionSummary(action, res)
	followUpEmbed(s, i, discord.BuildActionEmbed(title, detail, res.Candidacy))
}

func actionSummary(action campaign.Action, res campaign.Result) (string, string) {
	name := res.Candidacy.Name
	switch action {
	case campaign.ActionSpeech:
		return "🎤 Speech", fmt.Sprintf("**%s** gave a speech and gained %.0f points!", name, res.Yield)
	case campaign.ActionCanvassing:
		return "🚪 Canvassing", fmt.Sprintf("**%s** went canvassing and gained %.2f points!", name, res.Yield)
	case campaign.ActionDonor:
		return "💰 Donors", fmt.Sprintf("**%s** courted donors and gained %.0f points! Corruption is rising.", name, res.Yield)
	case campaign.ActionSpecial:
		return "🤝 Special Interests", fmt.Sprintf("**%s** pleased the special interests: %d paragraphs, %.0f points! Corruption is rising.",
			name, res.Paragraphs, res.Yield)
	case campaign.ActionAd:
		return "📺 Campaign Ad", fmt.Sprintf("**%s** ran an ad and gained %.0f points!", name, res.Yield)
	case campaign.ActionPoster:
		return "🪧 Posters", fmt.Sprintf("**%s** put up posters and gained %.2f points!", name, res.Yield)
	}
	return "Campaign", fmt.Sprintf("**%s** gained %.1f points!", name, res.Yield)
}

func (b *Bot) cmdListSignups(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	state := stringOption(opts, "state")
	seat := stringOption(opts, "seat")

	if !deferReply(s, i) {
		return
	}

	records, err := b.candidacies.List(b.ctx, ledger.TableSignups)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}

	var lines []string
	for _, c := range records {
		if c.UserID == "" || !strings.EqualFold(c.State, state) {
			continue
		}
		if seat != "" && !strings.EqualFold(c.SeatID, seat) {
			continue
		}
		line := fmt.Sprintf("**%s** (%s) — %s %s — %.1f pts", c.Name, c.Party, c.SeatID, c.Office, c.Points)
		if c.Status != "" {
			line += " [" + c.Status + "]"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		followUp(s, i, fmt.Sprintf("No signups in %s.", state))
		return
	}
	followUpEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🗳️ Signups in " + state,
		Description: strings.Join(lines, "\n"),
		Color:       discord.ColorInfo,
	})
}

func (b *Bot) cmdTime(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferReply(s, i) {
		return
	}
	state, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	followUpEmbed(s, i, discord.BuildTimeEmbed(state))
}

// --- admin commands ---

func (b *Bot) cmdTallyWinners(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		ephemeral(s, i, "You need administrator permissions to use this command!")
		return
	}
	if !deferReply(s, i) {
		return
	}

	summary, err := b.tally.TallyWinners(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	b.publishEvent(map[string]interface{}{
		"event":   "tally",
		"winners": summary.Winners,
		"skipped": summary.Skipped,
	})
	followUp(s, i, fmt.Sprintf("Tallying complete! %d winners declared, %d records skipped.", summary.Winners, summary.Skipped))
}

func (b *Bot) cmdTransferWinners(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		ephemeral(s, i, "You need administrator permissions to use this command!")
		return
	}
	if !deferReply(s, i) {
		return
	}

	clock, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	moved, err := b.tally.TransferWinners(b.ctx, clock.Year)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	followUp(s, i, fmt.Sprintf("Transfer complete! %d winners moved into the general races.", moved))
}

func (b *Bot) cmdPause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		ephemeral(s, i, "You need administrator permissions to use this command!")
		return
	}
	opts := options(i)
	paused := false
	if opt, ok := opts["paused"]; ok {
		paused = opt.BoolValue()
	}
	if !deferReply(s, i) {
		return
	}

	if err := b.clock.SetPaused(b.ctx, paused); err != nil {
		b.renderErr(s, i, err)
		return
	}
	if paused {
		followUp(s, i, "The game clock is now paused. ⏸️")
	} else {
		followUp(s, i, "The game clock is running again. ▶️")
	}
}

func (b *Bot) cmdChangeDate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		ephemeral(s, i, "You need administrator permissions to use this command!")
		return
	}
	opts := options(i)
	if !deferReply(s, i) {
		return
	}

	if opt, ok := opts["year"]; ok {
		if err := b.clock.SetYear(b.ctx, int(opt.IntValue())); err != nil {
			b.renderErr(s, i, err)
			return
		}
	}
	if opt, ok := opts["cycle"]; ok {
		if err := b.clock.SetCycle(b.ctx, int(opt.IntValue())); err != nil {
			b.renderErr(s, i, err)
			return
		}
	}
	if opt, ok := opts["month"]; ok {
		if err := b.clock.SetMonth(b.ctx, int(opt.IntValue())); err != nil {
			b.renderErr(s, i, err)
			return
		}
	}

	state, err := b.clock.GetCurrentState(b.ctx)
	if err != nil {
		b.renderErr(s, i, err)
		return
	}
	followUpEmbed(s, i, discord.BuildTimeEmbed(state))
}

func (b *Bot) publishEvent(payload map[string]interface{}) {
	if err := data.PublishEvent(b.ctx, b.rdb, payload); err != nil {
		log.Printf("Failed to publish event: %v", err)
	}
}
