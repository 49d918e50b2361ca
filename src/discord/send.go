package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/types"
	"github.com/bwmarrin/discordgo"
)

// Embed colors used across the bot.
const (
	ColorInfo    = 0x0099ff
	ColorSuccess = 0x00ff00
	ColorWarning = 0xffaa00
)

// FormatCountdown renders a remaining duration for the live poll embed.
func FormatCountdown(remaining time.Duration) string {
	if remaining <= 0 {
		return "closing..."
	}
	remaining = remaining.Round(time.Minute)
	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm remaining", h, m)
	}
	return fmt.Sprintf("%dm remaining", m)
}

func raceTitle(office, state, party string) string {
	title := fmt.Sprintf("%s — %s", office, state)
	if party != "" {
		title += fmt.Sprintf(" (%s)", party)
	}
	return title
}

// BuildPollEmbed renders an open poll with its countdown.
func BuildPollEmbed(p *poll.Poll, remaining time.Duration) *discordgo.MessageEmbed {
	var lines []string
	for i, c := range p.Candidates {
		lines = append(lines, fmt.Sprintf("%d. **%s** (%s)", i+1, c.Name, c.Party))
	}
	return &discordgo.MessageEmbed{
		Title:       "🗳️ Poll: " + raceTitle(p.Office, p.State, p.Party),
		Description: strings.Join(lines, "\n"),
		Color:       ColorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "One vote per voter, revoting allowed | " + FormatCountdown(remaining),
		},
		Timestamp: p.StartTime.Format(time.RFC3339),
	}
}

// BuildPollResultsEmbed renders a closed poll.
func BuildPollResultsEmbed(p *poll.Poll, res poll.Results) *discordgo.MessageEmbed {
	if res.NoVotes {
		return &discordgo.MessageEmbed{
			Title:       "🗳️ Poll closed: " + raceTitle(p.Office, p.State, p.Party),
			Description: "No votes were cast.",
			Color:       ColorWarning,
		}
	}

	winners := make(map[int]bool, len(res.WinnerIdxs))
	for _, idx := range res.WinnerIdxs {
		winners[idx] = true
	}
	var lines []string
	for i, c := range p.Candidates {
		marker := ""
		if winners[i] {
			marker = " 🏆"
		}
		lines = append(lines, fmt.Sprintf("**%s** (%s): %d votes (%.1f%%)%s",
			c.Name, c.Party, res.Counts[i], res.Percentages[i], marker))
	}
	return &discordgo.MessageEmbed{
		Title:       "🗳️ Poll results: " + raceTitle(p.Office, p.State, p.Party),
		Description: strings.Join(lines, "\n"),
		Color:       ColorSuccess,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d votes cast | winners gain %.0f points", res.TotalVotes, poll.WinnerReward),
		},
	}
}

// BuildRegionPollEmbed renders a simulated regional poll.
func BuildRegionPollEmbed(res *poll.RegionResult) *discordgo.MessageEmbed {
	var lines []string
	for i, e := range res.Entries {
		lines = append(lines, fmt.Sprintf("%d. **%s** (%s): %.1f%% — %d votes",
			i+1, e.Candidate.Name, e.Candidate.Party, e.Share, e.Votes))
	}
	return &discordgo.MessageEmbed{
		Title:       "📊 Regional poll: " + raceTitle(res.Office, res.State, res.Party),
		Description: strings.Join(lines, "\n"),
		Color:       ColorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Simulated turnout: %d votes", res.TotalVotes),
		},
	}
}

// BuildTimeEmbed renders the game clock.
func BuildTimeEmbed(state types.CycleState) *discordgo.MessageEmbed {
	status := "running"
	if state.Paused {
		status = "paused"
	}
	return &discordgo.MessageEmbed{
		Title: "🗓️ Election Calendar",
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Cycle", Value: fmt.Sprintf("%d", state.Cycle), Inline: true},
			{Name: "Year", Value: fmt.Sprintf("%d", state.Year), Inline: true},
			{Name: "Month", Value: fmt.Sprintf("%d", state.Month), Inline: true},
			{Name: "Phase", Value: string(state.Phase), Inline: true},
			{Name: "Clock", Value: status, Inline: true},
		},
	}
}

// BuildActionEmbed renders the outcome of a campaign action.
func BuildActionEmbed(title, detail string, c types.Candidacy) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: detail,
		Color:       ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Points", Value: fmt.Sprintf("%.1f", c.Points), Inline: true},
			{Name: "Stamina", Value: fmt.Sprintf("%d", c.Stamina), Inline: true},
			{Name: "Corruption", Value: fmt.Sprintf("%d", c.Corruption), Inline: true},
		},
	}
}
