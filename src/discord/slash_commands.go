package discord

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aprp/electionbot/src/types"
	"github.com/bwmarrin/discordgo"
)

const (
	CommandSignup          = "signup"
	CommandWithdraw        = "withdraw"
	CommandSpeech          = "speech"
	CommandCanvassing      = "canvassing"
	CommandDonor           = "donor"
	CommandSpecial         = "special"
	CommandAd              = "ad"
	CommandPoster          = "poster"
	CommandRegionPoll      = "regionpoll"
	CommandListSignups     = "list_signups"
	CommandTime            = "time"
	CommandTallyWinners    = "tally_winners"
	CommandTransferWinners = "transfer_winners"
	CommandPause           = "pause"
	CommandChangeDate      = "change_date"
)

func partyChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(types.Parties))
	for i, p := range types.Parties {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: p, Value: p}
	}
	return choices
}

func stateChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(types.States))
	for i, s := range types.States {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: s, Value: s}
	}
	return choices
}

func nameOption(required bool) *discordgo.ApplicationCommandOption {
	desc := "Your candidate's name"
	if !required {
		desc = "Your candidate's name (defaults to your own candidacy)"
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: desc,
		Required:    required,
	}
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandSignup: {
		Name:        CommandSignup,
		Description: "Sign up for an election",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "state",
				Description: "The state you want to run in",
				Required:    true,
				Choices:     stateChoices(),
			},
			nameOption(true),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "party",
				Description: "Your political party",
				Required:    true,
				Choices:     partyChoices(),
			},
		},
	},
	CommandWithdraw: {
		Name:        CommandWithdraw,
		Description: "Withdraw from an election",
		Options:     []*discordgo.ApplicationCommandOption{nameOption(true)},
	},
	CommandSpeech: {
		Name:        CommandSpeech,
		Description: "Give a campaign speech (costs 10 stamina, 1 point per character)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The speech text",
				Required:    true,
			},
			nameOption(false),
		},
	},
	CommandCanvassing: {
		Name:        CommandCanvassing,
		Description: "Go door-to-door canvassing for votes",
		Options:     []*discordgo.ApplicationCommandOption{nameOption(false)},
	},
	CommandDonor: {
		Name:        CommandDonor,
		Description: "Court donors for points (increases corruption)",
		Options:     []*discordgo.ApplicationCommandOption{nameOption(false)},
	},
	CommandSpecial: {
		Name:        CommandSpecial,
		Description: "Give a special-interest speech (points per paragraph, increases corruption)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The speech text, paragraphs separated by blank lines",
				Required:    true,
			},
			nameOption(false),
		},
	},
	CommandAd: {
		Name:        CommandAd,
		Description: "Run a campaign video ad",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "video",
				Description: "The ad video (.mp4, .mov or .webm)",
				Required:    true,
			},
			nameOption(false),
		},
	},
	CommandPoster: {
		Name:        CommandPoster,
		Description: "Put up campaign posters",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "image",
				Description: "The poster image (.png, .jpg, .jpeg or .gif)",
				Required:    true,
			},
			nameOption(false),
		},
	},
	CommandRegionPoll: {
		Name:        CommandRegionPoll,
		Description: "Run a poll for a race",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "office",
				Description: "The office being contested",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "state",
				Description: "The state of the race",
				Required:    true,
				Choices:     stateChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "type",
				Description: "Live vote or simulated poll",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Live", Value: "live"},
					{Name: "Simulated", Value: "simulated"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "party",
				Description: "Restrict to one party",
				Required:    false,
				Choices:     partyChoices(),
			},
		},
	},
	CommandListSignups: {
		Name:        CommandListSignups,
		Description: "List current signups",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "state",
				Description: "The state to list",
				Required:    true,
				Choices:     stateChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "seat",
				Description: "Restrict to one seat",
				Required:    false,
			},
		},
	},
	CommandTime: {
		Name:        CommandTime,
		Description: "Show the current in-world date and phase",
	},
	CommandTallyWinners: {
		Name:        CommandTallyWinners,
		Description: "[ADMIN] Tally points and declare winners by seat and party",
	},
	CommandTransferWinners: {
		Name:        CommandTransferWinners,
		Description: "[ADMIN] Transfer declared winners into the general races",
	},
	CommandPause: {
		Name:        CommandPause,
		Description: "[ADMIN] Pause or resume the game clock",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "paused",
				Description: "True to pause the clock",
				Required:    true,
			},
		},
	},
	CommandChangeDate: {
		Name:        CommandChangeDate,
		Description: "[ADMIN] Change the in-world date",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "year",
				Description: "New year (1990-2100)",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cycle",
				Description: "New cycle number",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "month",
				Description: "New month (1-12)",
				Required:    false,
			},
		},
	},
}

var defaultCommandOrder = []string{
	CommandSignup,
	CommandWithdraw,
	CommandSpeech,
	CommandCanvassing,
	CommandDonor,
	CommandSpecial,
	CommandAd,
	CommandPoster,
	CommandRegionPoll,
	CommandListSignups,
	CommandTime,
	CommandTallyWinners,
	CommandTransferWinners,
	CommandPause,
	CommandChangeDate,
}

// RegisterSlashCommands registers the requested slash commands for a guild.
// When no command names are provided, all known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to register slash commands")
	}

	if len(names) == 0 {
		names = defaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("discord: unknown slash command %q", name)
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("discord: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("discord: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

// DeleteSlashCommands removes all registered slash commands for a guild.
func DeleteSlashCommands(s *discordgo.Session, guildID string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to delete slash commands")
	}

	commands, err := s.ApplicationCommands(s.State.User.ID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			return err
		}
	}

	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
