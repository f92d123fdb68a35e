package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "vet",
			Description: "Start an age vetting request",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ckey",
					Description: "Your in-game ckey",
					Required:    true,
				},
			},
		},
		{
			Name:        "vetstatus",
			Description: "Check the status of your vetting request",
		},
		{
			Name:        "vetlist",
			Description: "List pending vetting requests (admin only)",
		},
		{
			Name:        "create-commission",
			Description: "Open an art commission channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Name for your commission channel",
					Required:    true,
				},
			},
		},
		{
			Name:        "rep",
			Description: "Manage commission representatives",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Sign up as a representative for this commission",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a representative (yourself, or anyone if you own the commission)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "user",
							Description: "Representative to remove (defaults to you)",
						},
					},
				},
			},
		},
		{
			Name:        "rename-commission",
			Description: "Rename your commission channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "New name for the channel",
					Required:    true,
				},
			},
		},
		{
			Name:        "close-commission",
			Description: "Close your commission channel",
		},
		{
			Name:        "cleanup",
			Description: "Purge old vetting and commission records (admin only)",
		},
		{
			Name:        "stats",
			Description: "Show vetting and commission statistics (admin only)",
		},
	}
}

// RegisterCommands overwrites the guild's slash commands with the current
// definitions.
func RegisterCommands(s *discordgo.Session, guildID string) error {
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, commandDefinitions()); err != nil {
		return fmt.Errorf("registering slash commands: %w", err)
	}
	return nil
}
