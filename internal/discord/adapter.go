// Package discord adapts the chat platform to the service layer: channel
// and thread provisioning, rich status messages, and interaction dispatch.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Monkestation/Veyra-Vet/internal/config"
	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/validation"
)

// Adapter implements the service gateways over a discordgo session.
type Adapter struct {
	session *discordgo.Session

	guildID              string
	adminRoleID          string
	vettingCategoryID    string
	commissionCategoryID string
}

// NewAdapter creates a gateway adapter bound to the configured guild.
func NewAdapter(session *discordgo.Session, cfg *config.Config) *Adapter {
	return &Adapter{
		session:              session,
		guildID:              cfg.DiscordGuildID,
		adminRoleID:          cfg.DiscordAdminRoleID,
		vettingCategoryID:    cfg.VettingCategoryID,
		commissionCategoryID: cfg.CommissionCategoryID,
	}
}

// CreateVettingChannel provisions a private text channel visible only to the
// requester and the admin role.
func (a *Adapter) CreateVettingChannel(ctx context.Context, userID, ckey string) (string, error) {
	name := validation.SanitizeChannelName(fmt.Sprintf("vet-%s-%s", ckey, a.displayName(userID)))

	channel, err := a.session.GuildChannelCreateComplex(a.guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: a.vettingCategoryID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:   a.guildID, // @everyone
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:   userID,
				Type: discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel |
					discordgo.PermissionSendMessages |
					discordgo.PermissionReadMessageHistory,
			},
			{
				ID:   a.adminRoleID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel |
					discordgo.PermissionSendMessages |
					discordgo.PermissionReadMessageHistory |
					discordgo.PermissionManageChannels,
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating vetting channel: %w", err)
	}
	return channel.ID, nil
}

// PostVettingPrompt posts the questionnaire embed with approve/deny buttons,
// pinging the admin role.
func (a *Adapter) PostVettingPrompt(ctx context.Context, channelID string, v *models.VettingRequest) error {
	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@&%s> New vetting request", a.adminRoleID),
		Embeds:  []*discordgo.MessageEmbed{vettingPromptEmbed(v)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.SuccessButton,
						CustomID: "approve_" + v.ID,
					},
					discordgo.Button{
						Label:    "Deny",
						Style:    discordgo.DangerButton,
						CustomID: "deny_" + v.ID,
					},
				},
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("posting vetting prompt: %w", err)
	}
	return nil
}

// CreateCommissionChannel provisions a commission channel: readable by
// everyone, writable only by the creator.
func (a *Adapter) CreateCommissionChannel(ctx context.Context, userID, name string) (string, error) {
	channel, err := a.session.GuildChannelCreateComplex(a.guildID, discordgo.GuildChannelCreateData{
		Name:     "commission-" + name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: a.commissionCategoryID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:    a.guildID, // @everyone
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel,
				Deny:  discordgo.PermissionSendMessages,
			},
			{
				ID:   userID,
				Type: discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel |
					discordgo.PermissionSendMessages |
					discordgo.PermissionReadMessageHistory |
					discordgo.PermissionCreatePublicThreads |
					discordgo.PermissionCreatePrivateThreads |
					discordgo.PermissionSendMessagesInThreads,
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating commission channel: %w", err)
	}
	return channel.ID, nil
}

// CreateArtworkThread opens the private artwork discussion thread.
func (a *Adapter) CreateArtworkThread(ctx context.Context, channelID string) (string, error) {
	thread, err := a.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                "artwork",
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: 10080,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating artwork thread: %w", err)
	}
	return thread.ID, nil
}

// PostCommissionStatus posts and pins the status display.
func (a *Adapter) PostCommissionStatus(ctx context.Context, c *models.Commission) error {
	msg, err := a.session.ChannelMessageSendComplex(c.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{commissionStatusEmbed(c)},
		Components: []discordgo.MessageComponent{repButtons(c)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("posting commission status: %w", err)
	}
	if err := a.session.ChannelMessagePin(c.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("pinning commission status: %w", err)
	}
	return nil
}

// RefreshCommissionStatus re-renders the pinned status display. The display
// is located by scanning pinned messages for the footer carrying the
// commission id.
func (a *Adapter) RefreshCommissionStatus(ctx context.Context, c *models.Commission) error {
	pinned, err := a.session.ChannelMessagesPinned(c.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetching pinned messages: %w", err)
	}

	var target *discordgo.Message
	for _, msg := range pinned {
		if len(msg.Embeds) == 0 || msg.Embeds[0].Footer == nil {
			continue
		}
		if strings.Contains(msg.Embeds[0].Footer.Text, c.ID) {
			target = msg
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no pinned status message for commission %s", c.ID)
	}

	embeds := []*discordgo.MessageEmbed{commissionStatusEmbed(c)}
	components := []discordgo.MessageComponent{repButtons(c)}
	_, err = a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    c.ChannelID,
		ID:         target.ID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing commission status: %w", err)
	}
	return nil
}

// PostClosureNotice announces the closure in the commission channel.
func (a *Adapter) PostClosureNotice(ctx context.Context, c *models.Commission) error {
	_, err := a.session.ChannelMessageSend(c.ChannelID,
		"This commission channel has been closed and will be deleted shortly.",
		discordgo.WithContext(ctx))
	return err
}

// RenameChannel changes a channel's display name.
func (a *Adapter) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := a.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("renaming channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel.
func (a *Adapter) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

// NotifyUser sends a direct message.
func (a *Adapter) NotifyUser(ctx context.Context, userID, message string) error {
	dm, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	if _, err := a.session.ChannelMessageSend(dm.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending DM: %w", err)
	}
	return nil
}

// displayName resolves a member's username, falling back to the raw id when
// the member cannot be fetched.
func (a *Adapter) displayName(userID string) string {
	member, err := a.session.GuildMember(a.guildID, userID)
	if err != nil || member.User == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}
