package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Monkestation/Veyra-Vet/internal/config"
	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/observability"
	"github.com/Monkestation/Veyra-Vet/internal/service"
)

// Handler routes slash commands and button presses to the service layer.
type Handler struct {
	guildID     string
	adminRoleID string

	vetting     *service.VettingService
	commissions *service.CommissionService
}

func NewHandler(cfg *config.Config, vetting *service.VettingService, commissions *service.CommissionService) *Handler {
	return &Handler{
		guildID:     cfg.DiscordGuildID,
		adminRoleID: cfg.DiscordAdminRoleID,
		vetting:     vetting,
		commissions: commissions,
	}
}

// Attach registers the gateway event handlers on the session.
func (h *Handler) Attach(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onInteraction)
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("gateway connected", "user", r.User.Username, "guilds", len(r.Guilds))
	if err := RegisterCommands(s, h.guildID); err != nil {
		slog.Error("slash command registration failed", "error", err)
		return
	}
	slog.Info("slash commands registered", "guild", h.guildID)
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		h.dispatchComponent(s, i)
	}
}

func (h *Handler) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	ctx := observability.NewInteractionContext(context.Background(), name)

	var err error
	switch name {
	case "vet":
		err = h.handleVet(ctx, s, i)
	case "vetstatus":
		err = h.handleVetStatus(ctx, s, i)
	case "vetlist":
		err = h.handleVetList(ctx, s, i)
	case "create-commission":
		err = h.handleCreateCommission(ctx, s, i)
	case "rep":
		err = h.handleRep(ctx, s, i)
	case "rename-commission":
		err = h.handleRenameCommission(ctx, s, i)
	case "close-commission":
		err = h.handleCloseCommission(ctx, s, i)
	case "cleanup":
		err = h.handleCleanup(ctx, s, i)
	case "stats":
		err = h.handleStats(ctx, s, i)
	default:
		err = respondText(s, i, "Unknown command.", true)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		slog.ErrorContext(ctx, "interaction failed", "command", name, "error", err)
	}
	observability.InteractionsTotal.WithLabelValues(name, outcome).Inc()
}

func (h *Handler) dispatchComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	var name string
	var err error
	switch {
	case strings.HasPrefix(customID, "approve_"):
		name = "approve_button"
		ctx := observability.NewInteractionContext(context.Background(), name)
		err = h.handleDecision(ctx, s, i, strings.TrimPrefix(customID, "approve_"), service.DecisionApprove)
	case strings.HasPrefix(customID, "deny_"):
		name = "deny_button"
		ctx := observability.NewInteractionContext(context.Background(), name)
		err = h.handleDecision(ctx, s, i, strings.TrimPrefix(customID, "deny_"), service.DecisionDeny)
	case strings.HasPrefix(customID, "rep_add_"):
		name = "rep_add_button"
		ctx := observability.NewInteractionContext(context.Background(), name)
		err = h.handleRepButton(ctx, s, i, true)
	case strings.HasPrefix(customID, "rep_remove_"):
		name = "rep_remove_button"
		ctx := observability.NewInteractionContext(context.Background(), name)
		err = h.handleRepButton(ctx, s, i, false)
	default:
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		slog.Error("component interaction failed", "custom_id", customID, "error", err)
	}
	observability.InteractionsTotal.WithLabelValues(name, outcome).Inc()
}

func (h *Handler) handleVet(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i); err != nil {
		return err
	}
	ckey := stringOption(i, "ckey")
	v, err := h.vetting.Create(ctx, interactionUserID(i), ckey)
	if err != nil {
		return editReply(s, i, userMessage(err))
	}
	return editReply(s, i, fmt.Sprintf(
		"Vetting request created! Head over to <#%s> and answer the questions there.", v.ChannelID))
}

func (h *Handler) handleVetStatus(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	v, err := h.vetting.Status(ctx, interactionUserID(i))
	if err != nil {
		return respondText(s, i, userMessage(err), true)
	}
	if v == nil {
		return respondText(s, i, "You don't have any vetting requests on file.", true)
	}
	return respondEmbed(s, i, vettingStatusEmbed(v), true)
}

func (h *Handler) handleVetList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isAdmin(i) {
		return respondText(s, i, "You don't have permission to use this command.", true)
	}
	pending, err := h.vetting.ListPending(ctx)
	if err != nil {
		return respondText(s, i, userMessage(err), true)
	}
	return respondEmbed(s, i, vettingListEmbed(pending), true)
}

func (h *Handler) handleDecision(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, requestID string, decision service.Decision) error {
	v, err := h.vetting.Decide(ctx, requestID, h.actor(i), decision)
	if v == nil {
		return respondText(s, i, userMessage(err), true)
	}

	h.markPromptResolved(s, i, v)

	verb := "approved"
	if decision == service.DecisionDeny {
		verb = "denied"
	}
	msg := fmt.Sprintf("Vetting request %s by <@%s>. This channel will be deleted shortly.",
		verb, interactionUserID(i))
	if err != nil {
		msg += "\nWarning: the verification service could not be updated. Please sync the record manually."
	}
	return respondText(s, i, msg, false)
}

// markPromptResolved swaps the decision buttons on the prompt for a single
// disabled button and recolors the embed. Failures only get logged; the
// decision itself already stuck.
func (h *Handler) markPromptResolved(s *discordgo.Session, i *discordgo.InteractionCreate, v *models.VettingRequest) {
	embed := vettingPromptEmbed(v)
	embed.Color = statusColor(v.Status)

	label := "Approved"
	style := discordgo.SuccessButton
	if v.Status == models.VettingStatusDenied {
		label = "Denied"
		style = discordgo.DangerButton
	}

	embeds := []*discordgo.MessageEmbed{embed}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: label, Style: style, CustomID: "resolved_" + v.ID, Disabled: true},
			},
		},
	}
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    i.ChannelID,
		ID:         i.Message.ID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		slog.Warn("failed to update vetting prompt after decision", "id", v.ID, "error", err)
	}
}

func (h *Handler) handleCreateCommission(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i); err != nil {
		return err
	}
	name := stringOption(i, "name")
	c, err := h.commissions.Create(ctx, interactionUserID(i), name)
	if err != nil {
		return editReply(s, i, userMessage(err))
	}
	return editReply(s, i, fmt.Sprintf("Commission channel created: <#%s>", c.ChannelID))
}

func (h *Handler) handleRep(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondText(s, i, "Missing subcommand.", true)
	}
	uid := interactionUserID(i)

	switch options[0].Name {
	case "add":
		if _, err := h.commissions.AddRep(ctx, i.ChannelID, uid); err != nil {
			return respondText(s, i, userMessage(err), true)
		}
		return respondText(s, i, "You're now a representative for this commission.", true)
	case "remove":
		target := uid
		for _, opt := range options[0].Options {
			if opt.Name == "user" {
				target = opt.UserValue(s).ID
			}
		}
		if _, err := h.commissions.RemoveRep(ctx, i.ChannelID, uid, target); err != nil {
			return respondText(s, i, userMessage(err), true)
		}
		if target == uid {
			return respondText(s, i, "You've been removed from the representatives.", true)
		}
		return respondText(s, i, fmt.Sprintf("<@%s> has been removed from the representatives.", target), true)
	default:
		return respondText(s, i, "Unknown subcommand.", true)
	}
}

func (h *Handler) handleRenameCommission(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i); err != nil {
		return err
	}
	name := stringOption(i, "name")
	c, err := h.commissions.Rename(ctx, i.ChannelID, interactionUserID(i), name)
	if err != nil {
		return editReply(s, i, userMessage(err))
	}
	return editReply(s, i, fmt.Sprintf("Commission renamed to **%s**.", c.ChannelName))
}

func (h *Handler) handleCloseCommission(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i); err != nil {
		return err
	}
	if _, err := h.commissions.Close(ctx, i.ChannelID, interactionUserID(i)); err != nil {
		return editReply(s, i, userMessage(err))
	}
	return editReply(s, i, "Commission closed. This channel will be deleted shortly.")
}

func (h *Handler) handleCleanup(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isAdmin(i) {
		return respondText(s, i, "You don't have permission to use this command.", true)
	}
	if err := deferReply(s, i); err != nil {
		return err
	}
	vetRemoved, err := h.vetting.Cleanup(ctx)
	if err != nil {
		return editReply(s, i, userMessage(err))
	}
	comRemoved, err := h.commissions.Cleanup(ctx)
	if err != nil {
		return editReply(s, i, userMessage(err))
	}
	return editReply(s, i, fmt.Sprintf(
		"Cleanup complete: removed %d vetting records and %d commission records.", vetRemoved, comRemoved))
}

func (h *Handler) handleStats(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !h.isAdmin(i) {
		return respondText(s, i, "You don't have permission to use this command.", true)
	}
	vetStats, err := h.vetting.Stats(ctx)
	if err != nil {
		return respondText(s, i, userMessage(err), true)
	}
	comStats, err := h.commissions.Stats(ctx)
	if err != nil {
		return respondText(s, i, userMessage(err), true)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Bot Statistics",
		Color: colorVetting,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Vetting Requests",
				Value: fmt.Sprintf("Pending: %d\nApproved: %d\nDenied: %d\nTimed out: %d",
					vetStats[models.VettingStatusPending],
					vetStats[models.VettingStatusApproved],
					vetStats[models.VettingStatusDenied],
					vetStats[models.VettingStatusTimeout]),
				Inline: true,
			},
			{
				Name: "Commissions",
				Value: fmt.Sprintf("Active: %d\nInactive: %d",
					comStats[models.CommissionStatusActive],
					comStats[models.CommissionStatusInactive]),
				Inline: true,
			},
		},
	}
	return respondEmbed(s, i, embed, true)
}

func (h *Handler) handleRepButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, add bool) error {
	uid := interactionUserID(i)
	if add {
		if _, err := h.commissions.AddRep(ctx, i.ChannelID, uid); err != nil {
			return respondText(s, i, userMessage(err), true)
		}
		return respondText(s, i, "You're now a representative for this commission.", true)
	}
	if _, err := h.commissions.RemoveRep(ctx, i.ChannelID, uid, uid); err != nil {
		return respondText(s, i, userMessage(err), true)
	}
	return respondText(s, i, "You've been removed from the representatives.", true)
}

func (h *Handler) isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && slices.Contains(i.Member.Roles, h.adminRoleID)
}

func (h *Handler) actor(i *discordgo.InteractionCreate) service.Actor {
	return service.Actor{ID: interactionUserID(i), IsAdmin: h.isAdmin(i)}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

// userMessage maps a service error to text safe to show in Discord. Typed
// errors carry user-facing messages already; anything else gets a generic
// line so internals never leak into chat.
func userMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return appErr.Message
	}
	return "Something went wrong while processing your command. Please try again."
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}
