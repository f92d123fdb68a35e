package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

const (
	colorVetting    = 0x3498db
	colorCommission = 0x9b59b6
	colorPending    = 0xf39c12
	colorApproved   = 0x27ae60
	colorDenied     = 0xe74c3c
)

const vettingQuestionnaire = `Please answer the following so an admin can review your request:

**1.** How old are you?
**2.** How long have you been roleplaying?
**3.** Link or describe a scene you are proud of.
**4.** Do you understand that lying here results in a permanent ban?`

func vettingPromptEmbed(v *models.VettingRequest) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Age Vetting Request",
		Description: vettingQuestionnaire,
		Color:       colorVetting,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s>", v.UserID), Inline: true},
			{Name: "Ckey", Value: v.Ckey, Inline: true},
			{Name: "Status", Value: string(v.Status), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Vetting ID: " + v.ID},
	}
}

func vettingStatusEmbed(v *models.VettingRequest) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Vetting Status",
		Color: statusColor(v.Status),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ckey", Value: v.Ckey, Inline: true},
			{Name: "Status", Value: string(v.Status), Inline: true},
			{Name: "Submitted", Value: v.CreatedAt.Format("2006-01-02 15:04 MST"), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Vetting ID: " + v.ID},
	}
	if v.ProcessedBy != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Processed By", Value: fmt.Sprintf("<@%s>", v.ProcessedBy), Inline: true,
		})
	}
	return embed
}

func vettingListEmbed(pending []*models.VettingRequest) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Pending Vetting Requests",
		Color: colorPending,
	}
	if len(pending) == 0 {
		embed.Description = "No pending vetting requests."
		return embed
	}
	var b strings.Builder
	for _, v := range pending {
		fmt.Fprintf(&b, "<@%s> (`%s`) in <#%s>, submitted %s\n",
			v.UserID, v.Ckey, v.ChannelID, v.CreatedAt.Format("2006-01-02"))
	}
	embed.Description = b.String()
	return embed
}

func commissionStatusEmbed(c *models.Commission) *discordgo.MessageEmbed {
	reps := "None yet."
	if len(c.Reps) > 0 {
		mentions := make([]string, len(c.Reps))
		for i, id := range c.Reps {
			mentions[i] = fmt.Sprintf("<@%s>", id)
		}
		reps = strings.Join(mentions, "\n")
	}
	color := colorCommission
	if c.Status == models.CommissionStatusInactive {
		color = colorDenied
	}
	return &discordgo.MessageEmbed{
		Title: "Commission: " + c.ChannelName,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: fmt.Sprintf("<@%s>", c.CreatorID), Inline: true},
			{Name: "Status", Value: string(c.Status), Inline: true},
			{Name: "Representatives", Value: reps},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Commission ID: " + c.ID},
	}
}

func repButtons(c *models.Commission) discordgo.MessageComponent {
	closed := c.Status == models.CommissionStatusInactive
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Become a Rep",
				Style:    discordgo.PrimaryButton,
				CustomID: "rep_add_" + c.ID,
				Disabled: closed,
			},
			discordgo.Button{
				Label:    "Leave Reps",
				Style:    discordgo.SecondaryButton,
				CustomID: "rep_remove_" + c.ID,
				Disabled: closed,
			},
		},
	}
}

func statusColor(s models.VettingStatus) int {
	switch s {
	case models.VettingStatusApproved:
		return colorApproved
	case models.VettingStatusDenied:
		return colorDenied
	default:
		return colorPending
	}
}
