package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackWebhook posts notifications to a Slack incoming webhook.
type SlackWebhook struct {
	url string
}

func NewSlackWebhook(url string) *SlackWebhook {
	return &SlackWebhook{url: url}
}

func (s *SlackWebhook) Name() string { return "slack" }

func (s *SlackWebhook) Send(ctx context.Context, title, body string) error {
	msg := &slacklib.WebhookMessage{
		Text: title,
		Blocks: &slacklib.Blocks{
			BlockSet: BuildReportBlocks(title, body),
		},
	}

	if err := slacklib.PostWebhookContext(ctx, s.url, msg); err != nil {
		return fmt.Errorf("notify.SlackWebhook.Send: %w", err)
	}
	return nil
}

// BuildReportBlocks renders a title and a preformatted body as Block Kit blocks.
func BuildReportBlocks(title, body string) []slacklib.Block {
	header := slacklib.NewHeaderBlock(
		slacklib.NewTextBlockObject(slacklib.PlainTextType, title, false, false),
	)
	if body == "" {
		return []slacklib.Block{header}
	}

	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "```"+body+"```", false, false),
		nil,
		nil,
	)

	return []slacklib.Block{header, section}
}
