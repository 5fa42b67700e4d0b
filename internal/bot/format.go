// ABOUTME: Reply formatting for Matrix messages
// ABOUTME: Renders markdown bodies into Matrix HTML formatted messages

package bot

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// markdownToHTML converts a markdown reply into the HTML Matrix clients
// render for formatted bodies.
func markdownToHTML(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// sendMarkdown sends a markdown message, keeping the plain body as fallback
// for clients that ignore formatting.
func (b *Bot) sendMarkdown(roomID id.RoomID, md string) {
	content := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    md,
	}
	if html := markdownToHTML(md); html != "" {
		content.Format = event.FormatHTML
		content.FormattedBody = html
	}

	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.matrix.SendMessageEvent(ctx, roomID, event.EventMessage, &content); err != nil {
		b.logger.Error("failed to send message", "room", roomID.String(), "error", err)
	}
}
