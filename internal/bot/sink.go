// ABOUTME: Admin report sink for ostiary
// ABOUTME: Out-of-band detail reports go to the configured admin room

package bot

// report delivers one out-of-band line to the admin room. Without a
// configured admin room the report only reaches the log.
func (b *Bot) report(line string) {
	b.logger.Info("admin report", "detail", line)
	if b.adminRoom == "" {
		return
	}
	b.sendMarkdown(b.adminRoom, line)
}
