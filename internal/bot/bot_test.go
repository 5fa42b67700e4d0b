// ABOUTME: Tests for command parsing, membership mapping, and reply formatting
// ABOUTME: Exercises the bot's pure helpers and dispatch paths that need no homeserver

package bot

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
)

func TestParseCommand_WithPrefix(t *testing.T) {
	tests := []struct {
		body     string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"!register alice alice@example.org", "register", []string{"alice", "alice@example.org"}, true},
		{"!REGISTER alice a@b.org", "register", []string{"alice", "a@b.org"}, true},
		{"!help", "help", nil, true},
		{"!   ", "", nil, false},
		{"register alice a@b.org", "", nil, false}, // missing prefix
		{"hello there", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		name, args, ok := parseCommand(tt.body, "!")
		assert.Equal(t, tt.wantOK, ok, "body %q", tt.body)
		assert.Equal(t, tt.wantName, name, "body %q", tt.body)
		if len(tt.wantArgs) > 0 {
			assert.Equal(t, tt.wantArgs, args, "body %q", tt.body)
		}
	}
}

func TestParseCommand_EmptyPrefixMatchesEverything(t *testing.T) {
	name, args, ok := parseCommand("whoami", "")
	require.True(t, ok)
	assert.Equal(t, "whoami", name)
	assert.Empty(t, args)
}

func TestMembershipState_Mapping(t *testing.T) {
	tests := []struct {
		membership event.Membership
		powerLevel int
		want       string
	}{
		{event.MembershipJoin, 100, "administrator"},
		{event.MembershipJoin, 50, "moderator"},
		{event.MembershipJoin, 99, "moderator"},
		{event.MembershipJoin, 0, "member"},
		{event.MembershipJoin, 49, "member"},
		{event.MembershipBan, 0, "banned"},
		{event.MembershipInvite, 0, "invited"},
		{event.MembershipKnock, 0, "knocked"},
		{event.MembershipLeave, 0, "left"},
		{event.Membership(""), 0, "left"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, membershipState(tt.membership, tt.powerLevel),
			"membership %q level %d", tt.membership, tt.powerLevel)
	}
}

func TestMarkdownToHTML(t *testing.T) {
	html := markdownToHTML("Welcome, **alice**!")
	assert.Contains(t, html, "<strong>alice</strong>")
}

// mockPinger implements Pinger.
type mockPinger struct {
	count int
	err   error
}

func (m *mockPinger) Ping(context.Context) (int, error) {
	return m.count, m.err
}

func TestRunSelftest(t *testing.T) {
	b := &Bot{testQuery: true, pinger: &mockPinger{count: 3}, logger: slog.New(slog.DiscardHandler)}

	reply, reports, err := b.runSelftest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Contains(t, reply, "3 users")
}

func TestRunSelftest_ErrorPropagates(t *testing.T) {
	b := &Bot{testQuery: true, pinger: &mockPinger{err: errors.New("no token")}, logger: slog.New(slog.DiscardHandler)}

	_, _, err := b.runSelftest(context.Background())
	require.Error(t, err)
}

func TestRunCommand_SelftestDisabledIsSilent(t *testing.T) {
	b := &Bot{testQuery: false, logger: slog.New(slog.DiscardHandler)}

	reply, reports, err := b.runCommand(context.Background(), &event.Event{}, "selftest", nil)
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Empty(t, reports)
}

func TestRunCommand_Help(t *testing.T) {
	b := &Bot{logger: slog.New(slog.DiscardHandler)}

	reply, _, err := b.runCommand(context.Background(), &event.Event{}, "help", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "register <username> <email>")
}

func TestRunCommand_Unknown(t *testing.T) {
	b := &Bot{logger: slog.New(slog.DiscardHandler)}

	reply, _, err := b.runCommand(context.Background(), &event.Event{}, "frobnicate", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Unknown command")
}
