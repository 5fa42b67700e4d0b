// ABOUTME: Matrix front-end for ostiary
// ABOUTME: Syncs with the homeserver, answers membership queries, and dispatches commands

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/ostiary-bot/ostiary/internal/config"
	"github.com/ostiary-bot/ostiary/internal/dedupe"
	"github.com/ostiary-bot/ostiary/internal/privilege"
	"github.com/ostiary-bot/ostiary/internal/workflow"
)

// eventTTL is how long processed event IDs are remembered.
const eventTTL = 10 * time.Minute

// networkTimeout bounds Matrix API calls made outside the sync loop.
const networkTimeout = 10 * time.Second

// Registrar runs the registration workflow.
type Registrar interface {
	Register(ctx context.Context, req workflow.Request) (*workflow.Outcome, error)
}

// Resolver computes a caller's privilege.
type Resolver interface {
	Resolve(ctx context.Context, callerID string, origin privilege.Origin) (privilege.Result, error)
}

// Pinger runs the directory test query.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// Bot connects the Matrix homeserver to the registration workflow.
type Bot struct {
	matrix    *mautrix.Client
	userID    id.UserID
	prefix    string
	adminRoom id.RoomID
	testQuery bool

	registrar Registrar
	resolver  Resolver
	pinger    Pinger
	events    *dedupe.Cache
	logger    *slog.Logger
}

// New creates a bot from the Matrix configuration. The workflow collaborators
// are attached afterwards with Attach: the resolver and registrar need the
// bot as their membership source, so they cannot exist before it.
func New(cfg config.MatrixConfig, logger *slog.Logger) (*Bot, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Bot{
		matrix:    client,
		userID:    id.UserID(cfg.UserID),
		prefix:    cfg.CommandPrefix,
		adminRoom: id.RoomID(cfg.AdminRoom),
		testQuery: cfg.EnableTestQuery,
		events:    dedupe.New(eventTTL),
		logger:    logger,
	}, nil
}

// Attach wires the command collaborators. Must be called before Run.
func (b *Bot) Attach(registrar Registrar, resolver Resolver, pinger Pinger) {
	b.registrar = registrar
	b.resolver = resolver
	b.pinger = pinger
}

// Run starts the sync loop and blocks until ctx is cancelled or sync fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bot",
		"homeserver", b.matrix.HomeserverURL.String(),
		"user_id", b.userID.String(),
	)

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)
	syncer.OnEventType(event.StateMember, b.handleMemberEvent)

	defer b.events.Close()

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(ctx)
	}()

	b.logger.Info("matrix bot running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bot")
		return nil
	case err := <-syncErr:
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMemberEvent accepts invites addressed to the bot so users can open
// a direct conversation with it.
func (b *Bot) handleMemberEvent(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != b.userID.String() {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok || content.Membership != event.MembershipInvite {
		return
	}
	if b.events.CheckAndMark("invite:" + evt.RoomID.String()) {
		return
	}

	b.logger.Info("accepting room invite", "room", evt.RoomID.String(), "inviter", evt.Sender.String())
	joinCtx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.matrix.JoinRoomByID(joinCtx, evt.RoomID); err != nil {
		b.logger.Error("failed to join room", "room", evt.RoomID.String(), "error", err)
	}
}

// handleMessageEvent filters sync traffic down to fresh command messages.
func (b *Bot) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == b.userID {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}
	if b.events.CheckAndMark(evt.ID.String()) {
		return
	}

	name, args, ok := parseCommand(content.Body, b.prefix)
	if !ok {
		return
	}

	b.logger.Info("received command",
		"room", evt.RoomID.String(),
		"sender", evt.Sender.String(),
		"command", name,
	)

	// Handle in a goroutine so slow backend calls never stall the sync loop.
	go b.handleCommand(ctx, evt, name, args)
}

// parseCommand splits a message body into a command name and its arguments.
// With a non-empty prefix, only prefixed messages are commands.
func parseCommand(body, prefix string) (name string, args []string, ok bool) {
	if prefix != "" {
		if !strings.HasPrefix(body, prefix) {
			return "", nil, false
		}
		body = strings.TrimPrefix(body, prefix)
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// originOf classifies the room a command arrived from. A room holding only
// the bot and one other joined member is a direct conversation.
func (b *Bot) originOf(ctx context.Context, roomID id.RoomID) (privilege.Origin, error) {
	resp, err := b.matrix.JoinedMembers(ctx, roomID)
	if err != nil {
		return privilege.Origin{}, fmt.Errorf("listing members of %s: %w", roomID, err)
	}

	if len(resp.Joined) == 2 {
		if _, ok := resp.Joined[b.userID]; ok {
			return privilege.Origin{Kind: privilege.OriginDirect, RoomID: roomID.String()}, nil
		}
	}
	return privilege.Origin{Kind: privilege.OriginRoom, RoomID: roomID.String()}, nil
}

// MemberState reports a user's membership state in a room, folding power
// levels into the status string. It implements privilege.MembershipSource.
func (b *Bot) MemberState(ctx context.Context, roomID, userID string) (string, error) {
	var member event.MemberEventContent
	err := b.matrix.StateEvent(ctx, id.RoomID(roomID), event.StateMember, userID, &member)
	if errors.Is(err, mautrix.MNotFound) {
		return "left", nil
	}
	if err != nil {
		return "", fmt.Errorf("member state of %s in %s: %w", userID, roomID, err)
	}

	if member.Membership != event.MembershipJoin {
		return membershipState(member.Membership, 0), nil
	}

	var levels event.PowerLevelsEventContent
	err = b.matrix.StateEvent(ctx, id.RoomID(roomID), event.StatePowerLevels, "", &levels)
	if err != nil && !errors.Is(err, mautrix.MNotFound) {
		return "", fmt.Errorf("power levels of %s: %w", roomID, err)
	}

	return membershipState(member.Membership, levels.GetUserLevel(id.UserID(userID))), nil
}

// membershipState maps a Matrix membership plus power level to the status
// strings the weight table is keyed by.
func membershipState(membership event.Membership, powerLevel int) string {
	switch membership {
	case event.MembershipJoin:
		switch {
		case powerLevel >= 100:
			return "administrator"
		case powerLevel >= 50:
			return "moderator"
		default:
			return "member"
		}
	case event.MembershipBan:
		return "banned"
	case event.MembershipInvite:
		return "invited"
	case event.MembershipKnock:
		return "knocked"
	default:
		return "left"
	}
}
