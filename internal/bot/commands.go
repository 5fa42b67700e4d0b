// ABOUTME: Command dispatch and the outer error boundary for ostiary
// ABOUTME: Validation problems become usage hints, everything else goes to the admin sink

package bot

import (
	"context"
	"errors"
	"fmt"

	"maunium.net/go/mautrix/event"

	"github.com/ostiary-bot/ostiary/internal/workflow"
)

const helpText = `**ostiary** — self-service directory registration

- ` + "`register <username> <email>`" + ` — create your directory account (private conversation only)
- ` + "`whoami`" + ` — show your current privilege
- ` + "`help`" + ` — this message`

const registerUsage = "Usage: `register <username> <email>`"

// genericFailure is the caller-facing reply when a command fails for any
// reason that is not their input. The detail goes to the admin sink.
const genericFailure = "Something went wrong. The admins have been notified."

// handleCommand runs one command end to end. This is the workflow's outer
// error boundary: a ValidationError is rendered locally as a usage hint and
// never reported; any other failure is reported in full to the admin sink
// exactly once and the caller gets a generic reply.
func (b *Bot) handleCommand(syncCtx context.Context, evt *event.Event, name string, args []string) {
	// Commands outlive the sync handler; backend calls carry no deadline.
	ctx := context.Background()

	reply, reports, err := b.runCommand(ctx, evt, name, args)
	if err != nil {
		var vErr *workflow.ValidationError
		if errors.As(err, &vErr) {
			b.sendMarkdown(evt.RoomID, fmt.Sprintf("%s\n\n%s", vErr.Error(), registerUsage))
			return
		}

		b.logger.Error("command failed",
			"command", name,
			"sender", evt.Sender.String(),
			"error", err,
		)
		b.report(fmt.Sprintf("command %q from %s failed: %v", name, evt.Sender, err))
		b.sendMarkdown(evt.RoomID, genericFailure)
		return
	}

	if reply != "" {
		b.sendMarkdown(evt.RoomID, reply)
	}
	for _, report := range reports {
		b.report(report)
	}
}

func (b *Bot) runCommand(ctx context.Context, evt *event.Event, name string, args []string) (string, []string, error) {
	switch name {
	case "help":
		return helpText, nil, nil
	case "register":
		return b.runRegister(ctx, evt, args)
	case "whoami":
		return b.runWhoami(ctx, evt)
	case "selftest":
		if !b.testQuery {
			return "", nil, nil
		}
		return b.runSelftest(ctx)
	default:
		return fmt.Sprintf("Unknown command `%s`. Try `help`.", name), nil, nil
	}
}

func (b *Bot) runRegister(ctx context.Context, evt *event.Event, args []string) (string, []string, error) {
	if len(args) != 2 {
		return "", nil, &workflow.ValidationError{Field: "arguments", Reason: "expected a username and an email"}
	}

	origin, err := b.originOf(ctx, evt.RoomID)
	if err != nil {
		return "", nil, err
	}

	outcome, err := b.registrar.Register(ctx, workflow.Request{
		CallerID: evt.Sender.String(),
		Origin:   origin,
		Username: args[0],
		Email:    args[1],
	})
	if err != nil {
		return "", nil, err
	}
	return outcome.Reply, outcome.Reports, nil
}

func (b *Bot) runWhoami(ctx context.Context, evt *event.Event) (string, []string, error) {
	origin, err := b.originOf(ctx, evt.RoomID)
	if err != nil {
		return "", nil, err
	}

	result, err := b.resolver.Resolve(ctx, evt.Sender.String(), origin)
	if err != nil {
		return "", nil, err
	}
	if !result.Privileged {
		return "You hold no privilege in any trusted room.", nil, nil
	}
	return fmt.Sprintf("You are privileged at level **%d** via **%s**.", result.Level, result.Nickname), nil, nil
}

func (b *Bot) runSelftest(ctx context.Context) (string, []string, error) {
	count, err := b.pinger.Ping(ctx)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Directory reachable, %d users.", count), nil, nil
}
