// ABOUTME: Privilege resolution from trust-domain membership
// ABOUTME: Maps a caller's membership states through the configured weight table

package privilege

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ostiary-bot/ostiary/internal/config"
)

// MembershipSource answers membership-state queries against the chat
// platform. State strings are platform-level statuses ("administrator",
// "member", "left", ...) and feed the configured weight table.
type MembershipSource interface {
	MemberState(ctx context.Context, roomID, callerID string) (string, error)
}

// OriginKind classifies where a command was issued.
type OriginKind int

const (
	// OriginUnknown is anything the resolver refuses to reason about.
	OriginUnknown OriginKind = iota
	// OriginDirect is a private one-to-one conversation with the bot.
	OriginDirect
	// OriginRoom is a multi-party room.
	OriginRoom
)

// Origin is the chat context a command arrived from.
type Origin struct {
	Kind   OriginKind
	RoomID string
}

// Result is the outcome of privilege resolution: either not privileged, or
// privileged with a level and the trust domain that granted it.
type Result struct {
	Privileged bool
	Level      int
	Domain     string
	Nickname   string
}

// None is the unprivileged result.
var None = Result{}

// Resolver computes a caller's privilege from membership across the
// configured trust domains.
type Resolver struct {
	domains []config.TrustDomain
	weigh   func(state string) int
	source  MembershipSource
	logger  *slog.Logger
}

// NewResolver creates a resolver over the given ordered trust domains.
// weigh maps a membership state to its weight (-1 for unprivileged).
func NewResolver(domains []config.TrustDomain, weigh func(state string) int, source MembershipSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		domains: domains,
		weigh:   weigh,
		source:  source,
		logger:  logger,
	}
}

// Resolve computes the caller's privilege for a command issued from origin.
//
// In a multi-party room the room itself must be a configured trust domain;
// the caller's state in that one room decides the level. In a direct
// conversation every configured domain is consulted and the highest weight
// wins, with ties keeping the first domain in configuration order. Any other
// origin resolves to None without querying anything.
func (r *Resolver) Resolve(ctx context.Context, callerID string, origin Origin) (Result, error) {
	if callerID == "" {
		return None, nil
	}

	switch origin.Kind {
	case OriginRoom:
		return r.resolveRoom(ctx, callerID, origin.RoomID)
	case OriginDirect:
		return r.resolveDirect(ctx, callerID)
	default:
		return None, nil
	}
}

func (r *Resolver) resolveRoom(ctx context.Context, callerID, roomID string) (Result, error) {
	for _, domain := range r.domains {
		if domain.RoomID != roomID {
			continue
		}
		state, err := r.source.MemberState(ctx, domain.RoomID, callerID)
		if err != nil {
			return None, fmt.Errorf("querying membership in %s: %w", domain.RoomID, err)
		}
		return Result{
			Privileged: true,
			Level:      r.weigh(state),
			Domain:     domain.RoomID,
			Nickname:   domain.Nickname,
		}, nil
	}

	r.logger.Debug("room is not a configured trust domain", "room", roomID)
	return None, nil
}

func (r *Resolver) resolveDirect(ctx context.Context, callerID string) (Result, error) {
	best := None
	bestWeight := -1

	for _, domain := range r.domains {
		state, err := r.source.MemberState(ctx, domain.RoomID, callerID)
		if err != nil {
			return None, fmt.Errorf("querying membership in %s: %w", domain.RoomID, err)
		}
		weight := r.weigh(state)

		// Strict comparison: ties keep the first domain in configuration order.
		if weight > bestWeight {
			bestWeight = weight
			best = Result{
				Privileged: true,
				Level:      weight,
				Domain:     domain.RoomID,
				Nickname:   domain.Nickname,
			}
		}
	}

	if bestWeight <= 0 {
		return None, nil
	}
	return best, nil
}
