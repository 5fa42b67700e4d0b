// ABOUTME: Self-service registration workflow gated by privilege resolution
// ABOUTME: Validates, checks idempotency, creates the user, and attaches trust-domain groups

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/ostiary-bot/ostiary/internal/config"
	"github.com/ostiary-bot/ostiary/internal/directory"
	"github.com/ostiary-bot/ostiary/internal/privilege"
)

// usernameRe is the accepted shape for candidate usernames.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidationError reports a malformed command argument. It is always handled
// at the command boundary as a usage hint and never reaches the admin sink.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Directory is the subset of directory operations the workflow drives.
type Directory interface {
	LookupByID(ctx context.Context, id string) (*directory.User, error)
	LookupByExternalID(ctx context.Context, externalID string) (*directory.User, error)
	CreateUser(ctx context.Context, externalID, id, email string) (string, error)
	AddToGroup(ctx context.Context, userID string, groupID int) error
}

// Resolver decides whether a caller may register.
type Resolver interface {
	Resolve(ctx context.Context, callerID string, origin privilege.Origin) (privilege.Result, error)
}

// Request is one registration attempt. It lives only for the duration of a
// single Register call.
type Request struct {
	CallerID string `validate:"required"`
	Origin   privilege.Origin
	Username string `validate:"required,username"`
	Email    string `validate:"required,email"`
}

// Outcome is what a finished (or short-circuited) registration tells the
// caller and the admin sink. Terminal conditions such as a duplicate
// username are outcomes, not errors.
type Outcome struct {
	// Reply is the caller-facing message, markdown.
	Reply string
	// Reports are out-of-band lines for the admin sink.
	Reports []string
	// Created is true only when a directory user was actually created.
	Created bool
}

// Registration orchestrates the end-to-end register command.
type Registration struct {
	directory Directory
	resolver  Resolver
	source    privilege.MembershipSource
	domains   []config.TrustDomain
	weigh     func(state string) int
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewRegistration builds the workflow over its collaborators. domains is the
// ordered trust-domain list; weigh maps membership states to weights.
func NewRegistration(dir Directory, resolver Resolver, source privilege.MembershipSource,
	domains []config.TrustDomain, weigh func(state string) int, logger *slog.Logger) *Registration {

	v := validator.New()
	// Never fails: the closure matches the validator.Func signature.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})

	return &Registration{
		directory: dir,
		resolver:  resolver,
		source:    source,
		domains:   domains,
		weigh:     weigh,
		validate:  v,
		logger:    logger,
	}
}

// Register runs the registration workflow for one request.
//
// Validation failures return *ValidationError. Terminal business outcomes
// (not privileged, username taken, identity already linked) return a normal
// Outcome. Directory failures during creation propagate to the caller's
// outer handler; group attachment failures after creation do not abort the
// remaining domains and are aggregated into the outcome instead.
func (r *Registration) Register(ctx context.Context, req Request) (*Outcome, error) {
	if req.Origin.Kind != privilege.OriginDirect {
		return nil, &ValidationError{Field: "context", Reason: "use this command in a private conversation with the bot"}
	}

	result, err := r.resolver.Resolve(ctx, req.CallerID, req.Origin)
	if err != nil {
		return nil, fmt.Errorf("resolving privilege: %w", err)
	}
	if !result.Privileged {
		r.logger.Info("registration refused", "caller", req.CallerID, "reason", "not privileged")
		return &Outcome{Reply: "You are not a member of any trusted room, so you cannot register."}, nil
	}

	if err := r.validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := r.directory.LookupByID(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Outcome{Reply: fmt.Sprintf("The username `%s` already exists, pick another one.", req.Username)}, nil
	}

	linked, err := r.directory.LookupByExternalID(ctx, req.CallerID)
	if err != nil {
		return nil, err
	}
	if linked != nil {
		return &Outcome{Reply: fmt.Sprintf("Your account is already linked to `%s`.", linked.ID)}, nil
	}

	uuid, err := r.directory.CreateUser(ctx, req.CallerID, req.Username, req.Email)
	if err != nil {
		return nil, err
	}

	r.logger.Info("user registered",
		"user", req.Username,
		"caller", req.CallerID,
		"level", result.Level,
		"domain", result.Domain,
	)

	outcome := &Outcome{
		Created: true,
		Reply:   fmt.Sprintf("Welcome, `%s`! Your account has been created.", req.Username),
		Reports: []string{fmt.Sprintf("registered %s (uuid %s) for %s via %s (level %d)",
			req.Username, uuid, req.CallerID, result.Nickname, result.Level)},
	}

	r.attachGroups(ctx, req, outcome)
	return outcome, nil
}

// validateRequest checks the candidate username and email, translating the
// first validator failure into a field-naming ValidationError.
func (r *Registration) validateRequest(req Request) error {
	err := r.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating request: %w", err)
	}

	switch fieldErrs[0].Field() {
	case "Username":
		return &ValidationError{Field: "username", Reason: "must be 3 to 32 letters, digits, or underscores"}
	case "Email":
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	default:
		return &ValidationError{Field: fieldErrs[0].Field(), Reason: "is required"}
	}
}

// attachGroups attaches the new user to the group of every trust domain the
// caller holds a positive weight in. Each domain is independent: a failure
// is recorded and the remaining domains still run.
func (r *Registration) attachGroups(ctx context.Context, req Request, outcome *Outcome) {
	for _, domain := range r.domains {
		state, err := r.source.MemberState(ctx, domain.RoomID, req.CallerID)
		if err != nil {
			r.logger.Error("membership query failed during group attachment",
				"domain", domain.RoomID, "error", err)
			outcome.Reports = append(outcome.Reports,
				fmt.Sprintf("membership query failed for %s: %v", domain.Nickname, err))
			continue
		}
		if r.weigh(state) <= 0 {
			continue
		}
		if domain.GroupID == 0 {
			continue
		}

		if err := r.directory.AddToGroup(ctx, req.Username, domain.GroupID); err != nil {
			r.logger.Error("group attachment failed",
				"user", req.Username, "group", domain.GroupID, "error", err)
			outcome.Reports = append(outcome.Reports,
				fmt.Sprintf("failed to add %s to group %d (%s): %v",
					req.Username, domain.GroupID, domain.Nickname, err))
			continue
		}

		outcome.Reply += fmt.Sprintf("\n\nYou were added to the **%s** group.", domain.Nickname)
		outcome.Reports = append(outcome.Reports,
			fmt.Sprintf("added %s to group %d (%s)", req.Username, domain.GroupID, domain.Nickname))
	}
}
