// ABOUTME: Directory backend client for user lookup, creation, and group membership
// ABOUTME: Speaks the backend's GraphQL API with a bearer token borrowed per call

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// graphQLPath is the backend's query endpoint.
const graphQLPath = "/api/graphql"

// TokenSource supplies the current bearer token for backend calls.
type TokenSource interface {
	Token() (string, error)
}

// User is a directory user as seen by this client.
type User struct {
	ID         string
	Email      string
	ExternalID string
}

// Client performs directory operations over the backend's GraphQL API.
// Every operation is a single authenticated round-trip.
type Client struct {
	baseURL  string
	attrName string
	tokens   TokenSource
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a directory client. attrName is the user attribute
// linking a directory user to their chat identity.
func NewClient(baseURL, attrName string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		attrName: attrName,
		tokens:   tokens,
		http:     &http.Client{},
		logger:   logger,
	}
}

// SetTimeout bounds every backend round-trip. The default client has no
// timeout; callers that want one opt in.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query runs one GraphQL operation and decodes the data payload into out.
// Backend error payloads are classified here: a "not found" marker becomes
// ErrNotFound, everything else is surfaced as-is. No caller above this
// boundary matches on message strings.
func (c *Client) query(ctx context.Context, query string, vars map[string]any, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+graphQLPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("decoding directory response: %w", err)
	}

	if len(gr.Errors) > 0 {
		msg := gr.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "not found") {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return fmt.Errorf("directory error: %s", msg)
	}

	if out != nil {
		if err := json.Unmarshal(gr.Data, out); err != nil {
			return fmt.Errorf("decoding directory data: %w", err)
		}
	}
	return nil
}

type attribute struct {
	Name  string   `json:"name"`
	Value []string `json:"value"`
}

const lookupByIDQuery = `query GetUserDetails($id: String!) {
  user(userId: $id) {
    id
    email
    attributes { name value }
  }
}`

// LookupByID fetches a user by identifier. A backend "entity not found"
// condition is translated to (nil, nil); any other error propagates.
func (c *Client) LookupByID(ctx context.Context, id string) (*User, error) {
	var data struct {
		User struct {
			ID         string      `json:"id"`
			Email      string      `json:"email"`
			Attributes []attribute `json:"attributes"`
		} `json:"user"`
	}

	err := c.query(ctx, lookupByIDQuery, map[string]any{"id": id}, &data)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user %q: %w", id, err)
	}

	user := &User{ID: data.User.ID, Email: data.User.Email}
	for _, attr := range data.User.Attributes {
		if attr.Name == c.attrName && len(attr.Value) > 0 {
			user.ExternalID = attr.Value[0]
		}
	}
	return user, nil
}

const lookupByExternalIDQuery = `query FindUsersByAttribute($filter: RequestFilter) {
  users(filters: $filter) {
    id
    email
  }
}`

// LookupByExternalID returns the first user whose external-identity attribute
// equals externalID, or nil if none match. Multiple matches are not treated
// specially; first one wins.
func (c *Client) LookupByExternalID(ctx context.Context, externalID string) (*User, error) {
	var data struct {
		Users []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"users"`
	}

	vars := map[string]any{
		"filter": map[string]any{
			"eq": map[string]any{"field": c.attrName, "value": externalID},
		},
	}
	if err := c.query(ctx, lookupByExternalIDQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("looking up external id %q: %w", externalID, err)
	}

	if len(data.Users) == 0 {
		return nil, nil
	}
	return &User{ID: data.Users[0].ID, Email: data.Users[0].Email, ExternalID: externalID}, nil
}

const createUserMutation = `mutation CreateUser($user: CreateUserInput!) {
  createUser(user: $user) {
    uuid
  }
}`

// CreateUser creates a directory user with the external-identity attribute
// pre-populated, in one mutation. Returns the backend-assigned uuid.
func (c *Client) CreateUser(ctx context.Context, externalID, id, email string) (string, error) {
	var data struct {
		CreateUser struct {
			UUID string `json:"uuid"`
		} `json:"createUser"`
	}

	vars := map[string]any{
		"user": map[string]any{
			"id":    id,
			"email": email,
			"attributes": []map[string]any{
				{"name": c.attrName, "value": []string{externalID}},
			},
		},
	}
	if err := c.query(ctx, createUserMutation, vars, &data); err != nil {
		return "", fmt.Errorf("creating user %q: %w", id, err)
	}

	if _, err := uuid.Parse(data.CreateUser.UUID); err != nil {
		return "", fmt.Errorf("creating user %q: backend returned malformed uuid %q", id, data.CreateUser.UUID)
	}

	c.logger.Info("directory user created", "user", id, "uuid", data.CreateUser.UUID)
	return data.CreateUser.UUID, nil
}

const addToGroupMutation = `mutation AddUserToGroup($user: String!, $group: Int!) {
  addUserToGroup(userId: $user, groupId: $group) {
    ok
  }
}`

// AddToGroup attaches a user to a group. The backend answers with an explicit
// success flag; ok:false becomes a GroupAddError naming user and group.
func (c *Client) AddToGroup(ctx context.Context, userID string, groupID int) error {
	var data struct {
		AddUserToGroup struct {
			OK bool `json:"ok"`
		} `json:"addUserToGroup"`
	}

	vars := map[string]any{"user": userID, "group": groupID}
	if err := c.query(ctx, addToGroupMutation, vars, &data); err != nil {
		return fmt.Errorf("adding user %q to group %d: %w", userID, groupID, err)
	}

	if !data.AddUserToGroup.OK {
		return &GroupAddError{UserID: userID, GroupID: groupID}
	}

	c.logger.Info("directory group attached", "user", userID, "group", groupID)
	return nil
}

const pingQuery = `query Ping {
  users {
    id
  }
}`

// Ping runs a harmless query to verify the session and backend are healthy.
// Returns the number of users the backend reported.
func (c *Client) Ping(ctx context.Context) (int, error) {
	var data struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	if err := c.query(ctx, pingQuery, nil, &data); err != nil {
		return 0, fmt.Errorf("test query: %w", err)
	}
	return len(data.Users), nil
}
