// internal/github/client.go
package github

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	custom_errors "github-contributions/internal/errors"
)

// Querier issues a GraphQL query and decodes its data member into out.
type Querier interface {
	Query(ctx context.Context, query string, out any) error
}

// Client is a GraphQL client built on the go-github transport.
type Client struct {
	gh          *github.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	graphqlPath string
}

// Option configures a Client.
type Option func(*Client) error

// WithEnterpriseURL points the client at a GitHub Enterprise Server (or a test server).
func WithEnterpriseURL(baseURL string) Option {
	return func(c *Client) error {
		gh, err := c.gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return err
		}
		c.gh = gh
		// Enterprise serves REST under /api/v3/ and GraphQL under /api/graphql.
		c.graphqlPath = "../graphql"
		return nil
	}
}

// WithRateLimit paces queries to at most perMinute requests per minute.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) error {
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
		return nil
	}
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	c := &Client{
		gh:          github.NewClient(tc),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      logger,
		graphqlPath: "graphql",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Query posts the query and decodes the data member into out.
// Responses whose errors are all NOT_FOUND are decoded as usual so callers can treat the
// null fields as missing resources. Any other GraphQL error is returned as a
// *custom_errors.GraphQLError; HTTP failures surface as go-github error types.
func (c *Client) Query(ctx context.Context, query string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := c.gh.NewRequest(http.MethodPost, c.graphqlPath, &graphQLRequest{Query: query})
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if _, err := c.gh.Do(ctx, req, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		gqlErr := &custom_errors.GraphQLError{}
		notFoundOnly := true
		for _, e := range resp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
			gqlErr.Types = append(gqlErr.Types, e.Type)
			if e.Type != "NOT_FOUND" {
				notFoundOnly = false
			}
		}
		if !notFoundOnly {
			return gqlErr
		}
		c.logger.Debug("GraphQL query returned not-found errors", "errors", strings.Join(gqlErr.Messages, "; "))
	}

	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return &custom_errors.GraphQLError{Messages: []string{"response contained no data"}}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}
