package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"

	"github.com/pders01/infowatch/internal/config"
)

const maxResponseSize = 1 << 20

// Account is the user the credentials belong to.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Twitter posts through the v2 API with OAuth 1.0a user context.
type Twitter struct {
	client  *http.Client
	apiBase string
	logger  *zap.Logger
}

func NewTwitter(cfg config.TwitterConfig, logger *zap.Logger) *Twitter {
	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APIKeySecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)

	client := oauthConfig.Client(oauth1.NoContext, token)
	client.Timeout = cfg.Timeout

	return &Twitter{
		client:  client,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		logger:  logger,
	}
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type userResponse struct {
	Data Account `json:"data"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e apiError) String() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Errors) > 0:
		return e.Errors[0].Message
	default:
		return e.Title
	}
}

// Notify creates a post and returns its ID.
func (t *Twitter) Notify(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("encoding post: %w", err)
	}

	var resp tweetResponse
	if err := t.do(ctx, http.MethodPost, "/2/tweets", payload, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("%w: response carried no post id", ErrDeliveryFailed)
	}

	t.logger.Info("Posted", zap.String("id", resp.Data.ID))
	return resp.Data.ID, nil
}

// Verify checks the credentials and returns the account they belong to.
func (t *Twitter) Verify(ctx context.Context) (*Account, error) {
	var resp userResponse
	if err := t.do(ctx, http.MethodGet, "/2/users/me", nil, &resp); err != nil {
		return nil, err
	}
	t.logger.Info("Authenticated", zap.String("username", resp.Data.Username))
	return &resp.Data, nil
}

func (t *Twitter) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrDeliveryFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		sentinel := ErrDeliveryFailed
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			sentinel = ErrUnauthorized
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", sentinel, method, path, resp.StatusCode, apiErr)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrDeliveryFailed, err)
	}
	return nil
}
