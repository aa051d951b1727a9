package hostclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
)

// ErrNotFound is returned when the homeserver reports a missing resource.
var ErrNotFound = errors.New("not found")

// APIError represents a non-2xx response from the homeserver API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("homeserver error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("homeserver error: %s (%d)", e.Code, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("homeserver error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("homeserver error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to a homeserver over JSON/HTTP. It implements client.Transport.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ client.Transport = (*Client)(nil)

// NewClient constructs a homeserver client.
func NewClient(baseURL, token string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: normalized,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// NormalizeBaseURL normalizes a homeserver URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("homeserver url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid homeserver url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("homeserver url must include scheme (https://)")
	}
	value = strings.TrimRight(value, "/")
	return value, nil
}

// BaseURL returns the normalized homeserver URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type sendMessageResponse struct {
	MessageID uint64 `json:"message_id"`
}

// SendMessage posts a new message and returns the id the server assigned.
func (c *Client) SendMessage(ctx context.Context, req client.SendMessageRequest) (uint64, error) {
	var resp sendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/messages/send", nil, req, &resp); err != nil {
		return 0, err
	}
	if resp.MessageID == 0 {
		return 0, fmt.Errorf("send message: server returned no message id")
	}
	return resp.MessageID, nil
}

// UpdateMessageText replaces the text of a message.
func (c *Client) UpdateMessageText(ctx context.Context, req client.UpdateMessageTextRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/messages/update-text", nil, req, nil)
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, req client.DeleteMessageRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/messages/delete", nil, req, nil)
}

// GetMessageHistory fetches one page of channel history, oldest first.
func (c *Client) GetMessageHistory(ctx context.Context, req client.HistoryRequest) (client.HistoryPage, error) {
	var resp client.HistoryPage
	if err := c.doJSON(ctx, http.MethodPost, "/v1/messages/history", nil, req, &resp); err != nil {
		return client.HistoryPage{}, err
	}
	return resp, nil
}

type updateGuildInfoBody struct {
	GuildID       uint64 `json:"guild_id"`
	NewName       string `json:"new_name,omitempty"`
	UpdateName    bool   `json:"update_name,omitempty"`
	NewPicture    string `json:"new_picture,omitempty"`
	UpdatePicture bool   `json:"update_picture,omitempty"`
}

// UpdateGuildInformation changes a guild's name and/or picture.
func (c *Client) UpdateGuildInformation(ctx context.Context, req client.UpdateGuildInfoRequest) error {
	body := updateGuildInfoBody{GuildID: req.GuildID}
	if req.Name != nil {
		body.NewName = *req.Name
		body.UpdateName = true
	}
	if req.Picture != nil {
		body.NewPicture = req.Picture.String()
		body.UpdatePicture = true
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/guilds/update-information", nil, body, nil)
}

// EventsPage is a batch of events and the cursor to poll from next.
type EventsPage struct {
	Events []events.Envelope `json:"events"`
	Cursor string            `json:"cursor"`
}

// PollEvents returns events newer than cursor. An empty cursor starts from
// the server's current position.
func (c *Client) PollEvents(ctx context.Context, cursor string) (EventsPage, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var resp EventsPage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events", query, nil, &resp); err != nil {
		return EventsPage{}, err
	}
	return resp, nil
}

// Profile is a user's public profile.
type Profile struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   int32  `json:"status"`
	IsBot    bool   `json:"is_bot,omitempty"`
}

// GetProfile fetches a user's profile.
func (c *Client) GetProfile(ctx context.Context, userID uint64) (Profile, error) {
	var resp Profile
	query := url.Values{}
	query.Set("user_id", strconv.FormatUint(userID, 10))
	if err := c.doJSON(ctx, http.MethodGet, "/v1/profiles", query, nil, &resp); err != nil {
		return Profile{}, err
	}
	return resp, nil
}

// GuildChannel is a channel listed in guild data, in display order.
type GuildChannel struct {
	ChannelID  uint64 `json:"channel_id"`
	Name       string `json:"name"`
	IsCategory bool   `json:"is_category,omitempty"`
}

// GuildData describes a guild's information, channels and members.
type GuildData struct {
	GuildID  uint64         `json:"guild_id"`
	Name     string         `json:"name"`
	Picture  string         `json:"picture,omitempty"`
	Channels []GuildChannel `json:"channels"`
	Members  []uint64       `json:"members"`
}

// GetGuildData fetches a guild's information, channel list and member list.
func (c *Client) GetGuildData(ctx context.Context, guildID uint64) (GuildData, error) {
	var resp GuildData
	query := url.Values{}
	query.Set("guild_id", strconv.FormatUint(guildID, 10))
	if err := c.doJSON(ctx, http.MethodGet, "/v1/guilds", query, nil, &resp); err != nil {
		return GuildData{}, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, respData)
	}

	if respBody == nil || len(respData) == 0 {
		return nil
	}
	if err := json.Unmarshal(respData, respBody); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	var payload apiErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
