package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	BaseURL = "https://discord.com/api/v10"

	// PrivacyLevelGuildOnly is the only privacy level scheduled events
	// support.
	PrivacyLevelGuildOnly = 2
)

// Client is a Discord REST client scoped to one guild's scheduled events.
type Client struct {
	token      string
	guildID    string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Discord client.
func NewClient(token, guildID string) *Client {
	return &Client{
		token:   token,
		guildID: guildID,
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if the client has credentials and a guild scope.
func (c *Client) IsConfigured() bool {
	return c.token != "" && c.guildID != ""
}

// GuildID returns the configured guild scope.
func (c *Client) GuildID() string {
	return c.guildID
}

// SetBaseURL overrides the API endpoint (used in tests).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// doRequest performs an HTTP request with bot auth. Non-2xx responses are
// returned as errors carrying the status code and response body verbatim.
func (c *Client) doRequest(method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ListScheduledEvents returns all scheduled events for the configured guild.
func (c *Client) ListScheduledEvents() ([]ScheduledEvent, error) {
	data, err := c.doRequest("GET", "/guilds/"+c.guildID+"/scheduled-events", nil)
	if err != nil {
		return nil, err
	}

	var events []ScheduledEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unmarshal scheduled events: %w", err)
	}

	return events, nil
}

// CreateScheduledEvent creates a new scheduled event in the guild.
func (c *Client) CreateScheduledEvent(req *EventRequest) (*ScheduledEvent, error) {
	data, err := c.doRequest("POST", "/guilds/"+c.guildID+"/scheduled-events", req)
	if err != nil {
		return nil, err
	}

	var event ScheduledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal scheduled event: %w", err)
	}

	return &event, nil
}

// ModifyScheduledEvent patches an existing scheduled event.
func (c *Client) ModifyScheduledEvent(eventID string, req *EventRequest) (*ScheduledEvent, error) {
	data, err := c.doRequest("PATCH", "/guilds/"+c.guildID+"/scheduled-events/"+eventID, req)
	if err != nil {
		return nil, err
	}

	var event ScheduledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal scheduled event: %w", err)
	}

	return &event, nil
}

// DeleteScheduledEvent removes a scheduled event from the guild.
func (c *Client) DeleteScheduledEvent(eventID string) error {
	_, err := c.doRequest("DELETE", "/guilds/"+c.guildID+"/scheduled-events/"+eventID, nil)
	return err
}
