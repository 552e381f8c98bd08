// Package ctftime implements the event-directory port against the
// CTFtime API.
package ctftime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/example/ctfcord/internal/ports/secondary"
)

// CTFtime 403s requests with a default or empty agent.
const userAgent = "ctfcord/1.0 (+https://github.com/example/ctfcord)"

// maxDescription bounds the persisted description size. Truncation
// happens here, before storage, never at display time.
const maxDescription = 1000

var (
	eventIDPattern = regexp.MustCompile(`[0-9]+`)
	invitePattern  = regexp.MustCompile(`(https://)?(www\.)?discord\.(gg|com/invite)/[A-Za-z0-9]+/?`)
)

// Client resolves event identifiers against the CTFtime API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a CTFtime client against the given base URL
// (normally https://ctftime.org).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// apiEvent mirrors the CTFtime event JSON.
type apiEvent struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Logo         string    `json:"logo"`
	Start        time.Time `json:"start"`
	Finish       time.Time `json:"finish"`
	Participants int       `json:"participants"`
}

// Resolve extracts the first run of decimal digits from the identifier
// (bare ID or URL) and fetches that event's descriptor.
func (c *Client) Resolve(ctx context.Context, identifier string) (*secondary.EventDescriptor, error) {
	id := eventIDPattern.FindString(identifier)
	if id == "" {
		return nil, fmt.Errorf("%w: %q", secondary.ErrInvalidIdentifier, identifier)
	}

	var event apiEvent
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/events/%s/", c.baseURL, id), &event); err != nil {
		return nil, err
	}

	return descriptorFromAPI(&event), nil
}

// Upcoming lists events starting within the given window.
func (c *Client) Upcoming(ctx context.Context, within time.Duration) ([]*secondary.EventDescriptor, error) {
	now := time.Now()
	q := url.Values{}
	q.Set("limit", "100")
	q.Set("start", fmt.Sprintf("%d", now.Unix()))
	q.Set("finish", fmt.Sprintf("%d", now.Add(within).Unix()))

	var events []apiEvent
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/events/?%s", c.baseURL, q.Encode()), &events); err != nil {
		return nil, err
	}

	descriptors := make([]*secondary.EventDescriptor, len(events))
	for i := range events {
		descriptors[i] = descriptorFromAPI(&events[i])
	}
	return descriptors, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("event directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return secondary.ErrEventNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event directory returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode event directory response: %w", err)
	}
	return nil
}

func descriptorFromAPI(event *apiEvent) *secondary.EventDescriptor {
	return &secondary.EventDescriptor{
		ID:           fmt.Sprintf("%d", event.ID),
		Title:        event.Title,
		Description:  truncate(event.Description, maxDescription),
		URL:          event.URL,
		LogoURL:      event.Logo,
		InviteURL:    invitePattern.FindString(event.Description),
		Start:        event.Start,
		Finish:       event.Finish,
		Participants: event.Participants,
	}
}

// truncate bounds s to max characters, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// Ensure Client implements the interface
var _ secondary.EventDirectory = (*Client)(nil)
