package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"internwatch/internal/model"
)

// Ensure DiscordNotifier implements model.Publisher.
var _ model.Publisher = (*DiscordNotifier)(nil)

// DiscordNotifier sends posting alerts to a Discord channel via webhook.
type DiscordNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDiscordNotifier returns a publisher that posts each batch to Discord
// via webhook, one embed per posting.
func NewDiscordNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Discord accepts at most 10 embeds per webhook message.
const embedsPerMessage = 10

// Publish sends the postings as webhook messages, chunked to Discord's embed
// limit. Returns a PublishError only if every message fails; individual
// failures are logged.
func (d *DiscordNotifier) Publish(postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	messages := 0
	failures := 0
	for start := 0; start < len(postings); start += embedsPerMessage {
		end := min(start+embedsPerMessage, len(postings))
		if messages > 0 {
			time.Sleep(500 * time.Millisecond)
		}
		messages++

		if err := d.sendMessage(postings[start:end]); err != nil {
			d.logger.Error("discord notification failed", "postings", end-start, "error", err)
			failures++
		}
	}

	if failures == messages {
		return &model.PublishError{Err: fmt.Errorf("all %d discord messages failed", failures)}
	}
	d.logger.Info("discord notifications complete", "sent", messages-failures, "failed", failures)
	return nil
}

func (d *DiscordNotifier) sendMessage(postings []model.Posting) error {
	payload := buildPayload(postings)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	resp, err := d.httpClient.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		d.logger.Warn("discord rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := d.httpClient.Post(d.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to discord (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode >= 300 {
			return fmt.Errorf("discord returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned %d", resp.StatusCode)
	}
	return nil
}

// Webhook payload types.

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	URL    string         `json:"url,omitempty"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
	Footer *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

const embedColorBlue = 0x3498db

func buildPayload(postings []model.Posting) discordPayload {
	payload := discordPayload{
		Content: fmt.Sprintf("Found %d new posting(s)", len(postings)),
	}
	for _, p := range postings {
		postedText := "Just detected"
		if !p.ApproxDate {
			postedText = p.PostedAt.Format("Mon, 02 Jan 2006")
		}

		location := p.Location
		if location == "" {
			location = "Not specified"
		}

		payload.Embeds = append(payload.Embeds, discordEmbed{
			Title: fmt.Sprintf("%s — %s", p.Company, p.Title),
			URL:   p.URL,
			Color: embedColorBlue,
			Fields: []discordField{
				{Name: "Location", Value: location, Inline: true},
				{Name: "Posted", Value: postedText, Inline: true},
				{Name: "Source", Value: p.Source, Inline: true},
			},
			Footer: &discordFooter{Text: "internwatch"},
		})
	}
	return payload
}

// SendTestMessage sends a dummy posting to verify the integration works.
func SendTestMessage(p model.Publisher) error {
	now := time.Now()
	testPosting := model.Posting{
		ID:         "test:001",
		Source:     "test",
		Company:    "Internwatch Test",
		Title:      "Test Notification — Integration Verified",
		Location:   "Everywhere",
		URL:        "https://example.com/postings/test",
		PostedAt:   now,
		IngestedAt: now,
	}
	return p.Publish([]model.Posting{testPosting})
}
