package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"nutriagent"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// PostPlanSummary formats a plan result and posts it to the channel.
func (c *Client) PostPlanSummary(ctx context.Context, channel string, user string, result *nutriagent.PlanResult) error {
	return c.PostMessage(ctx, channel, FormatResult(user, result))
}

// FormatResult renders a plan result as a human-readable Slack message.
func FormatResult(user string, result *nutriagent.PlanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Meal plan for %s* (%s)\n", user, result.Status)

	if result.Plan != nil {
		for _, m := range result.Plan.Meals {
			fmt.Fprintf(&b, "• *%s*:", m.Slot)
			for i, p := range m.Items {
				if i > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, " %s (%.0fg)", p.FoodID, p.Grams)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Totals: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fat, $%.2f\n",
			result.Plan.Totals.Calories,
			result.Plan.Totals.ProteinG,
			result.Plan.Totals.CarbsG,
			result.Plan.Totals.FatG,
			result.Plan.Totals.Cost,
		)
	}

	for _, ev := range result.Adaptations {
		fmt.Fprintf(&b, "Adapted (%s, confidence %.2f):\n", ev.TriggerID, ev.Confidence)
		for _, ch := range ev.Changes {
			fmt.Fprintf(&b, "  - %s\n", ch.Description)
		}
	}

	for _, note := range result.Notes {
		fmt.Fprintf(&b, "_Note: %s_\n", note)
	}

	return b.String()
}
