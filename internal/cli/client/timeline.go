package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// TimelineEvent represents one event in the timeline response.
type TimelineEvent struct {
	ID         int64  `json:"id"`
	SourceID   int64  `json:"source_id"`
	Type       string `json:"event_type"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// TimelineDay represents one day's worth of events.
type TimelineDay struct {
	Date   string          `json:"date"`
	Events []TimelineEvent `json:"events"`
}

// TimelineCmd creates the timeline command.
func TimelineCmd() *cobra.Command {
	var (
		date  string
		start string
		end   string
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Browse your timeline",
		Long:  "Lists your events for a single day (--date) or a date range (--start and --end).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runTimeline(cmd, date, start, end, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day to list (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Range end (YYYY-MM-DD)")

	return cmd
}

func runTimeline(cmd *cobra.Command, date, start, end string, outputJSON bool) error {
	if date == "" && (start == "" || end == "") {
		return fmt.Errorf("either --date or both --start and --end are required")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(api.UserID(), 10))
	if date != "" {
		query.Set("date", date)
	} else {
		query.Set("start", start)
		query.Set("end", end)
	}

	resp, err := api.Get("/timeline?" + query.Encode())
	if err != nil {
		return fmt.Errorf("failed to list timeline: %w", err)
	}

	var days []TimelineDay
	if err := json.Unmarshal(resp.Data, &days); err != nil {
		return fmt.Errorf("failed to parse timeline response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(days, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(days) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	for i, day := range days {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%s\n", day.Date)
		for _, e := range day.Events {
			fmt.Printf("  [%s] %s\n", e.Type, e.Text)
		}
	}

	return nil
}
