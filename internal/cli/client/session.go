package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// InteractionInfo represents one logged question/answer exchange.
type InteractionInfo struct {
	ID        int64  `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	SourceID  *int64 `json:"source_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SessionInfo represents a session day's interactions and summary.
type SessionInfo struct {
	Date         string            `json:"date"`
	Interactions []InteractionInfo `json:"interactions"`
	Summary      string            `json:"summary,omitempty"`
}

// SessionCmd creates the session command.
func SessionCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show a session day",
		Long:  "Shows the question/answer log and daily summary for a session day, defaulting to today.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSession(cmd, date, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day to show (YYYY-MM-DD, defaults to today)")

	return cmd
}

func runSession(cmd *cobra.Command, date string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(api.UserID(), 10))
	if date != "" {
		query.Set("date", date)
	}

	resp, err := api.Get("/sessions/interactions?" + query.Encode())
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	var session SessionInfo
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse session response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Session %s\n", session.Date)

	if len(session.Interactions) == 0 {
		fmt.Println("No interactions recorded.")
	}
	for _, in := range session.Interactions {
		fmt.Printf("\nQ: %s\nA: %s\n", in.Question, in.Answer)
	}

	if session.Summary != "" {
		fmt.Printf("\nSummary: %s\n", session.Summary)
	}

	return nil
}
