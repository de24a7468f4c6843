package client

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	UserID   int64  `json:"user_id"`
	Question string `json:"question"`
	SourceID *int64 `json:"source_id,omitempty"`
}

// ChunkInfo is one supporting chunk in a query response.
type ChunkInfo struct {
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
	Date           string  `json:"date,omitempty"`
	SourceTitle    string  `json:"source_title,omitempty"`
}

// QueryResponse represents the query API response.
type QueryResponse struct {
	Answer         string      `json:"answer"`
	DatesUsed      []string    `json:"dates_used"`
	TimelineChunks []ChunkInfo `json:"timeline_chunks"`
	DocumentChunks []ChunkInfo `json:"document_chunks"`
	Confidence     float64     `json:"confidence"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var sourceID int64

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Asks a question against your timeline and documents and prints the synthesized answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], sourceID, outputJSON)
		},
	}

	cmd.Flags().Int64VarP(&sourceID, "source", "s", 0, "Restrict the question to a single source id")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, sourceID int64, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := QueryRequest{
		UserID:   api.UserID(),
		Question: question,
	}
	if sourceID > 0 {
		req.SourceID = &sourceID
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(queryResp.Answer)
	fmt.Printf("\nConfidence: %.2f\n", queryResp.Confidence)

	if len(queryResp.TimelineChunks) > 0 {
		fmt.Printf("\nTimeline context:\n")
		for _, c := range queryResp.TimelineChunks {
			label := c.Date
			if label == "" {
				label = "-"
			}
			fmt.Printf("  [%s] %s (%.2f)\n", label, c.Text, c.RelevanceScore)
		}
	}

	if len(queryResp.DocumentChunks) > 0 {
		fmt.Printf("\nDocument context:\n")
		for _, c := range queryResp.DocumentChunks {
			title := c.SourceTitle
			if title == "" {
				title = "-"
			}
			fmt.Printf("  [%s] %s (%.2f)\n", title, c.Text, c.RelevanceScore)
		}
	}

	return nil
}

func parseUserID(raw string) (int64, error) {
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id: %q", raw)
	}
	return userID, nil
}
