package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// SourceInfo represents one ingested source in list responses.
type SourceInfo struct {
	ID        int64  `json:"id"`
	Type      string `json:"source_type"`
	Title     string `json:"title"`
	URI       string `json:"uri,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SourceListResponse represents the paginated sources response.
type SourceListResponse struct {
	Sources []SourceInfo `json:"sources"`
	Cursor  string       `json:"cursor,omitempty"`
	HasMore bool         `json:"has_more"`
}

// DownloadResponse represents the source download response.
type DownloadResponse struct {
	DownloadURL string `json:"download_url"`
}

// SourcesCmd creates the sources command group.
func SourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List and download sources",
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesDownloadCmd())

	return cmd
}

func sourcesListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sources")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runSourcesList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(api.UserID(), 10))
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	resp, err := api.Get("/sources/?" + query.Encode())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	var listResp SourceListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse sources response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Sources) == 0 {
		fmt.Println("No sources found.")
		return nil
	}

	for _, s := range listResp.Sources {
		fmt.Printf("%d. [%s] %s\n", s.ID, s.Type, s.Title)
	}
	if listResp.HasMore {
		fmt.Printf("\nMore available, continue with --cursor %s\n", listResp.Cursor)
	}

	return nil
}

func sourcesDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Get a download URL for a source's original artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSourcesDownload(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSourcesDownload(cmd *cobra.Command, rawID string, outputJSON bool) error {
	sourceID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || sourceID <= 0 {
		return fmt.Errorf("invalid source id: %q", rawID)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(api.UserID(), 10))

	resp, err := api.Get(fmt.Sprintf("/sources/%d/download?%s", sourceID, query.Encode()))
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var downloadResp DownloadResponse
	if err := json.Unmarshal(resp.Data, &downloadResp); err != nil {
		return fmt.Errorf("failed to parse download response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(downloadResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(downloadResp.DownloadURL)
	return nil
}
