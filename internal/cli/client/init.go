package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates the init command.
func InitCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init <user-id>",
		Short: "Configure the CLI",
		Long:  "Stores the user id and API URL in the global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], apiURL)
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API base URL")

	return cmd
}

func runInit(rawUserID, apiURL string) error {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return err
	}

	api, err := NewAPIClientWithConfig(userID, apiURL)
	if err != nil {
		return err
	}

	// Verify the server is reachable before persisting anything.
	if _, err := api.Get("/health"); err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", apiURL, err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{UserID: userID, APIURL: apiURL}); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	fmt.Printf("Configured user %d against %s\n", userID, apiURL)
	fmt.Printf("Config written to %s\n", configPath)
	return nil
}
