package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/config"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external data sources",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a Google sign-in URL and try to open it in your browser
2. Save the token for future loads
3. Update your config file with the refresh token

Run it once before 'dossier load --spreadsheet-id'. Service accounts
(sheets.service_account_path) do not need it.`,
		Args: cobra.NoArgs,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsConfig := config.LoadSheetsConfig(viper.GetViper())
	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		sheetsConfig.ClientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		sheetsConfig.ClientSecret = flagSecret
	}
	if sheetsConfig.ClientID == "" || sheetsConfig.ClientSecret == "" {
		return fmt.Errorf("OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret in config or use --client-id and --client-secret")
	}
	if sheetsConfig.TokenFile == "" {
		sheetsConfig.TokenFile = filepath.Join(configDir(), "sheets-token.json")
	}

	slog.Info("Starting Google Sheets authentication", "token_file", sheetsConfig.TokenFile)

	token, err := ingest.AuthorizeInteractive(ctx, sheetsConfig, openBrowser)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("sheets.client_id", sheetsConfig.ClientID)
	viper.Set("sheets.client_secret", sheetsConfig.ClientSecret)
	viper.Set("sheets.token_file", sheetsConfig.TokenFile)
	viper.Set("sheets.refresh_token", token.RefreshToken)

	out := cmd.OutOrStdout()
	if err := saveConfig(); err != nil {
		slog.Warn("Failed to update config file with refresh token", "error", err)
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Could not save the refresh token to the config file."))
		_, _ = fmt.Fprintf(out, "Add this to your config.yaml manually:\nsheets:\n  refresh_token: %q\n", token.RefreshToken)
		return nil
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authentication saved to "+viper.ConfigFileUsed()))
	return err
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "dossier")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dossier")
}

func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = filepath.Join(configDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0750); err != nil {
		return err
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return err
	}
	viper.SetConfigFile(configFile)
	return nil
}

// openBrowser tries to open the URL in the default browser.
func openBrowser(url string) {
	var err error
	switch goos := runtime.GOOS; goos {
	case "linux":
		err = exec.Command("xdg-open", url).Start() //nolint:gosec,forbidigo
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start() //nolint:gosec,forbidigo
	case "darwin":
		err = exec.Command("open", url).Start() //nolint:gosec,forbidigo
	}
	if err != nil {
		slog.Debug("Failed to open browser", "error", err)
	}
}
