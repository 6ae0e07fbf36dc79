// ABOUTME: Login command for configuring server, token, and device identity
// ABOUTME: Reads the API token without echo and persists config to disk
package cli

import (
	"flag"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/ruteo/fieldsync/config"
)

// LoginCommand configures the remote server and credentials for this device.
func LoginCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	server := fs.String("server", cfg.Server, "Field-ops API base URL (required)")
	_ = fs.Parse(args)

	if *server == "" {
		fmt.Print("Server URL: ")
		var input string
		if _, err := fmt.Scanln(&input); err != nil {
			return fmt.Errorf("failed to read server URL: %w", err)
		}
		*server = strings.TrimSpace(input)
	}
	if *server == "" {
		return fmt.Errorf("--server is required")
	}

	fmt.Print("API token (input hidden, empty to keep current): ")
	tokenBytes, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token != "" {
		cfg.Token = token
	}

	cfg.Server = strings.TrimRight(*server, "/")
	if cfg.DeviceID == "" {
		cfg.DeviceID = config.GenerateDeviceID()
		fmt.Printf("✓ Generated device ID: %s\n", cfg.DeviceID)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✓ Configuration saved to %s\n", config.Path())
	fmt.Println("\nNext step: run 'fieldsync daemon' to start syncing")
	return nil
}
