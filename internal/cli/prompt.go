package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/switchtube/internal/config"
)

// promptToken asks for the access token on the terminal without echoing it,
// then offers to store it in the config file.
func (a *app) promptToken(cmd *cobra.Command) (string, error) {
	fd := int(a.stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoToken
	}

	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "An access token is required. Create one in your SWITCHtube profile.")
	fmt.Fprint(out, "Token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out) // Add newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errNoToken
	}

	fmt.Fprint(out, "Save token to the config file? [y/N] ")
	reader := bufio.NewReader(a.stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "y" || answer == "yes" {
		if err := config.SaveToken(config.DefaultConfigPath(), token); err != nil {
			a.logger.Warn("failed to save token", "error", err)
			fmt.Fprintf(out, "Could not save token: %v\n", err)
		} else {
			fmt.Fprintln(out, "✓ Token saved")
		}
	}
	return token, nil
}
