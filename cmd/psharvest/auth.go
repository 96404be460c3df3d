package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"psharvest/pkg/auth"
	"psharvest/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage search API access tokens",
	Long: `Manage stored search API access tokens.

Tokens are stored in, by preference:
  - The system keychain
  - An encrypted file (PBKDF2 derived key, AES-GCM)

PSHARVEST_ACCESS_TOKEN overrides stored tokens.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store an access token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <account>",
	Short: "Remove a stored access token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with masked tokens",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowTokenGuide(os.Stdout)

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("⚠️  Account '%s' already exists. Replace its token? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Access token (hidden): ")
	token, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return errors.New("access token is required")
	}

	fmt.Print("User-Agent (press Enter for default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:        name,
		AccessToken: token,
		UserAgent:   strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Token saved for account: %s", name))
	fmt.Printf("\nUse it with:\n  psharvest harvest <snapshot.csv> <subreddit> --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'psharvest auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	for i, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Printf("\n%d. %s\n", i+1, masked.Name)
		fmt.Printf("   Token: %s\n", masked.AccessToken)
		if masked.UserAgent != "" {
			fmt.Printf("   User-Agent: %s\n", masked.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", masked.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
