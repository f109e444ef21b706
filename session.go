package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/library"
)

var stdin = bufio.NewReader(os.Stdin)

// readPassword reads a password with masking when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// credentials resolves username and password from flags, then the environment, then a prompt.
func (a *app) credentials() (string, string, error) {
	user, pass := a.user, a.password
	if user == "" {
		user = os.Getenv("LIBRARY_USER")
	}
	if pass == "" {
		pass = os.Getenv("LIBRARY_PASSWORD")
	}
	var err error
	if user == "" {
		if user, err = prompt("Username: "); err != nil {
			return "", "", fmt.Errorf("read username: %w", err)
		}
	}
	if pass == "" {
		if pass, err = readPassword("Password: "); err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
	}
	return user, pass, nil
}

// signIn authenticates the acting account for one command.
func (a *app) signIn(ctx context.Context) (*library.Account, error) {
	user, pass, err := a.credentials()
	if err != nil {
		return nil, err
	}
	return a.mgr.Login(ctx, user, pass)
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and show what the account may do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			var caps []string
			for _, c := range []library.Capability{
				library.CapBrowseCatalog, library.CapManageCatalog, library.CapLend,
				library.CapReturn, library.CapViewAllLoans, library.CapManageAccounts,
			} {
				if library.Can(acct.Role, c) {
					caps = append(caps, c.String())
				}
			}
			if a.jsonOut {
				return a.printJSON(struct {
					*library.Account
					Capabilities []string `json:"capabilities"`
				}{acct, caps})
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s, %s)\n", acct.Username, acct.FullName, acct.Role)
			fmt.Fprintf(a.out, "You may: %s\n", strings.Join(caps, ", "))
			return nil
		},
	}
}
