package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func (a *app) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "users"},
		Short:   "Manage user accounts (admin only)",
	}
	cmd.AddCommand(a.accountsListCmd(), a.accountsAddCmd(), a.accountsEditCmd(), a.accountsDeleteCmd())
	return cmd
}

func roleFlag(s string) (library.Role, error) {
	if s == "" {
		return "", nil
	}
	return library.ParseRole(s)
}

func (a *app) accountsListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := roleFlag(role)
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			accounts, err := a.mgr.Accounts(cmd.Context(), acct, r)
			if err != nil {
				return err
			}
			return a.printAccounts(accounts)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only accounts with this role")
	return cmd
}

func (a *app) accountsAddCmd() *cobra.Command {
	var (
		in   library.AccountInput
		role string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			in.Role = library.Role(role)
			if in.Password == "" {
				if in.Password, err = readPassword("Password for " + in.Username + ": "); err != nil {
					return err
				}
			}
			created, err := a.mgr.AddAccount(cmd.Context(), acct, in)
			if err != nil {
				return err
			}
			if !a.jsonOut {
				fmt.Fprintf(a.out, "Account %q created with ID %d.\n", created.Username, created.ID)
			}
			return a.printAccount(created)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "login name (cannot be changed later)")
	f.StringVar(&in.Password, "new-password", "", "password for the new account (prompted when empty)")
	f.StringVar(&role, "role", string(library.RoleMember), "admin, librarian or member")
	f.StringVar(&in.FullName, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) accountsEditCmd() *cobra.Command {
	var (
		up   library.AccountUpdate
		role string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an account; only the given flags are updated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			current, err := a.mgr.GetAccount(cmd.Context(), acct, id)
			if err != nil {
				return err
			}
			merged := current.UpdateOf()
			f := cmd.Flags()
			if f.Changed("role") {
				if merged.Role, err = library.ParseRole(role); err != nil {
					return err
				}
			}
			if f.Changed("name") {
				merged.FullName = up.FullName
			}
			if f.Changed("email") {
				merged.Email = up.Email
			}
			if f.Changed("new-password") {
				merged.Password = up.Password
			}
			updated, err := a.mgr.EditAccount(cmd.Context(), acct, id, merged)
			if err != nil {
				return err
			}
			return a.printAccount(updated)
		},
	}
	f := cmd.Flags()
	f.StringVar(&role, "role", "", "admin, librarian or member")
	f.StringVar(&up.FullName, "name", "", "full name")
	f.StringVar(&up.Email, "email", "", "email address")
	f.StringVar(&up.Password, "new-password", "", "new password")
	return cmd
}

func (a *app) accountsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account with no books on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.mgr.RemoveAccount(cmd.Context(), acct, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Account %d deleted.\n", id)
			return nil
		},
	}
}
