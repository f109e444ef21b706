package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func (a *app) loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loans",
		Aliases: []string{"loan"},
		Short:   "Lend and return books",
	}
	cmd.AddCommand(a.loansListCmd(), a.loansShowCmd(), a.loansCreateCmd(), a.loansReturnCmd(), a.borrowersCmd())
	return cmd
}

func (a *app) loansListCmd() *cobra.Command {
	var (
		f    library.LoanFilter
		mine bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			if mine {
				f.AccountID = acct.ID
			}
			loans, err := a.mgr.Loans(cmd.Context(), acct, f)
			if err != nil {
				return err
			}
			return a.printLoans(loans)
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only loans of the signed-in account")
	cmd.Flags().Int64Var(&f.AccountID, "account", 0, "only loans of this account id")
	cmd.Flags().BoolVar(&f.OpenOnly, "open", false, "only loans not yet returned")
	return cmd
}

func (a *app) loansShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <loan-id>",
		Short: "Show one loan",
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
			l, err := a.mgr.Loan(cmd.Context(), acct, id)
			if err != nil {
				return err
			}
			return a.printLoan(l)
		},
	}
}

func (a *app) loansCreateCmd() *cobra.Command {
	var (
		bookID, accountID int64
		days              int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Lend a copy of a book to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			loan, err := a.mgr.Lend(cmd.Context(), acct, bookID, accountID, days)
			if err != nil {
				return err
			}
			v, err := a.mgr.Loan(cmd.Context(), acct, loan.ID)
			if err != nil {
				return err
			}
			if !a.jsonOut {
				fmt.Fprintf(a.out, "Loan %d created, due %s.\n", loan.ID, day(loan.DueDate))
			}
			return a.printLoan(v)
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "book id")
	cmd.Flags().Int64Var(&accountID, "account", 0, "borrower account id")
	cmd.Flags().IntVar(&days, "days", 0, fmt.Sprintf("loan period in days (default from config, %d)", library.DefaultLoanDays))
	_ = cmd.MarkFlagRequired("book")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func (a *app) loansReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Record the return of a loan",
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
			loan, err := a.mgr.Return(cmd.Context(), acct, id)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(loan)
			}
			fmt.Fprintf(a.out, "Loan %d returned on %s.\n", loan.ID, day(*loan.ReturnDate))
			return nil
		},
	}
}

func (a *app) borrowersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrowers",
		Short: "List member accounts that loans can be made out to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			members, err := a.mgr.Borrowers(cmd.Context(), acct)
			if err != nil {
				return err
			}
			return a.printAccounts(members)
		},
	}
}
