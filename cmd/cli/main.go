package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/pkg/directory"
)

var (
	apiURL    string
	sortBy    string
	sortOrder string

	newEmployee domain.Employee
)

var rootCmd = &cobra.Command{
	Use:           "employeedir",
	Short:         "Browse and edit the employee directory",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees, with pending edits applied",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an employee",
	Long: `Add an employee. All five fields are required, the email must be
well formed and not already used by another employee.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <field> <value>",
	Short: "Stage a field change; nothing is sent until save",
	Long: `Stage a change to one field of an employee. Fields: firstName,
lastName, position, phone, email. Edits to the same employee merge.`,
	Args: cobra.ExactArgs(3),
	RunE: runEdit,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show staged edits",
	Args:  cobra.NoArgs,
	RunE:  runPending,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Validate and submit staged edits as one batch",
	Args:  cobra.NoArgs,
	RunE:  runSave,
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Drop staged edits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := defaultPendingStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "pending edits discarded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", getAPIURL(), "employee collection URL (env EMPLOYEEDIR_API)")

	listCmd.Flags().StringVar(&sortBy, "sort", domain.FieldFirstName, "sort key: firstName, lastName or position")
	listCmd.Flags().StringVar(&sortOrder, "order", directory.OrderAsc, "sort order: asc or desc")

	addCmd.Flags().StringVar(&newEmployee.FirstName, "first", "", "first name")
	addCmd.Flags().StringVar(&newEmployee.LastName, "last", "", "last name")
	addCmd.Flags().StringVar(&newEmployee.Position, "position", "", "position")
	addCmd.Flags().StringVar(&newEmployee.Phone, "phone", "", "phone number")
	addCmd.Flags().StringVar(&newEmployee.Email, "email", "", "email address")

	rootCmd.AddCommand(listCmd, addCmd, editCmd, pendingCmd, saveCmd, discardCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var verr *directory.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, verr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// openSession loads the list and overlays any staged edits
func openSession(ctx context.Context) (*directory.Session, *pendingStore, error) {
	store, err := defaultPendingStore()
	if err != nil {
		return nil, nil, err
	}
	session := directory.NewSession(directory.NewClient(apiURL, nil))
	if err := session.Load(ctx); err != nil {
		return nil, nil, err
	}
	pending, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	session.Restore(pending)
	return session, store, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	session, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	if err := session.SetSort(sortBy, sortOrder); err != nil {
		return err
	}

	dirty := map[string]bool{}
	for _, row := range session.Dirty() {
		dirty[row.ID] = true
	}
	printEmployees(cmd.OutOrStdout(), session.Employees(), dirty)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	session, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	session.ToggleAddForm()
	for _, field := range []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldPosition, domain.FieldPhone, domain.FieldEmail} {
		value, _ := newEmployee.Get(field)
		if err := session.SetDraftField(field, value); err != nil {
			return err
		}
	}
	if err := session.AddEmployee(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (%d employees)\n", newEmployee.FirstName, newEmployee.LastName, len(session.Employees()))
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	session, store, err := openSession(ctx)
	if err != nil {
		return err
	}
	id, field, value := args[0], args[1], args[2]
	if err := session.Edit(id, field, value); err != nil {
		return err
	}
	if err := store.Save(session.Dirty()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "staged %s.%s = %q (%d pending)\n", id, field, value, len(session.Dirty()))
	return nil
}

func runPending(cmd *cobra.Command, args []string) error {
	store, err := defaultPendingStore()
	if err != nil {
		return err
	}
	rows, err := store.Load()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending edits")
		return nil
	}
	printEmployees(cmd.OutOrStdout(), rows, nil)
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	session, store, err := openSession(ctx)
	if err != nil {
		return err
	}
	if len(session.Dirty()) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending edits")
		return nil
	}

	result, err := session.SaveChanges(ctx)
	if result == nil {
		return err
	}
	if clearErr := store.Clear(); clearErr != nil {
		return clearErr
	}
	printResult(cmd.OutOrStdout(), result)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d updates failed", len(result.Errors), result.Len())
	}
	return nil
}

func printEmployees(out io.Writer, employees []domain.Employee, dirty map[string]bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tFIRST NAME\tLAST NAME\tPOSITION\tPHONE\tEMAIL")
	for _, e := range employees {
		mark := ""
		if dirty[e.ID] {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", mark, e.ID, e.FirstName, e.LastName, e.Position, e.Phone, e.Email)
	}
	w.Flush()
}

func printResult(out io.Writer, result *domain.BatchUpdateResult) {
	fmt.Fprintf(out, "saved %d, failed %d\n", len(result.SuccessfulUpdates), len(result.Errors))
	for _, s := range result.SuccessfulUpdates {
		fmt.Fprintf(out, "  ok   %s %s %s\n", s.UpdatedEmployee.ID, s.UpdatedEmployee.FirstName, s.UpdatedEmployee.LastName)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %d  %s %s\n", e.Status, e.ID, e.Message)
	}
}

func getAPIURL() string {
	if url := os.Getenv("EMPLOYEEDIR_API"); url != "" {
		return url
	}
	return directory.DefaultBaseURL
}
