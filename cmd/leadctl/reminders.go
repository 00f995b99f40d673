package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"estateleads/client"
	"estateleads/leads"
	"estateleads/utils"
)

func remindersCmd() *cobra.Command {
	remindersCmd := &cobra.Command{Use: "reminders", Short: "Reminder operations"}

	// list
	var key string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders, all of yours or those of one lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			reminders, err := c.ListReminders(ctx, key)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTIME\tPRIORITY\tSTATUS\tOVERDUE\tNOTE")
			for _, r := range reminders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n", leads.ReminderKey(r), r.ReminderDate, r.ReminderTime, r.Priority, r.Status, r.IsOverdue, r.NoteText)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVarP(&key, "lead-key", "k", "", "Grouped lead key")
	remindersCmd.AddCommand(listCmd)

	// add
	var in leads.ReminderInput
	var priority string
	addCmd := &cobra.Command{
		Use:   "add LEAD_ID TEXT",
		Short: "Schedule a reminder on a lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.NoteText = args[1]
			in.Priority = leads.Priority(priority)
			return editLead(cmd, args[0], func(s *client.EditSession) error {
				_, err := s.AddReminder(in)
				return err
			})
		},
	}
	addCmd.Flags().StringVarP(&in.ReminderDate, "date", "d", "", "Reminder date YYYY-MM-DD (required)")
	addCmd.Flags().StringVar(&in.ReminderTime, "time", "", "Reminder time HH:MM")
	addCmd.Flags().StringVarP(&priority, "priority", "p", string(leads.PriorityNormal), "low, normal, high or urgent")
	_ = addCmd.MarkFlagRequired("date")
	remindersCmd.AddCommand(addCmd)

	return remindersCmd
}

func tokenCmd() *cobra.Command {
	var secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token USER_ID USER_TYPE",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET required")
			}
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			tok, err := utils.GenerateToken(secret, id, args[1], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "Signing secret of the server")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
