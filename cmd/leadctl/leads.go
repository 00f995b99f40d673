package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"estateleads/client"
	"estateleads/leads"
)

func parseID(kind, s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return uint(id), nil
}

// editLead fetches a lead, applies edit in a session and commits it
func editLead(cmd *cobra.Command, rawID string, edit func(s *client.EditSession) error) error {
	id, err := parseID("lead", rawID)
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	lead, err := c.GetLead(ctx, id)
	if err != nil {
		return err
	}
	s := client.NewEditSession(lead, c)
	defer s.Close()
	if err := edit(s); err != nil {
		return err
	}
	res, err := s.Commit(ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, res)
}

func leadsCmd() *cobra.Command {
	leadsCmd := &cobra.Command{Use: "leads", Short: "Lead operations"}

	// list
	var q client.LeadQuery
	var status, actionType string
	var listingID uint
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			q.Status = leads.Status(status)
			q.ActionType = leads.ActionType(actionType)
			if listingID != 0 {
				q.ListingID = &listingID
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			list := client.NewLeadList(c, q)
			if err := list.Reload(ctx); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSCORE\tCATEGORY\tSEEKER\tLISTING\tKEY")
			for _, l := range list.Leads() {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n", l.ID, l.Status, l.LeadScore, l.LeadCategory, l.SeekerName, l.ListingTitle, l.GroupedLeadKey)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("%d of %d leads\n", len(list.Leads()), list.Total())
			return nil
		},
	}
	listCmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status")
	listCmd.Flags().StringVar(&actionType, "action-type", "", "Filter by action type")
	listCmd.Flags().UintVarP(&listingID, "listing", "l", 0, "Filter by listing id")
	listCmd.Flags().StringVar(&q.DateFrom, "from", "", "Actions on or after YYYYMMDD")
	listCmd.Flags().StringVar(&q.DateTo, "to", "", "Actions on or before YYYYMMDD")
	listCmd.Flags().StringVarP(&q.Search, "search", "q", "", "Search seeker name, email, phone or listing title")
	listCmd.Flags().IntVarP(&q.Page, "page", "p", 1, "Page number")
	listCmd.Flags().IntVar(&q.PageSize, "page-size", 20, "Leads per page")
	leadsCmd.AddCommand(listCmd)

	// show
	showCmd := &cobra.Command{
		Use:   "show LEAD_ID",
		Short: "Show a lead with its actions and reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("lead", args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			lead, err := c.GetLead(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, lead)
		},
	}
	leadsCmd.AddCommand(showCmd)

	// status
	statusCmd := &cobra.Command{
		Use:   "status LEAD_ID STATUS",
		Short: "Set the status of a lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := leads.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return editLead(cmd, args[0], func(s *client.EditSession) error {
				return s.SetStatus(next)
			})
		},
	}
	leadsCmd.AddCommand(statusCmd)

	// note add
	noteCmd := &cobra.Command{Use: "note", Short: "Lead notes"}
	noteAddCmd := &cobra.Command{
		Use:   "add LEAD_ID TEXT",
		Short: "Append a note to a lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editLead(cmd, args[0], func(s *client.EditSession) error {
				return s.AddNote(args[1])
			})
		},
	}
	noteCmd.AddCommand(noteAddCmd)
	leadsCmd.AddCommand(noteCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Count leads per status and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			stats, err := c.LeadStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, stats)
		},
	}
	leadsCmd.AddCommand(statsCmd)

	return leadsCmd
}
