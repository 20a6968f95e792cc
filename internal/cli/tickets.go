package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/pkg/helpdesk"
)

func (a *app) ticketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tickets",
		Aliases: []string{"ticket"},
		Short:   "Raise, list and work on tickets",
	}
	cmd.AddCommand(
		a.ticketsListCmd(),
		a.ticketsShowCmd(),
		a.ticketsRaiseCmd(),
		a.ticketsUpdateCmd(),
		a.ticketsReplyCmd(),
		a.ticketsAttachmentCmd(),
		a.ticketsHistoryCmd(),
		a.ticketsStatsCmd(),
	)
	return cmd
}

// listTickets returns the tickets visible to the session: the whole queue
// for staff, own tickets for customers.
func (a *app) listTickets(cmd *cobra.Command, all bool, status string) ([]helpdesk.Ticket, error) {
	if all {
		if _, err := a.client.RequireRole(helpdesk.RoleAgent, helpdesk.RoleAdmin); err != nil {
			return nil, err
		}
		return a.client.AllTickets(cmd.Context(), helpdesk.TicketFilter{Status: helpdesk.Status(status)})
	}
	session, err := a.client.RequireRole(helpdesk.RoleCustomer, helpdesk.RoleAgent, helpdesk.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if session.Role == helpdesk.RoleCustomer {
		tickets, err := a.client.MyTickets(cmd.Context())
		if err != nil || status == "" {
			return tickets, err
		}
		out := tickets[:0]
		for _, t := range tickets {
			if string(t.Status) == status {
				out = append(out, t)
			}
		}
		return out, nil
	}
	return a.client.AllTickets(cmd.Context(), helpdesk.TicketFilter{Status: helpdesk.Status(status)})
}

func (a *app) ticketsListCmd() *cobra.Command {
	var all bool
	var category, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tickets, err := a.listTickets(cmd, all, status)
			if err != nil {
				return err
			}
			tickets = helpdesk.FilterByCategory(tickets, category)
			if len(tickets) == 0 {
				fmt.Fprintln(a.out, "No tickets.")
				return nil
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSUBJECT\tCATEGORY\tPRIORITY\tSTATUS\tCUSTOMER\tCREATED")
			for _, t := range tickets {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Subject, t.Category, t.Priority, t.Status, t.CustomerName, t.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show the whole queue (agents and admins)")
	cmd.Flags().StringVar(&category, "category", "", "only this category (IT, HR, Facilities, All)")
	cmd.Flags().StringVar(&status, "status", "", "only this status (Open, In Progress, Completed)")
	return cmd
}

func (a *app) ticketsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a ticket and its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := a.client.GetTicket(cmd.Context(), id)
			if err != nil {
				return err
			}
			t := d.Ticket
			fmt.Fprintf(a.out, "#%d %s\n", t.ID, t.Subject)
			fmt.Fprintf(a.out, "Status: %s  Category: %s  Priority: %s  Customer: %s\n", t.Status, t.Category, t.Priority, t.CustomerName)
			if t.AISummary != "" {
				fmt.Fprintf(a.out, "Summary: %s\n", t.AISummary)
			}
			if t.FileName != "" {
				fmt.Fprintf(a.out, "Attachment: %s\n", t.FileName)
			}
			fmt.Fprintf(a.out, "\n%s\n", t.Message)
			for _, m := range d.Messages {
				fmt.Fprintf(a.out, "\n[%s] %s (%s): %s", m.CreatedAt.Format("2006-01-02 15:04"), m.SenderName, m.SenderRole, m.Text)
			}
			if len(d.Messages) > 0 {
				fmt.Fprintln(a.out)
			}
			if !helpdesk.CanReply(&t) {
				fmt.Fprintln(a.out, "\nThis ticket is completed; replies are closed.")
			}
			return nil
		},
	}
}

func (a *app) ticketsRaiseCmd() *cobra.Command {
	var subject, message, file string
	cmd := &cobra.Command{
		Use:   "raise",
		Short: "Raise a new ticket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := helpdesk.NewTicket{Subject: subject, Message: message}
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in.Attachment = &helpdesk.Attachment{Name: filepath.Base(file), Reader: f}
			}
			t, err := a.client.RaiseTicket(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Raised ticket #%d (%s)\n", t.ID, t.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "ticket subject")
	cmd.Flags().StringVar(&message, "message", "", "problem description")
	cmd.Flags().StringVar(&file, "file", "", "optional attachment")
	return cmd
}

func (a *app) ticketsUpdateCmd() *cobra.Command {
	var category, priority, status string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Set category, priority and status (agents and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.client.RequireRole(helpdesk.RoleAgent, helpdesk.RoleAdmin); err != nil {
				return err
			}
			d, err := a.client.GetTicket(cmd.Context(), id)
			if err != nil {
				return err
			}
			tr := helpdesk.Triage{Category: category, Priority: helpdesk.Priority(priority), Status: helpdesk.Status(status)}
			if tr.Category == "" {
				tr.Category = d.Ticket.Category
			}
			if tr.Priority == "" {
				tr.Priority = d.Ticket.Priority
			}
			if tr.Status == "" {
				tr.Status = d.Ticket.Status
			}
			t, err := a.client.UpdateTicketTriage(cmd.Context(), &d.Ticket, tr)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Ticket #%d: %s / %s / %s\n", t.ID, t.Category, t.Priority, t.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority (High, Medium, Low)")
	cmd.Flags().StringVar(&status, "status", "", "new status (Open, In Progress, Completed)")
	return cmd
}

func (a *app) ticketsReplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply ID TEXT...",
		Short: "Post a message on a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.client.PostMessage(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Message #%d posted\n", m.ID)
			return nil
		},
	}
}

func (a *app) ticketsAttachmentCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "attachment ID",
		Short: "Download a ticket's attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			data, name, err := a.client.FetchAttachment(cmd.Context(), id)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := a.out.Write(data)
				return err
			}
			if output == "" {
				output = filepath.Base(name)
				if output == "" || output == "." {
					output = fmt.Sprintf("ticket-%d.bin", id)
				}
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, - for stdout")
	return cmd
}

func (a *app) ticketsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show a ticket's audit trail (agents and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := a.client.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No changes recorded.")
				return nil
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tWHO\tCHANGE\tFROM\tTO")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s (%s)\t%s\t%v\t%v\n", e.CreatedAt.Format("2006-01-02 15:04"), e.ChangedByName, e.ChangedByRole, e.ChangeType, e.OldValue, e.NewValue)
			}
			return w.Flush()
		},
	}
}

func (a *app) ticketsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tickets by status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tickets, err := a.listTickets(cmd, false, "")
			if err != nil {
				return err
			}
			counts := helpdesk.CountByStatus(tickets)
			fmt.Fprintf(a.out, "Total: %d\n", len(tickets))
			for _, s := range helpdesk.Statuses {
				fmt.Fprintf(a.out, "%s: %d\n", s, counts[s])
			}
			return nil
		},
	}
}
