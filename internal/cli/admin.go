package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/pkg/helpdesk"
)

func (a *app) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer agents, customers and the knowledge corpora",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.init(cmd); err != nil {
				return err
			}
			_, err := a.client.RequireRole(helpdesk.RoleAdmin)
			return err
		},
	}
	cmd.AddCommand(a.agentsCmd(), a.customersCmd(), a.corpusCmd())
	return cmd
}

func (a *app) printUsers(users []helpdesk.User) error {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No accounts.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "Manage agent accounts"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			return a.printUsers(users)
		},
	}

	var reg helpdesk.Registration
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, reg.Password)
			if err != nil {
				return err
			}
			reg.Password = pw
			u, err := a.client.RegisterAgent(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created agent #%d %s <%s>\n", u.ID, u.Name, u.Email)
			return nil
		},
	}
	add.Flags().StringVar(&reg.Name, "name", "", "display name")
	add.Flags().StringVar(&reg.Email, "email", "", "account email")
	add.Flags().StringVar(&reg.Password, "password", "", "initial password")

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteAgent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted agent #%d\n", id)
			return nil
		},
	}

	var update helpdesk.AgentUpdate
	edit := &cobra.Command{
		Use:   "update ID",
		Short: "Change an agent's name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client.UpdateAgent(cmd.Context(), id, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Agent #%d is now %s <%s>\n", u.ID, u.Name, u.Email)
			return nil
		},
	}
	edit.Flags().StringVar(&update.Name, "name", "", "new display name")
	edit.Flags().StringVar(&update.Email, "email", "", "new email")

	cmd.AddCommand(list, add, remove, edit)
	return cmd
}

func (a *app) customersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List customer accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.client.ListUsers(cmd.Context(), helpdesk.RoleCustomer)
			if err != nil {
				return err
			}
			return a.printUsers(users)
		},
	}
}

func (a *app) corpusCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "corpus", Short: "Manage knowledge base and FAQ files"}

	list := &cobra.Command{
		Use:   "list kb|faq",
		Short: "List stored files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.client.ListCorpusFiles(cmd.Context(), helpdesk.Corpus(args[0]))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(a.out, "No files.")
				return nil
			}
			for _, f := range files {
				fmt.Fprintln(a.out, f)
			}
			return nil
		},
	}

	upload := &cobra.Command{
		Use:   "upload kb|faq FILE",
		Short: "Upload a text file, replacing one with the same name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := a.client.UploadCorpusFile(cmd.Context(), helpdesk.Corpus(args[0]), filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Uploaded %s to %s (%d chunks)\n", res.Filename, res.Corpus, res.Chunks)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete kb|faq FILENAME",
		Short: "Delete a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.client.DeleteCorpusFile(cmd.Context(), helpdesk.Corpus(args[0]), args[1])
			switch {
			case errors.Is(err, helpdesk.ErrNotFound):
				fmt.Fprintf(a.out, "%s is not in %s; nothing to delete\n", args[1], args[0])
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s from %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(list, upload, remove)
	return cmd
}
