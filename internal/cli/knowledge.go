package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/pkg/helpdesk"
)

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask the knowledge assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := a.client.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, answer.Answer)
			return nil
		},
	}
}

func (a *app) faqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Browse frequently asked questions",
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every FAQ entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.client.ListFAQs(cmd.Context())
			if err != nil {
				return err
			}
			a.printFAQs(helpdesk.FilterFAQs(entries, filter))
			return nil
		},
	}
	list.Flags().StringVar(&filter, "filter", "", "only entries containing this text")

	search := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Find the best matching entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.SearchFAQs(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.printFAQs(entries)
			return nil
		},
	}

	cmd.AddCommand(list, search)
	return cmd
}

func (a *app) printFAQs(entries []helpdesk.FAQ) {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No FAQs found.")
		return
	}
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		fmt.Fprintf(a.out, "Q: %s\nA: %s\n", e.Question, e.Answer)
	}
}
