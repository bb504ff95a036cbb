package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newPaginateCmd(root *rootOptions) *cobra.Command {
	var (
		req    paginationRequest
		params []string
		indent bool
	)

	cmd := &cobra.Command{
		Use:   "paginate",
		Short: "Run one operation to completion and print the result as JSON",
		Example: `  pager paginate --service users --operation ListUsers --page-size 50
  pager paginate --service users --operation ListMembers --param GroupId=42 --query 'Members[].Name'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.v)
			if err != nil {
				return err
			}
			if req.Params, err = parseParams(params); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), out, indent)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Service, "service", "", "service name")
	flags.StringVar(&req.Operation, "operation", "", "operation name")
	flags.StringArrayVar(&params, "param", nil, "request parameter as key=value (repeatable)")
	flags.IntVar(&req.Options.MaxItems, "max-items", 0, "stop after this many items and print a NextToken")
	flags.IntVar(&req.Options.PageSize, "page-size", 0, "items requested per page")
	flags.StringVar(&req.Options.StartingToken, "starting-token", "", "resume from a NextToken")
	flags.StringVar(&req.Query, "query", "", "path expression applied to every page")
	flags.BoolVar(&indent, "indent", true, "indent the JSON output")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("operation")

	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured services and their operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.v)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			w := cmd.OutOrStdout()
			for _, svc := range cfg.serviceNames() {
				fmt.Fprintln(w, svc)
				c := a.clients[svc]
				for _, op := range c.Operations() {
					mark := " "
					if c.CanPaginate(op.Name) {
						mark = "*"
					}
					fmt.Fprintf(w, "  %s %-30s %s %s\n", mark, op.Name, methodOf(op.Method), op.Path)
				}
			}
			return nil
		},
	}
}

func methodOf(m string) string {
	if m == "" {
		return "GET"
	}
	return strings.ToUpper(m)
}

func writeResult(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
