package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <rules-file>",
	Short: "Compile a rule file and print the tables human-readably.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd)

		prog, err := compileFile(cmd, args[0])
		if err != nil {
			return err
		}

		for i := range prog.Tables {
			t := &prog.Tables[i]
			fmt.Printf("%s (%d entries)\n", t.Name, len(t.Entries))

			tw := tablewriter.NewWriter(os.Stdout)
			header := make([]string, 0, len(t.Fields)+3)
			for _, f := range t.Fields {
				header = append(header, fmt.Sprintf("%s:%s/%d", f.Name, f.Type, f.Width))
			}
			header = append(header, "action", "params")
			if t.HasTernary {
				header = append(header, "priority")
			}
			tw.SetHeader(header)

			for _, e := range t.Entries {
				row := make([]string, 0, len(header))
				for _, m := range e.Match {
					row = append(row, m.FormatHuman())
				}
				params := make([]string, len(e.Params))
				for j, p := range e.Params {
					params[j] = p.Value
				}
				row = append(row, e.Action, strings.Join(params, " "))
				if t.HasTernary {
					row = append(row, strconv.Itoa(e.Priority))
				}
				tw.Append(row)
			}
			tw.Render()
			fmt.Println()
		}

		for _, g := range prog.Groups {
			ports := make([]string, len(g.Ports))
			for j, p := range g.Ports {
				ports[j] = strconv.Itoa(p)
			}
			fmt.Printf("mgid %d: ports %s\n", g.ID, strings.Join(ports, " "))
		}
		return nil
	},
}
