package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that may have the apparatus attached",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := acquisition.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No USB serial ports found")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PORT\tVID:PID\tBRIDGE\tPRODUCT\tSERIAL")
		for _, p := range ports {
			id := "-"
			if p.USB {
				id = p.VID + ":" + p.PID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, id, dash(p.Bridge), dash(p.Product), dash(p.Serial))
		}
		return tw.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
