package cli

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"hrqc/internal/protocol"
)

func newProtocolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocol",
		Short: "Print the weekly training plan.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			unsupervised, _ := cmd.Flags().GetBool("unsupervised")
			return writeProtocol(cmd, !unsupervised)
		},
	}
	cmd.Flags().Bool("unsupervised", false, "Print the unsupervised plan (weeks 7-12)")
	return cmd
}

func writeProtocol(cmd *cobra.Command, supervised bool) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Week", "Zones", "Warm-up", "Bounded", "Unbounded", "Cool-down", "Total"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, n := range protocol.Weeks(supervised) {
		w, err := protocol.Lookup(n, supervised)
		if err != nil {
			return err
		}
		zones := make([]string, len(w.Zones))
		for i, z := range w.Zones {
			zones[i] = strconv.Itoa(z)
		}
		data = append(data, []string{
			strconv.Itoa(w.Number),
			strings.Join(zones, ","),
			minutes(w.WarmupMin),
			minutes(w.BoundedMin),
			minutes(w.UnboundedMin),
			minutes(w.CooldownMin),
			minutes(w.TotalMinutes()),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func minutes(m int) string {
	return strconv.Itoa(m) + "m"
}
