package commands

import (
	"os"
	"sort"

	"mensahub-backend/lib/scrapers/stuwe"
	"mensahub-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(canteensCmd)
}

var canteensCmd = &cobra.Command{
	Use:   "canteens",
	Short: "Prints the canteens currently listed on the menu site.",
	Run: func(cmd *cobra.Command, args []string) {
		client := stuwe.NewClient(stuwe.ClientOptions{})
		canteens, err := client.DiscoverCanteens(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to discover canteens", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, id := range sortedKeys(canteens) {
			t.AppendRow(table.Row{id, canteens[id]})
		}
		t.Render()
	},
}

func sortedKeys(m map[int64]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
