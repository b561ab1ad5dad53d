package commands

import (
	"fmt"
	"os"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"
	"file2pcie/pkg/client"
	"file2pcie/pkg/history"
	"file2pcie/pkg/printer"
	"file2pcie/pkg/service"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyTarget string
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded resolutions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			records []f2prpc.HistoryRecord
			err     error
		)
		if serverAddr != "" {
			records, err = historyRemote(cmd)
		} else {
			records, err = historyLocal(cmd)
		}
		if err != nil {
			return err
		}

		if historyJSON {
			return printer.WriteJSON(os.Stdout, records)
		}
		printer.PrintHistory(os.Stdout, records)
		return nil
	},
}

func historyLocal(cmd *cobra.Command) ([]f2prpc.HistoryRecord, error) {
	if F2P.History == nil {
		return nil, fmt.Errorf("history is disabled (set history.enabled: true)")
	}

	var (
		recs []history.Record
		err  error
	)
	if historyTarget != "" {
		recs, err = F2P.History.FindByTarget(cmd.Context(), historyTarget, historyLimit)
	} else {
		recs, err = F2P.History.Recent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]f2prpc.HistoryRecord, 0, len(recs))
	for i := range recs {
		rec, err := service.ToRecord(&recs[i])
		if err != nil {
			return nil, fmt.Errorf("corrupt history record %d: %w", recs[i].ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func historyRemote(cmd *cobra.Command) ([]f2prpc.HistoryRecord, error) {
	c, err := client.New(serverAddr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	resp, err := c.Placement.History(cmd.Context(), &f2prpc.HistoryRequest{
		Limit:  int32(historyLimit),
		Target: historyTarget,
	})
	if err != nil {
		return nil, fmt.Errorf("remote history failed: %w", err)
	}
	return resp.Records, nil
}

func init() {
	flags := historyCmd.Flags()
	flags.IntVarP(&historyLimit, "limit", "n", history.DefaultLimit, "maximum number of records")
	flags.StringVar(&historyTarget, "target", "", "only show resolutions of this path or pid:fd")
	flags.BoolVar(&historyJSON, "json", false, "print records as JSON")
	rootCmd.AddCommand(historyCmd)
}
