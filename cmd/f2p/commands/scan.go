package commands

import (
	"fmt"
	"os"
	"time"

	"file2pcie/pkg/config"
	"file2pcie/pkg/printer"
	"file2pcie/pkg/resolver"
	"file2pcie/pkg/scan"
	"file2pcie/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	scanOffset int64
	scanLength uint64
	scanJSON   bool
	scanRecord bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Resolve every file under a directory",
	Long: `Resolve every regular file under <dir> (whole files by default). Paths
matched by .f2pignore in <dir> or the built-in rules are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverAddr != "" {
			return fmt.Errorf("scan runs locally only")
		}
		start := time.Now()

		s := scan.NewScanner(F2P.Resolver, nil)
		items, err := s.Scan(cmd.Context(), args[0], scan.Options{
			Concurrency: viper.GetInt(config.KeyScanConcurrency),
			Request:     resolver.Request{Offset: scanOffset, Length: scanLength},
		})
		if err != nil {
			return err
		}

		if scanRecord {
			for _, it := range items {
				req := resolver.Request{Offset: scanOffset, Length: scanLength}
				F2P.Record(cmd.Context(), it.Path, req, it.Result)
			}
		}

		if scanJSON {
			return printer.WriteJSON(os.Stdout, printer.ScanEntries(items))
		}
		printer.PrintScan(os.Stdout, items)

		failed := 0
		for _, it := range items {
			if it.Result == nil || it.Result.Code != types.CodeOK {
				failed++
			}
		}
		fmt.Printf("\n✅ Scanned %d files (%d unresolved) in %s\n", len(items), failed, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	flags := scanCmd.Flags()
	flags.Int64Var(&scanOffset, "offset", 0, "byte offset applied to every file")
	flags.Uint64Var(&scanLength, "length", 0, "bytes per file (0 means to the end of each file)")
	flags.BoolVar(&scanJSON, "json", false, "print results as JSON")
	flags.BoolVar(&scanRecord, "record", false, "write each result to history and report sinks")
	flags.Int("concurrency", 0, "parallel resolutions (default NumCPU)")
	if err := viper.BindPFlag(config.KeyScanConcurrency, flags.Lookup("concurrency")); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(scanCmd)
}
