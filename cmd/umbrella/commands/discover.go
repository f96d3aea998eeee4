package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/umbrella-scan/umbrella/discover"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Maya script locations on this machine",
	Long: `Lists the Maya application directory, per-version script directories,
and startup files such as userSetup.py that "umbrella scan --auto" would
scan.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	result, err := discover.Scan()
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	return writeOutput(cmd, func(w io.Writer) error {
		if isJSON() {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		_, err := io.WriteString(w, discover.FormatTree(result))
		return err
	})
}
