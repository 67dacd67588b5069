// Command mockdata prints the dashboard mock complaint set as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
	"github.com/spf13/cobra"
)

func main() {
	var seed int64
	cmd := &cobra.Command{
		Use:   "mockdata",
		Short: "Print the generated dashboard complaints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			complaints := dashboard.GenerateMock(rand.New(rand.NewSource(seed)), time.Now().UTC())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"seed":       seed,
				"stats":      dashboard.ComputeStats(complaints),
				"complaints": complaints,
			})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "rng seed, time based when 0")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
