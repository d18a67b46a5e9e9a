package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cotpanel/cotpanel/internal/updater"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cotpanel %s\n", updater.Version)
		fmt.Printf("%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
