package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/editor"
	"github.com/cotpanel/cotpanel/internal/envfile"
)

var checkFile string

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the gateway environment file without touching it",
	Long: `Validate the gateway environment file against the known field
rules and print any problems. Exits non-zero when the file has invalid
values, so it can gate deploys and config management runs.`,
	RunE: runCheckConfig,
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
	checkConfigCmd.Flags().StringVarP(&checkFile, "file", "f", "", "environment file to check (default from panel config)")
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	path := checkFile
	if path == "" {
		cfg, err := config.NewManager(resolveConfigPath())
		if err != nil {
			return err
		}
		path = cfg.Get().Service.EnvFile
	}

	ed := editor.New(envfile.NewStore(path))
	form, err := ed.Open()
	if err != nil {
		return err
	}

	if !form.FileExists {
		fmt.Printf("%s: not found, the gateway will run on defaults\n", path)
		return nil
	}

	if len(form.Errors) == 0 {
		fmt.Printf("%s: ok\n", path)
		return nil
	}

	keys := make([]string, 0, len(form.Errors))
	for key := range form.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("%s: %s: %s\n", path, key, form.Errors[key])
	}
	return fmt.Errorf("%d invalid field(s)", len(form.Errors))
}
