package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"hrqc/internal/config"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an example config file.",
		Long: `Write an example config file to --config or ~/.hrqc/config.json.
An existing file is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			path, err := config.CreateExample(path)
			if err != nil {
				return err
			}
			cmd.Printf("Config file: %s\n\n", path)
			cmd.Println("Set data.root to the folder holding Supervised/ and Unsupervised/")
			cmd.Println("and registry.path to the zone spreadsheet, then run \"hrqc run\".")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hrqc.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("hrqc\n")
			cmd.Printf("  Version: %s\n", version)
			cmd.Printf("  Commit:  %s\n", commit)
			cmd.Printf("  Built:   %s\n", date)
			cmd.Printf("  Runtime: %s\n", runtime.Version())
		},
	}
}
