package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the micromux version.`,
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Println(version)
		} else {
			fmt.Printf("micromux v%s\n", version)
			fmt.Println("a local process supervisor with a terminal UI")
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("short", "s", false, "show only the version number")
}
