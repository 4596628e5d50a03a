package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/recruit-bot/cmd.version=...".
var version = "unknown"

type buildInfo struct {
	App      string `json:"app"`
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

func currentBuild() buildInfo {
	info := buildInfo{
		App:      app,
		Version:  version,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Revision = s.Value
			}
		}
	}
	return info
}

func printVersion(w io.Writer, info buildInfo, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(info)
	}

	line := fmt.Sprintf("%s version: %s (%s, %s)", info.App, info.Version, info.Go, info.Platform)
	if info.Revision != "" {
		line += " rev " + info.Revision
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("output-json")
		return printVersion(cmd.OutOrStdout(), currentBuild(), asJSON)
	},
}

func init() {
	versionCmd.Flags().Bool("output-json", false, "print build information as JSON")
	rootCmd.AddCommand(versionCmd)
}
