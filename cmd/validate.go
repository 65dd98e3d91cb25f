package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/rtpreplay/internal/config"
	"firestige.xyz/rtpreplay/internal/source/file"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and capture without sending",
	Long: `Load the configuration (file, RTPREPLAY_* environment and flags), open the
capture and compile the filter, without sending anything.

Examples:
  rtpreplay validate -c call.pcap -f "udp port 5004"
  rtpreplay validate --config rtpreplay.yml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err == nil {
			err = runValidate(cmd.OutOrStdout(), cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

func runValidate(out io.Writer, cfg *config.Config) error {
	src, err := file.Open(cfg.Capture.Config)
	if err != nil {
		return err
	}
	defer src.Close()

	loops := fmt.Sprint(cfg.Replay.Loops)
	if cfg.PlayCount() == 0 {
		loops = "forever"
	}
	fmt.Fprintf(out, "VALID: %s (%s, engine %s) -> %s:%d, loops %s\n",
		cfg.Capture.Path, src.LinkType(), cfg.Capture.Engine,
		cfg.Destination.Address, cfg.Destination.Port, loops)
	return nil
}
