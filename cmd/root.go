// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/rtpreplay/internal/config"
	"firestige.xyz/rtpreplay/internal/source/file"
)

var (
	// Global flags
	configFile string
)

// rootCmd plays the capture when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rtpreplay",
	Short: "Replay RTP streams from a capture file over UDP",
	Long: `rtpreplay sends the RTP datagrams of a pcap/pcapng capture to a unicast or
multicast UDP destination, reproducing the inter-packet timing of the capture.

When the capture is played more than once (-l 0 or -l N with N > 1), sequence
numbers and timestamps are rewritten so that the receiver sees one continuous
stream across loop boundaries.

Examples:
  rtpreplay -c call.pcap                              # play once to 232.0.1.1:1500
  rtpreplay -c call.pcap -a 127.0.0.1 -p 5004 -l 0    # loop forever to a local port
  rtpreplay -c call.pcap -f "udp port 5004" --auto-offset -l 3 -v
  rtpreplay --config rtpreplay.yml --dry-run`,
	Version:       "0.1.0",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runPlay(cmd.Context(), cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "config file path (YAML, root key rtpreplay)")

	f.StringP("address", "a", "232.0.1.1", "destination address (unicast or multicast)")
	f.IntP("port", "p", 1500, "destination UDP port")
	f.Int("ttl", 4, "IP TTL / multicast hop limit")
	f.StringP("capture", "c", "capture.pcap", "capture file (pcap or pcapng)")
	f.StringP("filter", "f", "", "BPF filter applied to the capture")
	f.String("engine", file.EnginePcap, "capture reader: pcap (libpcap) or pcapgo (pure Go)")
	f.IntP("offset", "o", 44, "byte offset of the RTP header in each captured frame")
	f.Bool("auto-offset", false, "locate the UDP payload by decoding each frame")
	f.IntP("loops", "l", 1, "play the capture N times, 0 = forever")
	f.Bool("dry-run", false, "log datagrams instead of sending them")
	f.BoolP("verbose", "v", false, "debug logging")
	f.String("metrics-listen", ":9100", "metrics listen address (with metrics.enabled)")

	// Add subcommands
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
