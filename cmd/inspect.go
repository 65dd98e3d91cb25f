package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/rtpreplay/internal/config"
	"firestige.xyz/rtpreplay/internal/inspect"
	"firestige.xyz/rtpreplay/internal/source/file"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarise the RTP stream of a capture file",
	Long: `Read the capture once, honouring --filter, --offset and --auto-offset, and
report what a replay would send: packet counts, SSRCs, payload types, the
sequence range and the timestamp increment learned when looping.

Examples:
  rtpreplay inspect -c call.pcap
  rtpreplay inspect -c call.pcapng --auto-offset --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runInspect(cmd.OutOrStdout(), cfg, inspectFormat)
	},
}

var inspectFormat string

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "output format: text or yaml")
}

func runInspect(out io.Writer, cfg *config.Config, format string) error {
	src, err := file.Open(cfg.Capture.Config)
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := inspect.Summarize(src, cfg.Capture.PayloadOffset)
	if err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		return enc.Close()
	case "text", "":
		printSummary(out, cfg.Capture.Path, src.LinkType().String(), summary)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (must be text or yaml)", format)
	}
}

func printSummary(out io.Writer, path, linkType string, s *inspect.Summary) {
	ssrcs := make([]string, 0, len(s.SSRCs))
	for _, v := range s.SSRCs {
		ssrcs = append(ssrcs, fmt.Sprintf("%#08x", v))
	}
	pts := make([]string, 0, len(s.PayloadTypes))
	for _, v := range s.PayloadTypes {
		pts = append(pts, fmt.Sprint(v))
	}

	fmt.Fprintf(out, "Capture:             %s (%s)\n", path, linkType)
	fmt.Fprintf(out, "Packets:             %d (%d RTP, %d other)\n", s.Packets, s.RTPPackets, s.NonRTPPackets)
	fmt.Fprintf(out, "RTP bytes:           %d\n", s.Bytes)
	fmt.Fprintf(out, "SSRCs:               %s\n", strings.Join(ssrcs, ", "))
	fmt.Fprintf(out, "Payload types:       %s\n", strings.Join(pts, ", "))
	fmt.Fprintf(out, "Sequence:            %d -> %d (%d gaps)\n", s.FirstSequence, s.LastSequence, s.SequenceGaps)
	fmt.Fprintf(out, "Distinct timestamps: %d\n", s.DistinctTimestamps)
	fmt.Fprintf(out, "Timestamp increment: %d\n", s.FirstIncrement)
	fmt.Fprintf(out, "Markers:             %d\n", s.Markers)
	fmt.Fprintf(out, "Duration:            %s\n", s.Duration)
}
