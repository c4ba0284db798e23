package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/ui"
)

var flagStatsServer string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the counters of a running relay",
	Long: `Fetch /stats from a relay and print it as a table.

Examples:
  pairline stats
  pairline stats --server wss://relay.example.com/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadPeer(config.PeerOptions{ServerURL: flagStatsServer})
		if err != nil {
			return err
		}

		base := cfg.HTTPBase()
		client := &http.Client{Timeout: 5 * time.Second}
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, base+"/stats", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch stats: relay answered %s", resp.Status)
		}

		var stats ui.RelayStats
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}

		host := base
		if u, err := url.Parse(base); err == nil {
			host = u.Host
		}
		ui.RenderStats(host, stats)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&flagStatsServer, "server", "", "Relay websocket URL (env PAIRLINE_SERVER)")
	rootCmd.AddCommand(statsCmd)
}
