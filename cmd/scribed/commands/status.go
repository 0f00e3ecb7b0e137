package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/cli/output"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/coordinator"
	"github.com/scribefs/scribe/pkg/coordinator/lock"
	"github.com/scribefs/scribe/pkg/coordinator/registry"
)

var (
	statusOutput string
	statusAddr   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster status",
	Long: `Query a coordinator's admin API and display the cluster state:
storage nodes, active sentence locks and open sessions.

Examples:
  # Query the local coordinator
  scribed status

  # Query a remote coordinator
  scribed status --addr http://10.0.0.5:8091

  # Output as JSON
  scribed status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Admin API base URL (default: http://localhost:<admin port>)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// adminEnvelope mirrors the admin API response wrapper.
type adminEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// clusterStatus aggregates the admin snapshots for rendering.
type clusterStatus struct {
	Nodes    []registry.Node       `json:"nodes"`
	Locks    []lock.SentenceLock   `json:"locks"`
	Sessions []coordinator.Session `json:"sessions"`
	Users    []string              `json:"users"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	base := statusAddr
	if base == "" {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		base = fmt.Sprintf("http://localhost:%d", cfg.Coordinator.Admin.Port)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	var status clusterStatus
	if err := fetchAdmin(client, base+"/api/v1/nodes", &status.Nodes); err != nil {
		return fmt.Errorf("coordinator unreachable at %s: %w", base, err)
	}
	var lockData struct {
		Locks []lock.SentenceLock `json:"locks"`
	}
	if err := fetchAdmin(client, base+"/api/v1/locks", &lockData); err != nil {
		return err
	}
	status.Locks = lockData.Locks
	if err := fetchAdmin(client, base+"/api/v1/sessions", &status.Sessions); err != nil {
		return err
	}
	if err := fetchAdmin(client, base+"/api/v1/users", &status.Users); err != nil {
		return err
	}

	printer := output.NewPrinter(os.Stdout, format, true)
	if format != output.FormatTable {
		return printer.Print(status)
	}
	return printStatusTables(printer, status)
}

// fetchAdmin gets one admin endpoint and decodes its data field into out.
func fetchAdmin(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope adminEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("invalid response from %s: %w", url, err)
	}
	if envelope.Status != "ok" {
		return fmt.Errorf("%s: %s", url, envelope.Error)
	}
	return json.Unmarshal(envelope.Data, out)
}

func printStatusTables(p *output.Printer, status clusterStatus) error {
	p.Println()
	p.Printf("Storage nodes (%d):\n", len(status.Nodes))
	nodes := output.NewTableData("ID", "ADDRESS", "ALIVE", "FILES", "LAST HEARTBEAT")
	for _, n := range status.Nodes {
		alive := "yes"
		if !n.Alive {
			alive = "no"
		}
		nodes.AddRow(strconv.Itoa(n.ID), n.Address, alive,
			strconv.Itoa(n.FileCount),
			n.LastHeartbeat.Format("15:04:05"))
	}
	if err := output.PrintTable(p.Writer(), nodes); err != nil {
		return err
	}

	p.Println()
	p.Printf("Active locks (%d):\n", len(status.Locks))
	locks := output.NewTableData("FILE", "SENTENCE", "USER", "HELD FOR")
	for _, l := range status.Locks {
		locks.AddRow(l.File, strconv.Itoa(l.Sentence), l.HolderUser,
			time.Since(l.AcquiredAt).Round(time.Second).String())
	}
	if err := output.PrintTable(p.Writer(), locks); err != nil {
		return err
	}

	p.Println()
	p.Printf("Sessions (%d):\n", len(status.Sessions))
	sessions := output.NewTableData("KIND", "USER", "REMOTE", "STARTED")
	for _, s := range status.Sessions {
		sessions.AddRow(string(s.Kind), s.User, s.RemoteAddr,
			s.StartedAt.Format("15:04:05"))
	}
	if err := output.PrintTable(p.Writer(), sessions); err != nil {
		return err
	}

	p.Println()
	p.Printf("Registered users (%d): %v\n", len(status.Users), status.Users)
	p.Println()
	return nil
}
