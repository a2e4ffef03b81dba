package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "List resources",
}

var getWorkspacesCmd = &cobra.Command{
	Use:     "workspaces",
	Aliases: []string{"workspace", "ws"},
	Short:   "List workspaces",
	RunE:    runGetWorkspaces,
}

var getFindingsCmd = &cobra.Command{
	Use:     "findings",
	Aliases: []string{"finding"},
	Short:   "List findings",
	RunE:    runGetFindings,
}

var getApprovalsCmd = &cobra.Command{
	Use:     "approvals",
	Aliases: []string{"approval"},
	Short:   "List pending approval requests",
	RunE:    runGetApprovals,
}

var getSyncStatusCmd = &cobra.Command{
	Use:   "sync-status",
	Short: "Show threat intel feed sync status",
	RunE:  runGetSyncStatus,
}

func init() {
	getFindingsCmd.Flags().String("artifact-id", "", "Filter by artifact ID")
	getFindingsCmd.Flags().String("release-id", "", "Filter by release ID")
	getFindingsCmd.Flags().String("status", "", "Filter by status (comma-separated)")
	getFindingsCmd.Flags().String("severity", "", "Filter by severity (comma-separated)")
	getFindingsCmd.Flags().String("type", "", "Filter by finding type (comma-separated)")
	getFindingsCmd.Flags().String("search", "", "Search title, package or CVE")
	getFindingsCmd.Flags().Int("page", 1, "Page number")
	getFindingsCmd.Flags().Int("per-page", 20, "Items per page")

	getCmd.AddCommand(getWorkspacesCmd)
	getCmd.AddCommand(getFindingsCmd)
	getCmd.AddCommand(getApprovalsCmd)
	getCmd.AddCommand(getSyncStatusCmd)
}

type workspaceItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
}

func runGetWorkspaces(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/workspaces")
	if err != nil {
		return err
	}

	var resp struct {
		Data []workspaceItem `json:"data"`
	}
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp.Data)
	case outputYAML:
		printYAML(resp.Data)
	default:
		t := newTable("ID", "NAME", "SLUG", "CREATED")
		for _, ws := range resp.Data {
			t.AddRow(ws.ID, ws.Name, ws.Slug, shortTime(ws.CreatedAt))
		}
		t.Flush()
	}
	return nil
}

type findingItem struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Severity        string `json:"severity"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	VulnerabilityID string `json:"vulnerability_id"`
	PackageName     string `json:"package_name"`
	LastSeen        string `json:"last_seen"`
}

func runGetFindings(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	for _, f := range []struct{ flag, param string }{
		{"artifact-id", "artifact_id"},
		{"release-id", "release_id"},
		{"status", "status"},
		{"severity", "severity"},
		{"type", "type"},
		{"search", "search"},
	} {
		if v, _ := cmd.Flags().GetString(f.flag); v != "" {
			params.Set(f.param, v)
		}
	}
	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	data, err := client.Get("/api/v1/findings?" + params.Encode())
	if err != nil {
		return err
	}

	var resp struct {
		Data       []findingItem `json:"data"`
		Total      int64         `json:"total"`
		Page       int           `json:"page"`
		PerPage    int           `json:"per_page"`
		TotalPages int           `json:"total_pages"`
	}
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp.Data)
	case outputYAML:
		printYAML(resp.Data)
	default:
		t := newTable("ID", "SEVERITY", "TYPE", "STATUS", "CVE", "PACKAGE", "TITLE")
		for _, f := range resp.Data {
			t.AddRow(f.ID, f.Severity, f.Type, f.Status, dash(f.VulnerabilityID), dash(f.PackageName), truncate(f.Title, 60))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	}
	return nil
}

type approvalItem struct {
	ID              string `json:"id"`
	FindingID       string `json:"finding_id"`
	RequestedStatus string `json:"requested_status"`
	RequestedBy     string `json:"requested_by"`
	RequestedAt     string `json:"requested_at"`
	TriageNote      string `json:"triage_note"`
}

func runGetApprovals(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/approvals/pending")
	if err != nil {
		return err
	}

	var resp struct {
		Data []approvalItem `json:"data"`
	}
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp.Data)
	case outputYAML:
		printYAML(resp.Data)
	default:
		if len(resp.Data) == 0 {
			fmt.Println("No pending approval requests.")
			return nil
		}
		t := newTable("ID", "FINDING", "REQUESTED STATUS", "BY", "AT", "NOTE")
		for _, a := range resp.Data {
			t.AddRow(a.ID, a.FindingID, a.RequestedStatus, a.RequestedBy, shortTime(a.RequestedAt), truncate(a.TriageNote, 40))
		}
		t.Flush()
	}
	return nil
}

type syncStatusItem struct {
	Source        string `json:"source"`
	Enabled       bool   `json:"enabled"`
	State         string `json:"state"`
	LastSyncAt    string `json:"last_sync_at"`
	LastError     string `json:"last_error"`
	RecordsSynced int64  `json:"records_synced"`
}

func runGetSyncStatus(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/threat-intel/status")
	if err != nil {
		return err
	}

	var resp struct {
		Data []syncStatusItem `json:"data"`
	}
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp.Data)
	case outputYAML:
		printYAML(resp.Data)
	default:
		t := newTable("SOURCE", "ENABLED", "STATE", "LAST SYNC", "RECORDS", "ERROR")
		for _, s := range resp.Data {
			t.AddRow(
				s.Source,
				strconv.FormatBool(s.Enabled),
				s.State,
				dash(shortTime(s.LastSyncAt)),
				strconv.FormatInt(s.RecordsSynced, 10),
				dash(truncate(s.LastError, 50)),
			)
		}
		t.Flush()
	}
	return nil
}
