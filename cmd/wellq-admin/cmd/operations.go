package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var riskCmd = &cobra.Command{
	Use:   "risk RELEASE_ID",
	Short: "Show the risk report of a release",
	Args:  cobra.ExactArgs(1),
	RunE:  runRisk,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a threat intel feed sync",
	RunE:  runSync,
}

var approveCmd = &cobra.Command{
	Use:   "approve REQUEST_ID",
	Short: "Approve a pending status change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject REQUEST_ID",
	Short: "Reject a pending status change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func init() {
	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().String("reviewer", "", "Reviewer name")
		c.Flags().String("note", "", "Review note")
		_ = c.MarkFlagRequired("reviewer")
	}
}

type riskReportView struct {
	ReleaseName string `json:"release_name"`
	Legacy      bool   `json:"legacy"`
	Score       struct {
		TRP     float64 `json:"trp"`
		Density float64 `json:"density"`
		Health  int     `json:"health"`
		Grade   string  `json:"grade"`
	} `json:"score"`
	Counts struct {
		Critical int `json:"critical"`
		High     int `json:"high"`
		Medium   int `json:"medium"`
		Low      int `json:"low"`
		KEV      int `json:"kev"`
		Secrets  int `json:"secrets"`
	} `json:"counts"`
	Compliance struct {
		Compliant      bool `json:"compliant"`
		BlockingIssues int  `json:"blocking_issues"`
	} `json:"compliance"`
	KillList []struct {
		FindingID   string `json:"finding_id"`
		IssueType   string `json:"issue_type"`
		Severity    string `json:"severity"`
		Subject     string `json:"subject"`
		Remediation string `json:"remediation"`
	} `json:"kill_list"`
}

func runRisk(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Get("/api/v1/releases/" + args[0] + "/risk")
	if err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		var raw map[string]any
		if err := unmarshal(data, &raw); err != nil {
			return err
		}
		printJSON(raw)
	case outputYAML:
		var raw map[string]any
		if err := unmarshal(data, &raw); err != nil {
			return err
		}
		printYAML(raw)
	default:
		var report riskReportView
		if err := unmarshal(data, &report); err != nil {
			return err
		}

		verdict := "RELEASE BLOCKED"
		if report.Compliance.Compliant {
			verdict = "COMPLIANT"
		}
		fmt.Printf("Release:  %s\n", report.ReleaseName)
		fmt.Printf("Grade:    %s (health %d/100)\n", report.Score.Grade, report.Score.Health)
		fmt.Printf("TRP:      %.1f  density %.2f\n", report.Score.TRP, report.Score.Density)
		fmt.Printf("Open:     %d critical, %d high, %d medium, %d low (%d KEV, %d secrets)\n",
			report.Counts.Critical, report.Counts.High, report.Counts.Medium,
			report.Counts.Low, report.Counts.KEV, report.Counts.Secrets)
		fmt.Printf("Verdict:  %s (%d blocking issues)\n", verdict, report.Compliance.BlockingIssues)
		if report.Legacy {
			fmt.Println("Scope:    legacy (scans attached directly to the release)")
		}

		if len(report.KillList) > 0 {
			fmt.Println("\nKill list:")
			t := newTable("FINDING", "TYPE", "SEVERITY", "SUBJECT", "REMEDIATION")
			for _, e := range report.KillList {
				t.AddRow(e.FindingID, e.IssueType, e.Severity, truncate(e.Subject, 40), truncate(e.Remediation, 40))
			}
			t.Flush()
		}
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	client := mustClient()

	if _, err := client.Post("/api/v1/threat-intel/sync", nil); err != nil {
		return err
	}
	fmt.Println("Threat intel sync scheduled.")
	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	return runReview(cmd, args[0], "approve")
}

func runReject(cmd *cobra.Command, args []string) error {
	return runReview(cmd, args[0], "reject")
}

func runReview(cmd *cobra.Command, requestID, action string) error {
	client := mustClient()

	reviewer, _ := cmd.Flags().GetString("reviewer")
	note, _ := cmd.Flags().GetString("note")

	data, err := client.Post("/api/v1/approvals/"+requestID+"/"+action, map[string]string{
		"reviewer": reviewer,
		"note":     note,
	})
	if err != nil {
		return err
	}

	var resolved struct {
		FindingID       string `json:"finding_id"`
		RequestedStatus string `json:"requested_status"`
		Status          string `json:"status"`
	}
	if err := unmarshal(data, &resolved); err != nil {
		return err
	}

	fmt.Printf("Request %s: %s (finding %s, requested status %s)\n",
		requestID, resolved.Status, resolved.FindingID, resolved.RequestedStatus)
	return nil
}
