// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ward-dev/ward/internal/server"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

func newApprovalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "Manage plugin consent",
		Long:  "List plugins awaiting consent and approve or deny them, one at a time or interactively.",
	}

	cmd.PersistentFlags().String("address", defaultHostAddr, "host address")

	cmd.AddCommand(
		newApprovalsListCmd(),
		newApprovalsReviewCmd(),
		newApprovalsDecideCmd("approve", true),
		newApprovalsDecideCmd("deny", false),
	)

	return cmd
}

func fetchPending(host *hostClient) ([]server.PendingApproval, error) {
	var body struct {
		Pending []server.PendingApproval `json:"pending"`
	}
	if err := host.getJSON("/api/v1/approvals", &body); err != nil {
		return nil, err
	}
	return body.Pending, nil
}

func decideApproval(host *hostClient, pluginID string, approved bool) error {
	req := struct {
		Approved bool `json:"approved"`
	}{Approved: approved}
	return host.postJSON("/api/v1/approvals/"+pluginID, req, nil)
}

func newApprovalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plugins awaiting consent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := fetchPending(newHostClient(hostAddr(cmd)))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				_, err := fmt.Fprintln(out, "No plugins awaiting approval")
				return err
			}

			for _, p := range pending {
				marker := ""
				if p.Update {
					marker = " (permissions changed)"
				}
				fmt.Fprintf(out, "%s  %s v%s  risk: %s%s\n", p.ID, p.Name, p.Version, p.Risk, marker)
				for _, line := range p.Permissions {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
}

func newApprovalsDecideCmd(use string, approved bool) *cobra.Command {
	short := "Approve a pending plugin"
	done := "Approved"
	if !approved {
		short = "Deny a pending plugin"
		done = "Denied"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := decideApproval(newHostClient(hostAddr(cmd)), args[0], approved); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return err
		},
	}
}

func newApprovalsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review pending plugins interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			host := newHostClient(hostAddr(cmd))
			pending, err := fetchPending(host)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No plugins awaiting approval")
				return err
			}

			m := newReviewModel(pending, func(pluginID string, approved bool) error {
				return decideApproval(host, pluginID, approved)
			})
			final, err := tea.NewProgram(m).Run()
			if err != nil {
				return warderr.Wrap(err, warderr.CodeCLIRequestFailure, "running review")
			}

			if rm, ok := final.(reviewModel); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Reviewed %d plugin(s): %d approved, %d denied, %d skipped\n",
					len(rm.pending), rm.approved, rm.denied, rm.skipped)
			}
			return nil
		},
	}
}

// --- bubbletea review model ---

var (
	reviewTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	riskLowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	riskMediumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	riskHighStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	updateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	permStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	reviewDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reviewErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	reviewBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// decideFunc records one verdict; a non-nil error keeps the entry on
// screen.
type decideFunc func(pluginID string, approved bool) error

type decidedMsg struct {
	approved bool
	err      error
}

// reviewModel steps through the pending queue one plugin at a time.
type reviewModel struct {
	pending []server.PendingApproval
	decide  decideFunc
	spin    spinner.Model

	idx      int
	approved int
	denied   int
	skipped  int
	deciding bool
	errMsg   string
	done     bool
}

func newReviewModel(pending []server.PendingApproval, decide decideFunc) reviewModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = reviewDimStyle
	return reviewModel{pending: pending, decide: decide, spin: sp}
}

func (m reviewModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.deciding || m.done {
			return m, nil
		}
		switch msg.String() {
		case "y":
			m.deciding = true
			m.errMsg = ""
			return m, m.decideCmd(true)
		case "n":
			m.deciding = true
			m.errMsg = ""
			return m, m.decideCmd(false)
		case "s":
			m.skipped++
			return m.advance()
		case "q", "ctrl+c":
			m.skipped += len(m.pending) - m.idx
			m.done = true
			return m, tea.Quit
		}

	case decidedMsg:
		m.deciding = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		if msg.approved {
			m.approved++
		} else {
			m.denied++
		}
		return m.advance()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m reviewModel) decideCmd(approved bool) tea.Cmd {
	id := m.pending[m.idx].ID
	return func() tea.Msg {
		return decidedMsg{approved: approved, err: m.decide(id, approved)}
	}
}

func (m reviewModel) advance() (tea.Model, tea.Cmd) {
	m.idx++
	if m.idx >= len(m.pending) {
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func riskStyle(r plugin.RiskLevel) lipgloss.Style {
	switch r {
	case plugin.RiskHigh:
		return riskHighStyle
	case plugin.RiskMedium:
		return riskMediumStyle
	default:
		return riskLowStyle
	}
}

func (m reviewModel) View() string {
	if m.done {
		return ""
	}

	p := m.pending[m.idx]
	var b strings.Builder

	b.WriteString(reviewTitleStyle.Render("  Plugin Approval  ") + "\n")
	b.WriteString(reviewDimStyle.Render(fmt.Sprintf("%d of %d", m.idx+1, len(m.pending))) + "\n\n")

	b.WriteString(fmt.Sprintf("%s (%s) v%s\n", p.Name, p.ID, p.Version))
	b.WriteString("Risk: " + riskStyle(p.Risk).Render(strings.ToUpper(string(p.Risk))) + "\n")
	if p.Update {
		b.WriteString(updateStyle.Render("Permissions changed since last approval") + "\n")
	}

	b.WriteString("\nThis plugin requests:\n")
	for _, line := range p.Permissions {
		b.WriteString(permStyle.Render("  • "+line) + "\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n" + reviewErrStyle.Render("  "+m.errMsg) + "\n")
	}

	if m.deciding {
		b.WriteString("\n" + m.spin.View() + reviewDimStyle.Render("recording decision"))
	} else {
		b.WriteString("\n" + reviewDimStyle.Render("y approve  n deny  s skip  q quit"))
	}

	return reviewBoxStyle.Render(b.String())
}
