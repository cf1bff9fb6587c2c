package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rh-ecosystem-edge/ci-matrix/internal/observability"
)

// Dashboard panel indices.
const (
	panelPlatforms = iota
	panelRuns
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	platforms []observability.PlatformMetrics
	runs      *observability.RunMetrics
	alerts    []observability.Alert

	loading bool
	err     error
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	platforms []observability.PlatformMetrics
	runs      *observability.RunMetrics
	alerts    []observability.Alert
	err       error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	outcomeSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	outcomeFailure = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	outcomeOther   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelPlatforms,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.platforms = msg.platforms
		m.runs = msg.runs
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" cimatrix Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	platformsPanel := m.renderPlatformsPanel()
	runsPanel := m.renderRunsPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		platformsPanel = m.applyPanelStyle(panelPlatforms, platformsPanel, colWidth-4)
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, platformsPanel, runsPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		platformsPanel = m.applyPanelStyle(panelPlatforms, platformsPanel, panelWidth)
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, platformsPanel, runsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderPlatformsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Platforms"))
	b.WriteString("\n")

	if len(m.platforms) == 0 {
		b.WriteString("  No test history.")
		return b.String()
	}

	for _, p := range m.platforms {
		last := "-"
		if p.LastBundleOutcome != "" {
			last = string(p.LastBundleOutcome)
		}
		b.WriteString(fmt.Sprintf("  %-6s releases %d/%d  bundle ", p.Platform, p.ReleasePasses, p.ReleaseRuns))
		b.WriteString(styleForOutcome(last).Render(last))
		b.WriteString("\n")
	}
	return b.String()
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Runs (7d)"))
	b.WriteString("\n")

	if m.runs == nil {
		b.WriteString("  No run data available.")
		return b.String()
	}

	lines := []struct {
		label string
		value int
	}{
		{"Events", m.runs.EventCount},
		{"Plans", m.runs.PlanRuns},
		{"Changes", m.runs.VersionChanges},
		{"Deferred", m.runs.CatalogRejected},
		{"Violations", m.runs.PolicyViolations},
		{"Collects", m.runs.CollectRuns},
		{"Skipped", m.runs.BuildsSkipped},
	}
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(string(a.Severity)).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity))))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.Message))
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))
	return b.String()
}

func styleForOutcome(outcome string) lipgloss.Style {
	switch outcome {
	case "SUCCESS":
		return outcomeSuccess
	case "FAILURE":
		return outcomeFailure
	default:
		return outcomeOther
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg
	if History == nil {
		return result
	}

	history, err := History.Load()
	if err != nil {
		result.err = fmt.Errorf("loading history: %w", err)
		return result
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(history, since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.platforms = metrics.Platforms
		result.runs = &metrics.Runs
	}

	if AlertEngine != nil {
		result.alerts = AlertEngine.Evaluate(history)
	}
	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for test history and alerts",
	Long: `Launch an interactive terminal dashboard showing per-platform test
results, recent run counts and active alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil || History == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
