package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// maxErrors is the size of the persistent error panel.
const maxErrors = 3

var startupOrder = []string{"config", "feeds", "blocks", "scanner"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	routes  routesModel
	spinner spinner.Model
	help    help.Model
	keys    KeyMap

	phase        Phase
	welcomeStart time.Time

	quitting     bool
	paused       bool
	width        int
	height       int
	currentBlock uint64
	feeds        []pricingApp.FeedStatus
	lastUpdate   time.Time
	errors       []ErrorEntry
	logs         []string
	activityFeed []string

	startupSteps map[string]*StartupStep
	startupTime  time.Time

	scanCount     uint64
	failedScans   uint64
	profitable    uint64
	bestPNLBps    decimal.Decimal
	lastScan      domain.ScanSummary
	lastScanTime  time.Time
	blocksScanned uint64
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusConnected

	return Model{
		routes:       newRoutesModel(),
		spinner:      s,
		help:         help.New(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 5),
		errors:       make([]ErrorEntry, 0, maxErrors),
		activityFeed: make([]string, 0, 6),
		startupSteps: map[string]*StartupStep{
			"config":  {Name: "Loading configuration", Status: "done"},
			"feeds":   {Name: "Loading liquidity", Status: "pending"},
			"blocks":  {Name: "Subscribing to blocks", Status: "pending"},
			"scanner": {Name: "Starting scanner", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Called directly: Send from within Update would deadlock.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.routes.clear()
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Errors):
			m.errors = m.errors[:0]
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Up, m.keys.Down):
			var cmd tea.Cmd
			m.routes, cmd = m.routes.update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case OpportunityMsg:
		if msg.Opportunity == nil || m.paused {
			return m, nil
		}
		m.routes.add(msg.Opportunity)
		m.lastUpdate = time.Now()

	case ScanMsg:
		s := msg.Summary
		m.phase = PhaseDashboard
		m.lastScan = s
		m.scanCount++
		m.profitable += uint64(s.Profitable)
		if s.Failed > 0 {
			m.failedScans++
		}
		if m.scanCount == 1 || s.BestPNLBps.GreaterThan(m.bestPNLBps) {
			m.bestPNLBps = s.BestPNLBps
		}
		m.lastScanTime = time.Now()
		m.lastUpdate = m.lastScanTime
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf(
			"Scanned %d strategies: %d profitable, %d failed, best %s bps (%s)",
			s.Strategies, s.Profitable, s.Failed, s.BestPNLBps.StringFixed(2), s.Latency.Round(time.Microsecond)))

	case FeedStatusMsg:
		m.feeds = msg.Feeds
		if step := m.startupSteps["feeds"]; step != nil && step.Status != "failed" {
			step.Status = "done"
		}

	case BlockMsg:
		m.currentBlock = msg.Number
		m.blocksScanned++
		m.lastUpdate = time.Now()
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Block #%d received", msg.Number))

	case ErrorMsg:
		if msg.Error == nil {
			return m, nil
		}
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Message != "" {
			m.logs = addLog(m.logs, "info", msg.Message)
		}
		if m.phase == PhaseStartup && m.startupComplete() {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

func (m Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	logs = append(logs, line)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(" Arbitrage Engine "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	width := m.width
	if width == 0 {
		width = 120
	}
	b.WriteString(BoxStyle.Width(width - 4).Render(m.routes.View()))
	b.WriteString("\n")

	left := renderDetails(m.routes.selected())
	right := renderFeeds(m.feeds) + "\n\n" + m.renderActivityFeed()
	if width > 120 {
		l := BoxStyle.Width(width/2 - 2).Render(left)
		r := BoxStyle.Width(width/2 - 2).Render(right)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, l, r))
	} else {
		b.WriteString(BoxStyle.Width(width - 4).Render(left))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width - 4).Render(right))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(NegativeValue.Bold(true).Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(NegativeValue.Render(fmt.Sprintf("  • %s ", truncate(err.Message, 100))))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(StatusDegraded.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for scans..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "Block #") {
			sb.WriteString(BlockValue.Render("  " + activity))
		} else {
			sb.WriteString(MutedValue.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)

	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	logo := `
    █████╗ ██████╗ ██████╗     ███████╗███╗   ██╗ ██████╗
   ██╔══██╗██╔══██╗██╔══██╗    ██╔════╝████╗  ██║██╔════╝
   ███████║██████╔╝██████╔╝    █████╗  ██╔██╗ ██║██║  ███╗
   ██╔══██║██╔══██╗██╔══██╗    ██╔══╝  ██║╚██╗██║██║   ██║
   ██║  ██║██║  ██║██████╔╝    ███████╗██║ ╚████║╚██████╔╝
   ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝     ╚══════╝╚═╝  ╚═══╝ ╚═════╝
`
	sb.WriteString(HeaderStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("          P U R E   A R B I T R A G E   E N G I N E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("            order books × AMM pools × one loop"))
	sb.WriteString("\n\n\n")
	sb.WriteString(PositiveValue.Render(fmt.Sprintf("                   Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("             Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	connecting := lipgloss.NewStyle().Foreground(ColorWarning)
	white := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(HeaderStyle.Render("  Arbitrage Engine"))
	sb.WriteString("\n\n")
	sb.WriteString(white.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style
		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", PositiveValue
		case "connecting":
			icon, statusText, style = m.spinner.View(), "Connecting...", connecting
		case "failed":
			icon, statusText, style = "✗", "Failed", NegativeValue
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(icon), MutedValue.Render(step.Name), style.Render(statusText)))
	}

	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n\n")
	for _, l := range m.logs {
		sb.WriteString(MutedValue.Render("  " + l))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScanTime) < 500*time.Millisecond {
		parts = append(parts, StatusConnected.Render(m.spinner.View()+" Scanning"))
	}
	if m.currentBlock > 0 {
		parts = append(parts, fmt.Sprintf("Block: #%d", m.currentBlock))
	}

	parts = append(parts, PositiveValue.Render(fmt.Sprintf("Scans: %d", m.scanCount)))
	if m.failedScans > 0 {
		parts = append(parts, StatusDegraded.Render(fmt.Sprintf("With failures: %d", m.failedScans)))
	}
	parts = append(parts, fmt.Sprintf("Profitable: %d", m.profitable))
	if m.scanCount > 0 {
		parts = append(parts, "Best: "+signed(m.bestPNLBps.StringFixed(2)+" bps", m.bestPNLBps.IsPositive()))
	}

	connected := 0
	for _, f := range m.feeds {
		if f.Connected {
			connected++
		}
	}
	feedStyle := StatusConnected
	if connected < len(m.feeds) {
		feedStyle = StatusDisconnected
	}
	parts = append(parts, feedStyle.Render(fmt.Sprintf("● Feeds %d/%d", connected, len(m.feeds))))

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by main before Run.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
