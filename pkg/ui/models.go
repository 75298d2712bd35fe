package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/arbitrage-engine/business/pricing/app"
)

// routesModel keeps the latest opportunity per strategy in a table.
type routesModel struct {
	table  table.Model
	latest map[string]*domain.Opportunity
	order  []string
}

func newRoutesModel() routesModel {
	columns := []table.Column{
		{Title: "Strategy", Width: 24},
		{Title: "Route", Width: 24},
		{Title: "Dir", Width: 8},
		{Title: "PNL", Width: 14},
		{Title: "Bps", Width: 9},
		{Title: "Block", Width: 10},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle
	styles.Selected = TableSelectedStyle
	t.SetStyles(styles)

	return routesModel{
		table:  t,
		latest: make(map[string]*domain.Opportunity),
	}
}

func (m *routesModel) add(opp *domain.Opportunity) {
	if _, ok := m.latest[opp.Strategy]; !ok {
		m.order = append(m.order, opp.Strategy)
	}
	m.latest[opp.Strategy] = opp
	m.table.SetRows(m.rows())
}

func (m *routesModel) clear() {
	m.latest = make(map[string]*domain.Opportunity)
	m.order = nil
	m.table.SetRows(nil)
	m.table.SetCursor(0)
}

func (m routesModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.order))
	for _, name := range m.order {
		opp := m.latest[name]
		status := "-"
		if opp.IsProfitable() {
			status = "PROFIT"
		}
		rows = append(rows, table.Row{
			name,
			opp.Best.Route.String(),
			string(opp.Direction()),
			opp.Profit.PNL.StringFixed(4),
			opp.Profit.PNLBps.StringFixed(2),
			fmt.Sprintf("#%d", opp.BlockNumber),
			status,
		})
	}
	return rows
}

// selected returns the opportunity under the cursor, if any.
func (m routesModel) selected() *domain.Opportunity {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.order) {
		return nil
	}
	return m.latest[m.order[i]]
}

func (m routesModel) update(msg tea.Msg) (routesModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m routesModel) View() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("BEST ROUTES"))
	sb.WriteString("\n\n")
	if len(m.order) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for the first scan..."))
		return sb.String()
	}
	sb.WriteString(m.table.View())
	return sb.String()
}

// renderDetails shows the hop amounts of the selected route.
func renderDetails(opp *domain.Opportunity) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("ROUTE DETAILS"))
	sb.WriteString("\n\n")
	if opp == nil {
		sb.WriteString(MutedValue.Render("  No route selected"))
		return sb.String()
	}

	route := opp.Best.Route
	sb.WriteString(fmt.Sprintf("  %s  %s\n", opp.Strategy, MutedValue.Render(opp.Direction().Describe(opp.Params))))
	for i := 1; i < route.Len() && i < len(opp.Best.AmountsOut); i++ {
		hop := route.Hop(i)
		sb.WriteString(fmt.Sprintf("  %d. %-12s %-10s %s %s -> %s %s\n",
			i, hop.Venue, hop.Kind,
			opp.Best.AmountsOut[i-1].String(), route.Tokens[i-1],
			opp.Best.AmountsOut[i].String(), route.Tokens[i],
		))
	}

	pnl := opp.Profit.PNL
	sb.WriteString("\n  PNL: ")
	sb.WriteString(signed(pnl.StringFixed(6)+" "+route.Tokens[0], pnl.IsPositive()))
	sb.WriteString(fmt.Sprintf("  (%s bps)", opp.Profit.PNLBps.StringFixed(2)))
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  latency %s", opp.Latency.Round(time.Microsecond))))
	return sb.String()
}

// renderFeeds renders one line per liquidity feed.
func renderFeeds(feeds []pricingApp.FeedStatus) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIQUIDITY FEEDS"))
	sb.WriteString("\n\n")
	if len(feeds) == 0 {
		sb.WriteString(MutedValue.Render("  No feeds reported yet"))
		return sb.String()
	}

	for _, f := range feeds {
		var icon string
		switch {
		case !f.Connected:
			icon = StatusDisconnected.Render("○")
		case f.LastError != "":
			icon = StatusDegraded.Render("●")
		default:
			icon = StatusConnected.Render("●")
		}

		seen := "never"
		if !f.LastSeen.IsZero() {
			seen = time.Since(f.LastSeen).Round(time.Second).String() + " ago"
		}
		sb.WriteString(fmt.Sprintf("  %s %-10s updates %-6d errors %-4d %s\n",
			icon, f.Name, f.Updates, f.Errors, MutedValue.Render(seen)))
		if f.LastError != "" {
			sb.WriteString(NegativeValue.Render("      " + truncate(f.LastError, 60)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
