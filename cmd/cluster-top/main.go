package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-cluster/pkg/cluster"
	"github.com/dd0wney/cluso-cluster/pkg/fdetector"
	"github.com/dd0wney/cluso-cluster/pkg/gossip"
	"github.com/dd0wney/cluso-cluster/pkg/logging"
	"github.com/dd0wney/cluso-cluster/pkg/transport"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(1).
			MarginTop(1)

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			MarginLeft(1)

	trustedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	suspectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	shutdownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(1)
)

type refreshMsg struct{}

type model struct {
	membership *cluster.Membership
	tbl        table.Model
	localID    string
	lastUpdate time.Time
}

func newModel(ms *cluster.Membership) model {
	columns := []table.Column{
		{Title: "ID", Width: 38},
		{Title: "Address", Width: 22},
		{Title: "Status", Width: 10},
		{Title: "Metadata", Width: 28},
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true)
	tbl.SetStyles(styles)

	return model{
		membership: ms,
		tbl:        tbl,
		localID:    ms.LocalMember().ID(),
	}
}

func (m model) Init() tea.Cmd {
	return refreshAfter(200 * time.Millisecond)
}

func refreshAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case refreshMsg:
		m.tbl.SetRows(m.memberRows())
		m.lastUpdate = time.Now()
		return m, refreshAfter(500 * time.Millisecond)
	}

	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func (m model) memberRows() []table.Row {
	members := m.membership.Members()
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID() < members[j].ID()
	})

	rows := make([]table.Row, 0, len(members))
	for _, member := range members {
		id := member.ID()
		if id == m.localID {
			id += " (self)"
		}

		var status string
		switch member.Status {
		case cluster.Trusted:
			status = trustedStyle.Render(member.Status.String())
		case cluster.Suspected:
			status = suspectedStyle.Render(member.Status.String())
		case cluster.Shutdown:
			status = shutdownStyle.Render(member.Status.String())
		default:
			status = member.Status.String()
		}

		metadata := make([]string, 0, len(member.Metadata))
		for k, v := range member.Metadata {
			metadata = append(metadata, fmt.Sprintf("%s=%s", k, v))
		}
		sort.Strings(metadata)

		rows = append(rows, table.Row{
			id,
			fmt.Sprintf("%s:%d", member.Endpoint.Host, member.Endpoint.Port),
			status,
			strings.Join(metadata, " "),
		})
	}
	return rows
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cluso-cluster members"))
	b.WriteString("\n")
	b.WriteString(baseStyle.Render(m.tbl.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"%d members · refreshed %s · q to quit",
		len(m.tbl.Rows()), m.lastUpdate.Format("15:04:05"))))
	b.WriteString("\n")
	return b.String()
}

func main() {
	host := flag.String("host", "127.0.0.1", "Local host for the observer endpoint")
	port := flag.Int("port", 7950, "Local membership port")
	seeds := flag.String("seeds", "", "Comma-separated seed addresses host:port")
	group := flag.String("group", "default", "Sync group")
	flag.Parse()

	if *seeds == "" {
		fmt.Fprintln(os.Stderr, "cluster-top requires -seeds to join a cluster")
		os.Exit(1)
	}

	// The TUI owns the terminal; keep the protocol stack quiet
	logger := logging.NewNopLogger()

	endpoint := transport.NewEndpoint(*host, *port)
	tr := transport.New(transport.NewNNGSocketFactory(), transport.Config{Endpoint: endpoint}, logger)
	if err := tr.Start(); err != nil {
		log.Fatalf("Failed to start transport: %v", err)
	}
	defer tr.Stop()

	fd, err := fdetector.New(tr, fdetector.DefaultConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to create failure detector: %v", err)
	}
	if err := fd.Start(); err != nil {
		log.Fatalf("Failed to start failure detector: %v", err)
	}
	defer fd.Stop()

	gp, err := gossip.New(tr, gossip.DefaultConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to create gossip protocol: %v", err)
	}
	if err := gp.Start(); err != nil {
		log.Fatalf("Failed to start gossip protocol: %v", err)
	}
	defer gp.Stop()

	config := cluster.DefaultConfig()
	config.SeedMembers = strings.Split(*seeds, ",")
	config.SyncGroup = *group
	config.Metadata = map[string]string{"role": "observer"}

	ms, err := cluster.New(tr, fd, gp, config, logger)
	if err != nil {
		log.Fatalf("Failed to create membership: %v", err)
	}
	if err := ms.Start(); err != nil {
		log.Fatalf("Failed to start membership: %v", err)
	}

	// Keep the update stream drained so the bus never backs up
	updates := ms.ListenUpdates(context.Background())
	go func() {
		for range updates.Channel() {
		}
	}()

	program := tea.NewProgram(newModel(ms))
	if _, err := program.Run(); err != nil {
		log.Fatalf("TUI failed: %v", err)
	}

	ms.Leave()
	time.Sleep(time.Second)
	ms.Stop()
}
