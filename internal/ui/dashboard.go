package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tokenfarm/internal/engine"
	"github.com/rovshanmuradov/tokenfarm/internal/logger"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
	"github.com/rovshanmuradov/tokenfarm/internal/ui/style"
)

// Farm is what the dashboard reads and drives.
type Farm interface {
	Status() engine.Status
	Account(addr types.Address) (engine.Account, error)
	AdvanceBlocks(ctx context.Context, n uint64) error
	Harvest(ctx context.Context, caller types.Address, pid int) error
}

// Options configure a Dashboard.
type Options struct {
	Caller   types.Address
	Decimals uint8
	// Commit persists state after every operation. Optional.
	Commit func(ctx context.Context) error
	// Ring feeds the log pane. Optional.
	Ring *logger.Ring
	// Updates delivers bus events. Optional.
	Updates <-chan tea.Msg
	// Refresh is the polling interval; zero disables polling.
	Refresh time.Duration
}

const (
	maxRecentEvents = 8
	logLines        = 8
)

// Dashboard shows the farm's pools, the caller's positions, recent events
// and log lines, and lets the caller mine blocks and harvest.
type Dashboard struct {
	ctx    context.Context
	farm   Farm
	opts   Options
	logger *zap.Logger

	keys   KeyMap
	help   help.Model
	pools  table.Model
	styles style.Styles

	status   engine.Status
	account  engine.Account
	recent   []string
	lastErr  error
	lastOp   string
	showLogs bool
	width    int
}

// NewDashboard builds a dashboard over farm. ctx bounds the operations it
// runs.
func NewDashboard(ctx context.Context, farm Farm, logger *zap.Logger, opts Options) *Dashboard {
	palette := style.DefaultPalette()
	styles := style.NewStyles(palette)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "PID", Width: 4},
			{Title: "Asset", Width: 6},
			{Title: "Weight", Width: 8},
			{Title: "Fee", Width: 5},
			{Title: "Staked", Width: 18},
			{Title: "Yours", Width: 18},
			{Title: "Pending", Width: 18},
		}),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(palette.Background).
		Background(palette.Primary).
		Bold(false)
	t.SetStyles(ts)

	return &Dashboard{
		ctx:      ctx,
		farm:     farm,
		opts:     opts,
		logger:   logger.Named("dashboard"),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		pools:    t,
		styles:   styles,
		showLogs: opts.Ring != nil,
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{d.refresh()}
	if d.opts.Updates != nil {
		cmds = append(cmds, Listen(d.opts.Updates))
	}
	if d.opts.Refresh > 0 {
		cmds = append(cmds, tick(d.opts.Refresh))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.help.Width = msg.Width
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Help):
			d.help.ShowAll = !d.help.ShowAll
			return d, nil
		case key.Matches(msg, d.keys.Advance):
			return d, d.advance(1)
		case key.Matches(msg, d.keys.AdvanceMany):
			return d, d.advance(10)
		case key.Matches(msg, d.keys.Harvest):
			return d, d.harvest(d.selectedPool())
		case key.Matches(msg, d.keys.Refresh):
			return d, d.refresh()
		case key.Matches(msg, d.keys.ToggleLogs):
			d.showLogs = !d.showLogs
			return d, nil
		}
		var cmd tea.Cmd
		d.pools, cmd = d.pools.Update(msg)
		return d, cmd

	case refreshedMsg:
		if msg.err != nil {
			d.lastErr = msg.err
			return d, nil
		}
		d.status, d.account = msg.status, msg.account
		d.pools.SetRows(d.poolRows())
		return d, nil

	case opDoneMsg:
		d.lastOp, d.lastErr = msg.op, msg.err
		return d, d.refresh()

	case EventMsg:
		e := msg.Event
		d.recent = append(d.recent, fmt.Sprintf("#%d %s", e.BlockNumber(), e.Type()))
		if len(d.recent) > maxRecentEvents {
			d.recent = d.recent[len(d.recent)-maxRecentEvents:]
		}
		return d, Listen(d.opts.Updates)

	case tickMsg:
		return d, tea.Batch(d.refresh(), tick(d.opts.Refresh))
	}
	return d, nil
}

func (d *Dashboard) refresh() tea.Cmd {
	return func() tea.Msg {
		status := d.farm.Status()
		account, err := d.farm.Account(d.opts.Caller)
		return refreshedMsg{status: status, account: account, err: err}
	}
}

func (d *Dashboard) advance(n uint64) tea.Cmd {
	return d.run(fmt.Sprintf("advance %d", n), func(ctx context.Context) error {
		return d.farm.AdvanceBlocks(ctx, n)
	})
}

func (d *Dashboard) harvest(pid int) tea.Cmd {
	if pid < 0 {
		return nil
	}
	return d.run(fmt.Sprintf("harvest pool %d", pid), func(ctx context.Context) error {
		return d.farm.Harvest(ctx, d.opts.Caller, pid)
	})
}

// run executes op and commits the result.
func (d *Dashboard) run(name string, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := op(d.ctx)
		if err == nil && d.opts.Commit != nil {
			err = d.opts.Commit(d.ctx)
		}
		if err != nil {
			d.logger.Warn("Operation failed", zap.String("op", name), zap.Error(err))
		}
		return opDoneMsg{op: name, err: err}
	}
}

func (d *Dashboard) selectedPool() int {
	row := d.pools.SelectedRow()
	if row == nil {
		return -1
	}
	pid, err := strconv.Atoi(row[0])
	if err != nil {
		return -1
	}
	return pid
}

func (d *Dashboard) format(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return types.FormatUnits(x, d.opts.Decimals)
}

func (d *Dashboard) poolRows() []table.Row {
	mine := make(map[int]engine.Position, len(d.account.Positions))
	for _, p := range d.account.Positions {
		mine[p.PoolID] = p
	}
	rows := make([]table.Row, 0, len(d.status.Farm.Pools))
	for _, p := range d.status.Farm.Pools {
		pos := mine[p.ID]
		rows = append(rows, table.Row{
			strconv.Itoa(p.ID),
			string(p.Asset),
			strconv.FormatUint(p.Weight, 10),
			strconv.FormatUint(p.DepositFeeRate, 10),
			d.format(p.StakedSupply),
			d.format(pos.Staked),
			d.format(pos.Pending),
		})
	}
	return rows
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	s := d.styles
	st := d.status
	var b strings.Builder

	header := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(fmt.Sprintf("%s farm", st.Token.Symbol))+
			s.Label.Render("  block ")+s.Value.Render(strconv.FormatUint(st.Block, 10)),
		s.Label.Render("supply ")+s.Value.Render(d.format(st.Token.TotalSupply))+
			s.Label.Render(" / cap ")+s.Value.Render(d.format(st.Token.Cap))+
			s.Label.Render("  burned ")+s.Burn.Render(d.format(st.Token.Burned)),
		s.Label.Render("reward/block ")+s.Reward.Render(d.format(st.Farm.RewardPerBlock))+
			s.Label.Render("  reserve ")+s.Value.Render(d.format(st.Farm.RewardReserve))+
			s.Label.Render("  pair ")+s.Value.Render(d.format(st.Pair.ReserveToken))+
			s.Label.Render(" / ")+s.Value.Render(d.format(st.Pair.ReserveBase)),
	)
	b.WriteString(s.Header.Render(header))
	b.WriteString("\n")

	b.WriteString(s.Pane.Render(d.pools.View()))
	b.WriteString("\n")

	acc := d.account
	b.WriteString(s.Label.Render("you ") + s.Muted.Render(logger.ShortAddress(d.opts.Caller.String())) +
		s.Label.Render("  token ") + s.Value.Render(d.format(acc.Token)) +
		s.Label.Render("  lp ") + s.Value.Render(d.format(acc.LP)) +
		s.Label.Render("  base ") + s.Value.Render(d.format(acc.Base)))
	b.WriteString("\n")

	if len(d.recent) > 0 {
		b.WriteString(s.Pane.Render(s.Muted.Render(strings.Join(d.recent, "\n"))))
		b.WriteString("\n")
	}

	if d.showLogs && d.opts.Ring != nil {
		var lines []string
		for _, e := range d.opts.Ring.Recent(logLines) {
			lines = append(lines, e.Timestamp.Format("15:04:05")+" "+
				s.LevelStyle(e.Level).Render(fmt.Sprintf("%-5s", e.Level))+" "+e.Message)
		}
		if len(lines) > 0 {
			b.WriteString(s.Pane.Render(strings.Join(lines, "\n")))
			b.WriteString("\n")
		}
	}

	switch {
	case d.lastErr != nil:
		b.WriteString(s.Error.Render("error: " + d.lastErr.Error()))
		b.WriteString("\n")
	case d.lastOp != "":
		b.WriteString(s.Reward.Render(d.lastOp + " ok"))
		b.WriteString("\n")
	}
	b.WriteString(d.help.View(d.keys))
	return b.String()
}
