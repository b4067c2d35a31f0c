package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/duopane/duopane/internal/archive"
	"github.com/duopane/duopane/internal/fileops"
	"github.com/duopane/duopane/internal/fsx"
	"github.com/duopane/duopane/internal/logging"
	"github.com/duopane/duopane/internal/textutil"
)

// busyKind says which worker, if any, owns the stream channel. At most one
// worker runs at a time; starting anything while busy is refused.
type busyKind int

const (
	busyNone busyKind = iota
	busyOp            // copy, move or delete through a fileops.Runner
	busySize
	busySearch
	busyTar
)

type opStreamMsg struct {
	ID int
	Ch <-chan tea.Msg
}

type opProgressMsg struct {
	ID int
	P  fileops.Progress
}

type opDoneMsg struct {
	ID     int
	Result *fileops.Result
}

// collisionMsg is a planning worker blocked on a decision. Reply must always
// receive exactly one Resolution, even for a stale stream, or the worker
// hangs.
type collisionMsg struct {
	ID    int
	Src   string
	Dst   string
	Reply chan<- fileops.Resolution
}

type sizeProgressMsg struct {
	ID      int
	Current string
	Stats   fsx.DirStats
}

type sizeDoneMsg struct {
	ID    int
	Path  string
	Stats fsx.DirStats
}

type searchDoneMsg struct {
	ID     int
	Root   string
	Needle string
	Result fsx.SearchResult
}

type tarDoneMsg struct {
	ID      int
	Dest    string
	Skipped []fsx.PathError
	Err     error
}

// resultsState is the search results overlay.
type resultsState struct {
	active bool
	root   string
	needle string
	result fsx.SearchResult
	offset int
}

type keyMap struct {
	SwitchPane key.Binding
	Enter      key.Binding
	Up         key.Binding
	Copy       key.Binding
	Move       key.Binding
	Delete     key.Binding
	Rename     key.Binding
	Mkdir      key.Binding
	CalcSize   key.Binding
	Search     key.Binding
	Tar        key.Binding
	Refresh    key.Binding
	CancelOp   key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		SwitchPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", "right"),
			key.WithHelp("enter", "open dir"),
		),
		Up: key.NewBinding(
			key.WithKeys("backspace", "left"),
			key.WithHelp("backspace", "parent dir"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy to other pane"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to other pane"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Mkdir: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new dir"),
		),
		CalcSize: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "dir size"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Tar: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tar to other pane"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("u", "ctrl+r"),
			key.WithHelp("u", "refresh"),
		),
		CancelOp: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel op"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchPane, k.Enter, k.Copy, k.Move, k.Delete, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SwitchPane, k.Enter, k.Up, k.Refresh},
		{k.Copy, k.Move, k.Delete, k.Rename, k.Mkdir},
		{k.CalcSize, k.Search, k.Tar, k.CancelOp, k.Quit},
	}
}

// appOptions is everything main resolves before the UI starts.
type appOptions struct {
	LeftDir   string
	RightDir  string
	Walk      fsx.WalkOptions
	SearchCap int
	Confirm   bool
	Debug     logging.Sink
}

type model struct {
	panes  [2]pane
	active int

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	opBar   progress.Model

	confirm   confirmState
	collision collisionState
	prompt    promptState
	results   resultsState

	busy       busyKind
	opID       int
	opCancel   context.CancelFunc
	opStream   <-chan tea.Msg
	opProgress fileops.Progress
	sizeStats  fsx.DirStats
	sizeCur    string

	lastEvent string
	width     int
	height    int

	opts       appOptions
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

type styles struct {
	base       lipgloss.Style
	paneActive lipgloss.Style
	container  lipgloss.Style
	header     lipgloss.Style
	title      lipgloss.Style
	subtitle   lipgloss.Style
	status     lipgloss.Style
	muted      lipgloss.Style
	accent     lipgloss.Style
	danger     lipgloss.Style
	warning    lipgloss.Style
	confirm    lipgloss.Style
	chip       lipgloss.Style
}

var ui = styles{
	base: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")),
	paneActive: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")),
	container: lipgloss.NewStyle().Padding(0, 1),
	header:    lipgloss.NewStyle().Padding(0, 1),
	title:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	status:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	confirm:   lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("203")).Bold(true).Padding(0, 1),
	chip:      lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
}

func NewModel(ctx context.Context, opts appOptions) model {
	baseCtx, baseCancel := context.WithCancel(ctx)

	if opts.Debug == nil {
		opts.Debug = logging.Nop{}
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)

	m := model{
		panes:      [2]pane{newPane(opts.LeftDir), newPane(opts.RightDir)},
		keys:       newKeyMap(),
		help:       help.New(),
		spinner:    sp,
		opBar:      bar,
		opts:       opts,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
	m.panes[0].table.Focus()
	return m
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *model) activePane() *pane   { return &m.panes[m.active] }
func (m *model) inactivePane() *pane { return &m.panes[1-m.active] }

func (m *model) dialogActive() bool {
	return m.confirm.active || m.collision.active || m.prompt.active
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.updateLayout(msg.Width, msg.Height)
	case spinner.TickMsg:
		if m.busy != busyNone {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case opStreamMsg:
		if msg.ID != m.opID {
			break
		}
		m.opStream = msg.Ch
		cmds = append(cmds, waitOpMsg(msg.Ch))
	case opProgressMsg:
		if msg.ID != m.opID {
			break
		}
		m.opProgress = msg.P
		if m.opStream != nil {
			cmds = append(cmds, waitOpMsg(m.opStream))
		}
	case collisionMsg:
		if msg.ID != m.opID {
			// The stream was abandoned; unblock its planner so it can wind
			// down instead of waiting on a prompt nobody will answer.
			msg.Reply <- fileops.Resolution{Decision: fileops.DecideAbort}
			break
		}
		m.collision = collisionState{active: true, src: msg.Src, dst: msg.Dst, reply: msg.Reply}
		if m.opStream != nil {
			cmds = append(cmds, waitOpMsg(m.opStream))
		}
	case opDoneMsg:
		if msg.ID != m.opID {
			break
		}
		m.finishOperation(msg.Result)
	case sizeProgressMsg:
		if msg.ID != m.opID {
			break
		}
		m.sizeStats = msg.Stats
		m.sizeCur = msg.Current
		if m.opStream != nil {
			cmds = append(cmds, waitOpMsg(m.opStream))
		}
	case sizeDoneMsg:
		if msg.ID != m.opID {
			break
		}
		m.finishCalcSize(msg.Path, msg.Stats)
	case searchDoneMsg:
		if msg.ID != m.opID {
			break
		}
		m.finishSearch(msg)
	case tarDoneMsg:
		if msg.ID != m.opID {
			break
		}
		m.finishTar(msg)
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if !m.dialogActive() && !m.results.active {
			var cmd tea.Cmd
			m.panes[m.active].table, cmd = m.panes[m.active].table.Update(keyMsg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case m.confirm.active:
		return m.handleConfirmKey(msg)
	case m.collision.active:
		return m.handleCollisionKey(msg)
	case m.prompt.active:
		return m.handlePromptKey(msg)
	case m.results.active:
		return m.handleResultsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.baseCancel()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.CancelOp):
		m.cancelBusy()
	case key.Matches(msg, m.keys.SwitchPane):
		m.panes[m.active].table.Blur()
		m.active = 1 - m.active
		m.panes[m.active].table.Focus()
	case key.Matches(msg, m.keys.Enter):
		m.activePane().enter()
	case key.Matches(msg, m.keys.Up):
		m.activePane().up()
	case key.Matches(msg, m.keys.Refresh):
		m.panes[0].load()
		m.panes[1].load()
		m.lastEvent = "Refreshed"
	case key.Matches(msg, m.keys.Copy):
		return m.requestTransfer(fileops.OpCopy)
	case key.Matches(msg, m.keys.Move):
		return m.requestTransfer(fileops.OpMove)
	case key.Matches(msg, m.keys.Delete):
		return m.requestDelete()
	case key.Matches(msg, m.keys.Rename):
		m.requestRename()
		return textinput.Blink
	case key.Matches(msg, m.keys.Mkdir):
		m.prompt = promptState{active: true, kind: promptMkdir, input: newInput("name")}
		return textinput.Blink
	case key.Matches(msg, m.keys.Search):
		m.prompt = promptState{active: true, kind: promptSearch, input: newInput("name contains")}
		return textinput.Blink
	case key.Matches(msg, m.keys.CalcSize):
		return m.startCalcSize()
	case key.Matches(msg, m.keys.Tar):
		return m.startTar()
	}
	return nil
}

func (m *model) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q", "enter":
		m.results = resultsState{}
	case "up", "k":
		if m.results.offset > 0 {
			m.results.offset--
		}
	case "down", "j":
		if m.results.offset < len(m.results.result.Matches)-1 {
			m.results.offset++
		}
	}
	return nil
}

// cancelBusy handles esc outside any dialog. A running file operation keeps
// its busy state until the worker's terminal result arrives; scans are
// abandoned immediately and their late messages fail the ID check.
func (m *model) cancelBusy() {
	if m.busy == busyNone {
		return
	}
	if m.opCancel != nil {
		m.opCancel()
	}
	switch m.busy {
	case busyOp:
		m.lastEvent = "Cancelling…"
	default:
		m.busy = busyNone
		m.opStream = nil
		m.lastEvent = "Cancelled"
	}
}

func (m *model) requestTransfer(op fileops.Op) tea.Cmd {
	entry := m.activePane().selected()
	if entry == nil {
		m.lastEvent = "Nothing selected"
		return nil
	}
	return m.startOperation(op, entry.Path, m.inactivePane().dir)
}

func (m *model) requestDelete() tea.Cmd {
	entry := m.activePane().selected()
	if entry == nil {
		m.lastEvent = "Nothing selected"
		return nil
	}
	if m.opts.Confirm {
		m.confirm = confirmState{active: true, path: entry.Path}
		return nil
	}
	return m.startOperation(fileops.OpDelete, entry.Path, "")
}

func (m *model) requestRename() {
	entry := m.activePane().selected()
	if entry == nil {
		m.lastEvent = "Nothing selected"
		return
	}
	input := newInput(entry.Name)
	input.SetValue(entry.Name)
	m.prompt = promptState{active: true, kind: promptRename, target: entry.Path, input: input}
}

// startOperation spawns a fileops.Runner and a forwarder goroutine that
// funnels its progress and terminal result into one stream channel, the same
// shape every other worker uses.
func (m *model) startOperation(op fileops.Op, src, dstDir string) tea.Cmd {
	if m.busy != busyNone {
		m.lastEvent = "Another operation is running"
		return nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.opID++
	m.opCancel = cancel
	m.busy = busyOp
	m.opProgress = fileops.Progress{}
	m.lastEvent = fmt.Sprintf("%s %s…", opVerb(op), leafLabel(filepath.Base(src)))

	id := m.opID
	ch := make(chan tea.Msg)
	resolver := func(srcPath, dstPath string) fileops.Resolution {
		reply := make(chan fileops.Resolution, 1)
		ch <- collisionMsg{ID: id, Src: srcPath, Dst: dstPath, Reply: reply}
		return <-reply
	}
	req := fileops.Request{
		Op:       op,
		Src:      src,
		DstDir:   dstDir,
		Resolver: resolver,
		Walk:     m.opts.Walk,
		Debug:    m.opts.Debug,
	}

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		go func() {
			defer close(ch)
			runner := fileops.Start(ctx, req)
			for {
				select {
				case p := <-runner.Progress():
					ch <- opProgressMsg{ID: id, P: p}
				case r := <-runner.Done():
					ch <- opDoneMsg{ID: id, Result: r}
					return
				}
			}
		}()
		return opStreamMsg{ID: id, Ch: ch}
	})
}

func (m *model) finishOperation(result *fileops.Result) {
	if m.opCancel != nil {
		m.opCancel()
	}
	m.busy = busyNone
	m.opStream = nil
	m.collision = collisionState{}
	m.panes[0].load()
	m.panes[1].load()
	m.lastEvent = opSummary(result)
	if result.Fatal != nil {
		m.opts.Debug.Printf("operation failed: op=%v state=%v err=%v", result.Op, result.State, result.Fatal)
	}
}

func (m *model) startCalcSize() tea.Cmd {
	if m.busy != busyNone {
		m.lastEvent = "Another operation is running"
		return nil
	}
	entry := m.activePane().selected()
	if entry == nil || entry.Kind != fsx.KindDir {
		m.lastEvent = "Select a directory"
		return nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.opID++
	m.opCancel = cancel
	m.busy = busySize
	m.sizeStats = fsx.DirStats{}
	m.sizeCur = ""
	m.lastEvent = fmt.Sprintf("Sizing %s…", leafLabel(entry.Name))

	id := m.opID
	path := entry.Path
	walk := m.opts.Walk

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ch := make(chan tea.Msg)
		go func() {
			defer close(ch)
			var last time.Time
			stats := fsx.CalcDirStats(ctx, path, walk, func(cur string, s fsx.DirStats) {
				if time.Since(last) < 200*time.Millisecond {
					return
				}
				last = time.Now()
				select {
				case ch <- sizeProgressMsg{ID: id, Current: cur, Stats: s}:
				case <-ctx.Done():
				}
			})
			select {
			case ch <- sizeDoneMsg{ID: id, Path: path, Stats: stats}:
			case <-ctx.Done():
			}
		}()
		return opStreamMsg{ID: id, Ch: ch}
	})
}

func (m *model) finishCalcSize(path string, stats fsx.DirStats) {
	if m.opCancel != nil {
		m.opCancel()
	}
	m.busy = busyNone
	m.opStream = nil
	m.activePane().setCalcSize(path, stats.TotalSize)
	summary := fmt.Sprintf("%s: %s in %d files, %d dirs",
		leafLabel(filepath.Base(path)), textutil.FormatBytes(stats.TotalSize), stats.FileCount, stats.DirCount)
	if stats.Partial {
		summary += " (cancelled, partial)"
	} else if len(stats.Errors) > 0 {
		summary += fmt.Sprintf(" (%d skipped)", len(stats.Errors))
	}
	m.lastEvent = summary
}

func (m *model) startSearch(needle string) tea.Cmd {
	if m.busy != busyNone {
		m.lastEvent = "Another operation is running"
		return nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.opID++
	m.opCancel = cancel
	m.busy = busySearch
	m.lastEvent = fmt.Sprintf("Searching for %q…", needle)

	id := m.opID
	root := m.activePane().dir
	opts := fsx.SearchOptions{Needle: needle, Cap: m.opts.SearchCap, Walk: m.opts.Walk}

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ch := make(chan tea.Msg)
		go func() {
			defer close(ch)
			result := fsx.Search(ctx, root, opts)
			select {
			case ch <- searchDoneMsg{ID: id, Root: root, Needle: needle, Result: result}:
			case <-ctx.Done():
			}
		}()
		return opStreamMsg{ID: id, Ch: ch}
	})
}

func (m *model) finishSearch(msg searchDoneMsg) {
	if m.opCancel != nil {
		m.opCancel()
	}
	m.busy = busyNone
	m.opStream = nil
	m.results = resultsState{active: true, root: msg.Root, needle: msg.Needle, result: msg.Result}
	m.lastEvent = fmt.Sprintf("%d match(es) for %q", len(msg.Result.Matches), msg.Needle)
}

func (m *model) startTar() tea.Cmd {
	if m.busy != busyNone {
		m.lastEvent = "Another operation is running"
		return nil
	}
	entry := m.activePane().selected()
	if entry == nil || entry.Kind != fsx.KindDir {
		m.lastEvent = "Select a directory"
		return nil
	}

	dest := filepath.Join(m.inactivePane().dir, entry.Name+".tar")
	if _, err := os.Lstat(dest); err == nil {
		m.lastEvent = fmt.Sprintf("%s already exists", leafLabel(filepath.Base(dest)))
		return nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.opID++
	m.opCancel = cancel
	m.busy = busyTar
	m.lastEvent = fmt.Sprintf("Archiving %s…", leafLabel(entry.Name))

	id := m.opID
	src := entry.Path
	walk := m.opts.Walk

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ch := make(chan tea.Msg)
		go func() {
			defer close(ch)
			file, err := os.Create(dest)
			if err != nil {
				select {
				case ch <- tarDoneMsg{ID: id, Dest: dest, Err: err}:
				case <-ctx.Done():
				}
				return
			}
			skipped, err := archive.WriteTar(ctx, file, src, walk)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(dest)
			}
			select {
			case ch <- tarDoneMsg{ID: id, Dest: dest, Skipped: skipped, Err: err}:
			case <-ctx.Done():
			}
		}()
		return opStreamMsg{ID: id, Ch: ch}
	})
}

func (m *model) finishTar(msg tarDoneMsg) {
	if m.opCancel != nil {
		m.opCancel()
	}
	m.busy = busyNone
	m.opStream = nil
	m.inactivePane().load()
	if msg.Err != nil {
		m.lastEvent = fmt.Sprintf("Archive failed: %v", msg.Err)
		return
	}
	summary := fmt.Sprintf("Created %s", leafLabel(filepath.Base(msg.Dest)))
	if len(msg.Skipped) > 0 {
		summary += fmt.Sprintf(" (%d entries skipped)", len(msg.Skipped))
	}
	m.lastEvent = summary
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var content string
	if m.results.active {
		content = m.resultsView()
	} else {
		content = m.panesView()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		content,
		m.statusView(),
		m.footerView(),
	)
	return ui.container.Render(view)
}

func (m model) panesView() string {
	var rendered [2]string
	for idx := range m.panes {
		body := m.panes[idx].table.View()
		if m.panes[idx].loadErr != nil {
			body = ui.danger.Render(fmt.Sprintf("Error: %v", m.panes[idx].loadErr))
		}
		style := ui.base
		if idx == m.active {
			style = ui.paneActive
		}
		rendered[idx] = style.Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered[0], " ", rendered[1])
}

func (m model) resultsView() string {
	width := max(m.width-6, 20)
	height := max(m.height-8, 5)

	title := fmt.Sprintf("Results for %q under %s", m.results.needle, textutil.TruncateLeft(m.results.root, width-30))
	lines := []string{ui.accent.Render(textutil.Truncate(title, width))}

	matches := m.results.result.Matches
	start := m.results.offset
	end := min(start+height-2, len(matches))
	for _, rel := range matches[start:end] {
		lines = append(lines, textutil.PadRight(textutil.Truncate(rel, width), width))
	}
	if len(matches) == 0 {
		lines = append(lines, ui.muted.Render("No matches"))
	}

	notes := []string{}
	if m.results.result.Truncated {
		notes = append(notes, fmt.Sprintf("capped at %d", len(matches)))
	}
	if m.results.result.Partial {
		notes = append(notes, "cancelled, partial")
	}
	if n := len(m.results.result.Errors); n > 0 {
		notes = append(notes, fmt.Sprintf("%d branches skipped", n))
	}
	if len(notes) > 0 {
		lines = append(lines, ui.warning.Render(strings.Join(notes, " · ")))
	}
	lines = append(lines, ui.muted.Render("esc to close"))

	return ui.base.Width(width).Render(strings.Join(lines, "\n"))
}

func (m model) headerView() string {
	title := ui.title.Render("duopane")
	width := max((m.width-24)/2, 10)
	left := ui.chip.Render(textutil.TruncateLeft(m.panes[0].dir, width))
	right := ui.chip.Render(textutil.TruncateLeft(m.panes[1].dir, width))
	line := lipgloss.JoinHorizontal(lipgloss.Left, title, " ", left, " ", right)
	return ui.header.Render(line)
}

func (m model) statusView() string {
	switch m.busy {
	case busyOp:
		p := m.opProgress
		pathWidth := max(m.width-40, 10)
		line := fmt.Sprintf("%s %s %s · %s / %s · %d/%d entries",
			m.spinner.View(), p.Phase, textutil.TruncateLeft(p.CurrentPath, pathWidth),
			textutil.FormatBytes(p.BytesDone), textutil.FormatBytes(p.BytesTotal),
			p.EntriesDone, p.EntriesTotal)
		bar := m.opBar.ViewAs(progressRatio(p))
		return lipgloss.JoinVertical(lipgloss.Left, ui.status.Render(line), ui.muted.Render(bar))
	case busySize:
		pathWidth := max(m.width-50, 10)
		line := fmt.Sprintf("%s sizing %s · %s · %d files",
			m.spinner.View(), textutil.TruncateLeft(m.sizeCur, pathWidth),
			textutil.FormatBytes(m.sizeStats.TotalSize), m.sizeStats.FileCount)
		return ui.status.Render(line)
	case busySearch:
		return ui.status.Render(fmt.Sprintf("%s searching…", m.spinner.View()))
	case busyTar:
		return ui.status.Render(fmt.Sprintf("%s archiving…", m.spinner.View()))
	}

	active := m.activePane()
	parts := []string{fmt.Sprintf("Items: %d", len(active.entries))}
	if entry := active.selected(); entry != nil {
		parts = append(parts, textutil.TruncateLeft(entry.Path, max(m.width-30, 10)))
	}
	return ui.status.Render(strings.Join(parts, " · "))
}

func (m model) footerView() string {
	if dialog := m.dialogView(m.width); dialog != "" {
		return dialog
	}
	if m.lastEvent != "" {
		return lipgloss.JoinVertical(lipgloss.Left, ui.muted.Render(m.lastEvent), m.help.View(m.keys))
	}
	return m.help.View(m.keys)
}

func (m *model) updateLayout(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	if width < 60 {
		width = 60
	}
	if height < 12 {
		height = 12
	}
	m.width = width
	m.height = height

	headerHeight := lipgloss.Height(m.headerView())
	statusHeight := 2
	footerHeight := lipgloss.Height(m.footerView())
	paneHeight := max(height-headerHeight-statusHeight-footerHeight-4, 5)
	paneWidth := max((width-8)/2, 30)

	m.panes[0].resize(paneWidth, paneHeight)
	m.panes[1].resize(paneWidth, paneHeight)
	m.opBar.Width = max(width-8, 20)
}

// leafLabel bounds a leaf name before it lands in event text; the footer
// renders lastEvent as-is, so nothing wider than this may reach it.
func leafLabel(name string) string {
	return textutil.Truncate(name, 40)
}

func progressRatio(p fileops.Progress) float64 {
	if p.BytesTotal > 0 {
		return float64(p.BytesDone) / float64(p.BytesTotal)
	}
	if p.EntriesTotal > 0 {
		return float64(p.EntriesDone) / float64(p.EntriesTotal)
	}
	return 0
}

func opVerb(op fileops.Op) string {
	switch op {
	case fileops.OpCopy:
		return "Copying"
	case fileops.OpMove:
		return "Moving"
	default:
		return "Deleting"
	}
}

func opSummary(r *fileops.Result) string {
	verb := opVerb(r.Op)
	switch r.State {
	case fileops.StateCompleted:
		return fmt.Sprintf("%s done: %d entries, %s", verb, r.Done, textutil.FormatBytes(r.BytesDone))
	case fileops.StatePartiallyCompleted:
		return fmt.Sprintf("%s finished with %d error(s): %d/%d entries", verb, len(r.Errors), r.Done, r.Total)
	case fileops.StateCancelled:
		return fmt.Sprintf("%s cancelled: %d/%d entries applied", verb, r.Done, r.Total)
	default:
		if r.Fatal != nil {
			return fmt.Sprintf("%s aborted: %v", verb, r.Fatal)
		}
		return fmt.Sprintf("%s aborted", verb)
	}
}

func waitOpMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
