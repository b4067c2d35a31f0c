package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/duopane/duopane/internal/textutil"
)

type paneEntry struct {
	Name    string
	Path    string
	Kind    fsx.Kind
	Size    int64
	ModTime time.Time
	// CalcSize holds a computed directory size once the user requested one;
	// -1 means not calculated.
	CalcSize int64
}

type pane struct {
	dir       string
	entries   []paneEntry
	table     table.Model
	loadErr   error
	nameWidth int
}

func newPane(dir string) pane {
	columns := []table.Column{
		{Title: "Name", Width: 30},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 16},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(styles)

	p := pane{dir: dir, table: t, nameWidth: 30}
	p.load()
	return p
}

// load materializes the directory listing. The engine's visit order is
// whatever the filesystem yields, so display sorting happens here on the
// full batch: directories first, then names case-folded.
func (p *pane) load() {
	p.entries = nil
	p.loadErr = nil

	dirents, err := os.ReadDir(p.dir)
	if err != nil {
		p.loadErr = err
		p.setRows()
		return
	}

	for _, dirent := range dirents {
		info, err := dirent.Info()
		if err != nil {
			continue
		}
		entry := paneEntry{
			Name:     dirent.Name(),
			Path:     filepath.Join(p.dir, dirent.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			CalcSize: -1,
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			entry.Kind = fsx.KindSymlink
		case info.IsDir():
			entry.Kind = fsx.KindDir
		default:
			entry.Kind = fsx.KindFile
		}
		p.entries = append(p.entries, entry)
	}

	sort.SliceStable(p.entries, func(i, j int) bool {
		left, right := p.entries[i], p.entries[j]
		leftDir := left.Kind == fsx.KindDir
		rightDir := right.Kind == fsx.KindDir
		if leftDir != rightDir {
			return leftDir
		}
		return strings.ToLower(left.Name) < strings.ToLower(right.Name)
	})

	p.setRows()
}

func (p *pane) setRows() {
	nameWidth := p.nameWidth
	rows := make([]table.Row, 0, len(p.entries))
	for _, entry := range p.entries {
		name := entry.Name
		switch entry.Kind {
		case fsx.KindDir:
			name += "/"
		case fsx.KindSymlink:
			name += "@"
		}

		size := ""
		switch {
		case entry.Kind == fsx.KindDir && entry.CalcSize >= 0:
			size = textutil.FormatBytes(entry.CalcSize)
		case entry.Kind == fsx.KindFile:
			size = textutil.FormatBytes(entry.Size)
		}

		rows = append(rows, table.Row{
			textutil.Truncate(name, nameWidth),
			size,
			entry.ModTime.Format("2006-01-02 15:04"),
		})
	}
	p.table.SetRows(rows)
}

// selected returns the entry under the cursor, or nil.
func (p *pane) selected() *paneEntry {
	idx := p.table.Cursor()
	if idx < 0 || idx >= len(p.entries) {
		return nil
	}
	return &p.entries[idx]
}

// enter descends into the selected directory; opaque symlinks stay leaves.
func (p *pane) enter() {
	entry := p.selected()
	if entry == nil || entry.Kind != fsx.KindDir {
		return
	}
	p.dir = entry.Path
	p.load()
	p.table.SetCursor(0)
}

// up ascends to the parent directory.
func (p *pane) up() {
	parent := filepath.Dir(p.dir)
	if parent == p.dir {
		return
	}
	p.dir = parent
	p.load()
	p.table.SetCursor(0)
}

// setCalcSize records a computed directory size for display.
func (p *pane) setCalcSize(path string, size int64) {
	for idx := range p.entries {
		if p.entries[idx].Path == path {
			p.entries[idx].CalcSize = size
			p.setRows()
			return
		}
	}
}

func (p *pane) resize(width, height int) {
	sizeWidth := 10
	modWidth := 16
	p.nameWidth = max(width-sizeWidth-modWidth-6, 12)
	nameWidth := p.nameWidth
	p.table.SetColumns([]table.Column{
		{Title: "Name", Width: nameWidth},
		{Title: "Size", Width: sizeWidth},
		{Title: "Modified", Width: modWidth},
	})
	p.table.SetWidth(width)
	p.table.SetHeight(height)
	p.setRows()
}
