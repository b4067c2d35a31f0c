package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/duopane/duopane/internal/logging"
)

type stringFlag struct {
	value string
	set   bool
}

func (s *stringFlag) String() string { return s.value }
func (s *stringFlag) Set(val string) error {
	s.value = val
	s.set = true
	return nil
}

type intFlag struct {
	value int
	set   bool
}

func (i *intFlag) String() string { return fmt.Sprintf("%d", i.value) }
func (i *intFlag) Set(val string) error {
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return err
	}
	i.value = parsed
	i.set = true
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var maxDepth intFlag
	var configPath stringFlag
	var debugLog stringFlag
	var noConfirm bool
	var followSymlinks bool

	flag.Var(&maxDepth, "depth", "Maximum directory depth for traversals (0 = default bound)")
	flag.Var(&configPath, "config", "Path to a JSON config file")
	flag.Var(&debugLog, "debug-log", "Path to a debug log file")
	flag.BoolVar(&noConfirm, "no-confirm", false, "Delete without confirmation prompts")
	flag.BoolVar(&followSymlinks, "follow", false, "Follow symlinks that resolve to directories")
	flag.Parse()

	leftDir := "."
	rightDir := "."
	if flag.NArg() > 0 {
		leftDir = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		rightDir = flag.Arg(1)
	} else {
		rightDir = leftDir
	}

	leftAbs, err := filepath.Abs(leftDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error resolving path:", err)
		os.Exit(1)
	}
	rightAbs, err := filepath.Abs(rightDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error resolving path:", err)
		os.Exit(1)
	}
	for _, dir := range []string{leftAbs, rightAbs} {
		info, err := os.Stat(dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error opening directory:", err)
			os.Exit(1)
		}
		if !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Not a directory: %s\n", dir)
			os.Exit(1)
		}
	}

	config := Config{}
	if path, ok, err := resolveConfigPath(configPath.value); err != nil {
		fmt.Fprintln(os.Stderr, "Error resolving config:", err)
		os.Exit(1)
	} else if ok {
		cfg, err := loadConfig(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		normalized, err := normalizeConfig(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error in config:", err)
			os.Exit(1)
		}
		config = normalized
	}

	depth := config.Depth
	if maxDepth.set {
		depth = maxDepth.value
	}
	confirm := true
	if config.Confirm != nil {
		confirm = *config.Confirm
	}
	if noConfirm {
		confirm = false
	}
	logPath := config.DebugLog
	if debugLog.set {
		logPath = debugLog.value
	}

	var debug logging.Sink = logging.Nop{}
	if logPath != "" {
		sink, err := logging.NewFileSink(logPath, config.DebugLogMaxBytes)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error opening debug log:", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := sink.Close(); closeErr != nil {
				fmt.Fprintln(os.Stderr, "Error closing debug log:", closeErr)
			}
		}()
		debug = sink
	}

	opts := appOptions{
		LeftDir:   leftAbs,
		RightDir:  rightAbs,
		SearchCap: config.SearchCap,
		Confirm:   confirm,
		Debug:     debug,
		Walk: fsx.WalkOptions{
			FollowSymlinks: followSymlinks,
			MaxDepth:       depth,
			SkipNames:      skipSet(config.Skip),
			Debug:          debug,
		},
	}

	m := NewModel(ctx, opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		os.Exit(1)
	}
}
