// Package player hands resolved streams to an external media player
package player

import (
	"fmt"
	"iter"
	"log/slog"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"
)

// Stream is what the player needs to open a resolved source
type Stream struct {
	URL       string
	Title     string
	Start     time.Duration     // Resume offset
	Headers   map[string]string // e.g. Referer required by the CDN
	Subtitles []string          // External subtitle URLs
}

// Launcher starts an external player
type Launcher struct {
	command   string   // Configured player, empty to auto-detect
	args      []string // Extra arguments for the configured player
	startFlag string   // Overrides the known offset flag
	goos      string
	lookPath  func(string) (string, error)
	start     func(name string, args ...string) error
	logger    *slog.Logger
}

// NewLauncher creates a launcher for the configured player command
func NewLauncher(command string, args []string, startFlag string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:   command,
		args:      args,
		startFlag: startFlag,
		goos:      runtime.GOOS,
		lookPath:  exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		logger: logger,
	}
}

// Launch opens the stream in the configured player, else the first
// installed candidate for this platform.
func (l *Launcher) Launch(s Stream) error {
	if s.URL == "" {
		return fmt.Errorf("no stream url")
	}

	if l.command != "" {
		p, known := profileFor(l.command)
		if !known && s.Start > 0 && l.startFlag == "" {
			l.logger.Warn("cannot set start offset for unknown player, configure player.start_flag",
				"command", l.command, "offset", s.Start)
		}
		args := append(slices.Clone(l.args), buildArgs(p, l.startFlag, s)...)
		return l.run(launchPath{path: l.command}, args, s.URL)
	}

	for _, name := range l.candidates() {
		p := players[name]
		for _, lp := range p.platforms[l.goos] {
			if err := l.run(lp, buildArgs(p, "", s), s.URL); err != nil {
				l.logger.Debug("launch path not available", "player", name, "path", lp.path, "error", err)
				continue
			}
			l.logger.Info("launched player", "player", name, "path", lp.path)
			return nil
		}
	}
	return fmt.Errorf("no supported player found (tried %s)", strings.Join(l.candidates(), ", "))
}

func (l *Launcher) candidates() []string {
	if c, ok := candidatePlayers[l.goos]; ok {
		return c
	}
	return candidatePlayers["linux"]
}

func (l *Launcher) run(lp launchPath, args []string, url string) error {
	if app, ok := strings.CutPrefix(lp.path, "open-a:"); ok {
		cmdArgs := append(slices.Clone(lp.openFlags), "-a", app)
		if len(args) > 0 {
			cmdArgs = append(cmdArgs, "--args")
			cmdArgs = append(cmdArgs, args...)
		}
		cmdArgs = append(cmdArgs, url)
		return l.start("open", cmdArgs...)
	}

	if _, err := l.lookPath(lp.path); err != nil {
		return err
	}
	l.logger.Info("launching player", "command", lp.path, "args", args)
	return l.start(lp.path, append(args, url)...)
}

// sortedHeaders yields headers in name order so argument lists are stable
func sortedHeaders(h map[string]string) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		names := make([]string, 0, len(h))
		for name := range h {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			if !yield(name, h[name]) {
				return
			}
		}
	}
}
