package player

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// launchPath is one way to start a player on a platform
type launchPath struct {
	path      string   // "mpv" or "open-a:AppName" for macOS bundles
	openFlags []string // Flags for macOS open, "open-a:" paths only
}

// profile describes the command-line dialect of a player.
// A flag ending in a space takes its value as a separate argument.
type profile struct {
	offsetFlag   string
	refererFlag  string // Empty when the player cannot send a Referer
	headerFlag   string // Generic "Name: value" header flag
	subtitleFlag string
	titleFlag    string
	platforms    map[string][]launchPath
}

var players = map[string]profile{
	"mpv": {
		offsetFlag:   "--start=",
		refererFlag:  "--referrer=",
		headerFlag:   "--http-header-fields-append=",
		subtitleFlag: "--sub-file=",
		titleFlag:    "--force-media-title=",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mpv"}},
			"linux":   {{path: "mpv"}},
			"windows": {{path: "mpv"}},
		},
	},
	"vlc": {
		offsetFlag:   "--start-time=",
		refererFlag:  "--http-referrer=",
		subtitleFlag: "--input-slave=",
		titleFlag:    "--meta-title=",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "vlc"}, {path: "open-a:VLC"}},
			"linux":   {{path: "vlc"}},
			"windows": {{path: "vlc"}},
		},
	},
	"iina": {
		offsetFlag:   "--mpv-start=",
		refererFlag:  "--mpv-referrer=",
		headerFlag:   "--mpv-http-header-fields-append=",
		subtitleFlag: "--mpv-sub-file=",
		titleFlag:    "--mpv-force-media-title=",
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:IINA", openFlags: []string{"-n"}}},
		},
	},
	"celluloid": {
		offsetFlag:   "--mpv-start=",
		refererFlag:  "--mpv-referrer=",
		subtitleFlag: "--mpv-sub-file=",
		platforms: map[string][]launchPath{
			"linux": {{path: "celluloid"}},
		},
	},
	"potplayer": {
		offsetFlag: "/seek=",
		platforms: map[string][]launchPath{
			"windows": {{path: "PotPlayerMini64.exe"}, {path: "PotPlayerMini.exe"}},
		},
	},
}

// candidatePlayers is the detection order per platform
var candidatePlayers = map[string][]string{
	"darwin":  {"iina", "mpv", "vlc"},
	"linux":   {"mpv", "celluloid", "vlc"},
	"windows": {"mpv", "vlc", "potplayer"},
}

// profileFor looks up a player by command name ("/usr/bin/mpv", "VLC.exe")
func profileFor(command string) (profile, bool) {
	base := filepath.Base(command)
	base = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	p, ok := players[base]
	return p, ok
}

func flag(prefix, value string) []string {
	if prefix == "" || value == "" {
		return nil
	}
	if strings.HasSuffix(prefix, " ") {
		return []string{strings.TrimSuffix(prefix, " "), value}
	}
	return []string{prefix + value}
}

// buildArgs renders the player arguments for a stream, excluding the URL
func buildArgs(p profile, startFlag string, s Stream) []string {
	var args []string

	if s.Start > 0 {
		if startFlag == "" {
			startFlag = p.offsetFlag
		}
		args = append(args, flag(startFlag, fmt.Sprintf("%.0f", s.Start.Round(time.Second).Seconds()))...)
	}

	for name, value := range sortedHeaders(s.Headers) {
		if strings.EqualFold(name, "Referer") && p.refererFlag != "" {
			args = append(args, flag(p.refererFlag, value)...)
			continue
		}
		args = append(args, flag(p.headerFlag, name+": "+value)...)
	}

	for _, sub := range s.Subtitles {
		args = append(args, flag(p.subtitleFlag, sub)...)
	}
	args = append(args, flag(p.titleFlag, s.Title)...)
	return args
}
