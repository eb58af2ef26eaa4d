package main

import (
	"fmt"
	"os"

	_ "time/tzdata" // Broadcast timezones on systems without zoneinfo
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage: anikino <command> [flags]

Commands:
  play     resolve an episode and open it in a media player
  serve    run the local HTTP API and background refresher
  version  print version

Run 'anikino <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "play":
		err = runPlay(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("anikino %s\n", Version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
