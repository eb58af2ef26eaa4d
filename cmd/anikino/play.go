package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/anikino/internal/domain"
	"github.com/mmcdole/anikino/internal/playback"
	"github.com/mmcdole/anikino/internal/player"
	"github.com/mmcdole/anikino/internal/search"
	"github.com/mmcdole/anikino/internal/tui"
)

var errCancelled = errors.New("cancelled")

type playFlags struct {
	configDir string
	animeID   int
	episode   string
	server    string
	category  string
	refresh   bool
	pick      bool
	noLaunch  bool
}

func parsePlayFlags(args []string) (playFlags, error) {
	var f playFlags
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.StringVar(&f.configDir, "config", "", "directory containing config.yaml")
	fs.IntVar(&f.animeID, "anime", 0, "anime id (MyAnimeList)")
	fs.StringVar(&f.episode, "episode", "", "episode id, number or title (default: resume)")
	fs.StringVar(&f.server, "server", "", "preferred mirror, e.g. hd-1")
	fs.StringVar(&f.category, "category", "", "preferred category: sub or dub")
	fs.BoolVar(&f.refresh, "refresh", false, "refetch metadata and the episode list")
	fs.BoolVar(&f.pick, "pick", false, "choose the episode from a list")
	fs.BoolVar(&f.noLaunch, "no-launch", false, "print the stream URL instead of opening a player")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if f.animeID <= 0 {
		return f, errors.New("-anime is required")
	}
	if f.category != "" {
		if _, err := domain.ParseCategory(f.category); err != nil {
			return f, err
		}
	}
	return f, nil
}

// preferred builds the mirror preference from flags, nil when unset
func (f playFlags) preferred() *domain.EpisodeSourceQuery {
	if f.server == "" && f.category == "" {
		return nil
	}
	category, _ := domain.ParseCategory(f.category)
	return &domain.EpisodeSourceQuery{Server: f.server, Category: category}
}

func runPlay(args []string) error {
	f, err := parsePlayFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	a, err := newApp(f.configDir)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	episodeID, err := chooseEpisode(ctx, a, f, interactive)
	if err != nil {
		if errors.Is(err, errCancelled) {
			return nil
		}
		return err
	}

	req := playback.Request{
		AnimeID:      f.animeID,
		EpisodeID:    episodeID,
		Preferred:    f.preferred(),
		ForceRefresh: f.refresh,
	}

	var ready *playback.Ready
	if interactive {
		ready, err = resolveInteractive(ctx, a, req)
	} else {
		ready, err = resolvePlain(ctx, a, req)
	}
	if err != nil {
		if errors.Is(err, errCancelled) {
			return nil
		}
		return err
	}

	for _, w := range ready.Warnings {
		fmt.Fprintln(os.Stderr, tui.WarnStyle.Render(tui.GlyphWarning+" "+w.Error()))
	}

	title := episodeTitle(ready.Episode)
	fmt.Printf("%s %s via %s\n", tui.SuccessStyle.Render(tui.GlyphDone), title, ready.Query)

	if f.noLaunch {
		fmt.Println(ready.Source.StreamURL)
		return nil
	}

	subtitles := make([]string, 0, len(ready.Source.Subtitles))
	for _, s := range ready.Source.Subtitles {
		subtitles = append(subtitles, s.URL)
	}
	return a.launcher.Launch(player.Stream{
		URL:       ready.Source.StreamURL,
		Title:     title,
		Start:     ready.Resume,
		Headers:   ready.Source.Headers,
		Subtitles: subtitles,
	})
}

// chooseEpisode turns -episode or -pick into a provider episode id. An empty
// result lets the coordinator resume.
func chooseEpisode(ctx context.Context, a *app, f playFlags, interactive bool) (string, error) {
	pick := f.pick && interactive
	if f.episode == "" && !pick {
		return "", nil
	}

	anime, warnings, err := a.coordinator.Episodes(ctx, f.animeID, f.refresh)
	if err != nil {
		return "", err
	}
	for _, w := range warnings {
		a.logger.Warn("episode sync", "kind", w.Kind.String(), "error", w)
	}

	if f.episode != "" {
		ep, ok := search.FindEpisode(anime.Episodes, f.episode)
		if !ok {
			if len(anime.Episodes) == 0 {
				// Nothing listed yet; let the provider judge the raw id
				return f.episode, nil
			}
			return "", fmt.Errorf("no episode matches %q", f.episode)
		}
		return ep.EpisodeID, nil
	}

	if len(anime.Episodes) == 0 {
		return "", nil
	}
	title := fmt.Sprintf("Anime %d", f.animeID)
	if record, err := a.complements.AnimeRecord(ctx, f.animeID, false); err == nil && record.Title != "" {
		title = record.Title
	}
	model, err := tea.NewProgram(tui.NewPickerModel(title, anime.Episodes, anime.LastEpisodeWatchedID), tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("episode picker: %w", err)
	}
	ep, ok := model.(tui.PickerModel).Selected()
	if !ok {
		return "", errCancelled
	}
	return ep.EpisodeID, nil
}

// resolveInteractive shows coordinator progress with a spinner
func resolveInteractive(ctx context.Context, a *app, req playback.Request) (*playback.Ready, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := fmt.Sprintf("Anime %d", req.AnimeID)
	if record, ok := a.store.GetAnimeRecord(req.AnimeID); ok && record.Title != "" {
		title = record.Title
	}

	p := tea.NewProgram(tui.NewProgressModel(title, cancel))
	a.coordinator.Observe(func(_ string, from, to playback.State) {
		p.Send(tui.StateMsg{From: from, To: to})
	})

	go func() {
		ready, err := a.coordinator.Resolve(ctx, req)
		p.Send(tui.DoneMsg{Ready: ready, Err: err})
	}()

	model, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	ready, err := model.(tui.ProgressModel).Result()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil, errCancelled
	}
	return ready, err
}

// resolvePlain prints one line per state for non-terminal output
func resolvePlain(ctx context.Context, a *app, req playback.Request) (*playback.Ready, error) {
	a.coordinator.Observe(func(runID string, _, to playback.State) {
		fmt.Fprintf(os.Stderr, "%s %s\n", tui.DimStyle.Render(runID[:8]), to)
	})
	return a.coordinator.Resolve(ctx, req)
}

func episodeTitle(ep domain.EpisodeRef) string {
	var b strings.Builder
	if ep.Number > 0 {
		fmt.Fprintf(&b, "Episode %d", ep.Number)
	} else {
		b.WriteString(ep.EpisodeID)
	}
	if ep.Title != "" {
		b.WriteString(": " + ep.Title)
	}
	return b.String()
}
