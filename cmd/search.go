package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"anicat/internal/catalog"
	"anicat/internal/download"
	"anicat/internal/media"
	"anicat/internal/player"
	"anicat/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "List titles matching a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  searchListRun,
}

// searchRun is the default command: anicat <query>
func searchRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if query == "" {
		var err error
		query, err = ui.Input("Search")
		if err != nil {
			return fmt.Errorf("no search query provided")
		}
	}

	debugf("searching for: %s", query)

	results, err := svc.provider.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return pickAndWatch(cmd.Context(), "Select", results)
}

func searchListRun(cmd *cobra.Command, args []string) error {
	results, err := svc.provider.Search(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printResults(cmd.OutOrStdout(), results)
}

// printResults writes one "id<TAB>year<TAB>name" line per result, or JSON.
func printResults(w io.Writer, results []media.SearchResult) error {
	if flagJSON {
		return writeJSON(w, results)
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", r.ID, r.Year, r.Name); err != nil {
			return err
		}
	}
	return nil
}

func formatResult(r media.SearchResult, _ int) string {
	if r.Year > 0 {
		return fmt.Sprintf("%s (%d)", r.Name, r.Year)
	}
	return r.Name
}

// pickAndWatch lets the user choose one of results and starts watching it.
func pickAndWatch(ctx context.Context, prompt string, results []media.SearchResult) error {
	idx, err := ui.Select(prompt, lo.Map(results, formatResult))
	if err != nil {
		return err
	}

	selected := results[idx]
	debugf("selected: %s (ID: %s)", selected.Name, selected.ID)
	return watch(ctx, selected.ID)
}

// pickLabel selects among labels, skipping the picker when there is one choice.
func pickLabel(prompt string, labels []string) (string, error) {
	if len(labels) == 1 {
		return labels[0], nil
	}
	idx, err := ui.Select(prompt, labels)
	if err != nil {
		return "", err
	}
	return labels[idx], nil
}

func episodeLabel(e *catalog.EpisodeNode, _ int) string {
	return "Episode " + e.Number
}

// watch walks player, dubber and episode selection for a title, then plays
// episodes until the user quits.
func watch(ctx context.Context, id string) error {
	c, err := svc.catalog(ctx, id)
	if err != nil {
		return fmt.Errorf("loading title: %w", err)
	}
	if c.Empty() {
		return fmt.Errorf("no playable embeds for %q", c.Name)
	}

	playerLabel, err := pickLabel("Player", c.PlayerLabels())
	if err != nil {
		return err
	}
	p := c.Player(playerLabel).MustGet()

	dubberLabel, err := pickLabel("Dubbing", p.DubberLabels())
	if err != nil {
		return err
	}
	d := p.Dubber(dubberLabel).MustGet()

	idx, err := ui.Select("Episode", lo.Map(d.Episodes, episodeLabel))
	if err != nil {
		return err
	}

	for {
		ep := d.Episodes[idx]
		debugf("episode %s: %s", ep.Number, ep.EmbedURL)

		if err := playEpisode(ctx, c.Name, ep); err != nil {
			if flagJSON || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%v\n", err)
		} else if flagJSON {
			return nil
		}

		next, err := afterEpisode(idx, len(d.Episodes))
		if err != nil || next < 0 {
			return nil
		}
		idx = next
	}
}

// playEpisode resolves an episode and plays or downloads the preferred tier,
// or prints the sources as JSON.
func playEpisode(ctx context.Context, name string, ep *catalog.EpisodeNode) error {
	sources := ep.Sources(ctx, svc.registry)
	if len(sources) == 0 {
		return fmt.Errorf("episode %s: no playable sources", ep.Number)
	}

	if flagJSON {
		return writeJSON(os.Stdout, sources)
	}

	src, ok := player.SelectSource(sources, cfg.PreferredQuality()).Get()
	if !ok {
		return fmt.Errorf("episode %s: no playable sources", ep.Number)
	}
	debugf("stream: %s", src)

	title := fmt.Sprintf("%s - Episode %s", name, ep.Number)

	if flagDownload != "" {
		path, err := download.Download(ctx, src, title, flagDownload, svc.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Downloaded: %s\n", path)
		return nil
	}

	pl := player.New(cfg.Player)
	if !pl.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}

	if err := pl.Play(ctx, src, title); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("playback failed: %w", err)
	}
	return ctx.Err()
}

// afterEpisode asks what to do once playback ends and returns the next
// episode index, or -1 to quit.
func afterEpisode(idx, count int) (int, error) {
	choices := []string{"Replay", "Quit"}
	if idx+1 < count {
		choices = append([]string{"Next episode"}, choices...)
	}
	if idx > 0 {
		choices = append(choices[:len(choices)-1], "Previous episode", "Quit")
	}

	pick, err := ui.Select("Next", choices)
	if err != nil {
		return -1, err
	}

	switch choices[pick] {
	case "Next episode":
		return idx + 1, nil
	case "Previous episode":
		return idx - 1, nil
	case "Replay":
		return idx, nil
	default:
		return -1, nil
	}
}
