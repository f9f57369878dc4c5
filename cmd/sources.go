package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"anicat/internal/catalog"
	"anicat/internal/media"
	"anicat/internal/ui"
)

var (
	flagHost    string
	flagDubbing string
	flagEpisode string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources <embed-url | id>",
	Short: "Resolve an embed or a catalog episode into stream sources",
	Long: `Resolve stream sources either from an embed URL directly, or from a title's
catalog with --host, --dubbing and --episode. --host and --dubbing may be
omitted when the title has only one choice.`,
	Args: cobra.ExactArgs(1),
	RunE: sourcesRun,
}

func init() {
	sourcesCmd.Flags().StringVar(&flagHost, "host", "", "Embed player label, e.g. Kodik")
	sourcesCmd.Flags().StringVar(&flagDubbing, "dubbing", "", "Dubbing team label")
	sourcesCmd.Flags().StringVarP(&flagEpisode, "episode", "e", "", "Episode number")
}

func sourcesRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	label, sources, err := resolveArg(ctx, args[0])
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("%s: no playable sources", label)
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), sources)
	}
	return ui.NewRenderer(cmd.OutOrStdout()).Sources(label, sources)
}

func isEmbedURL(arg string) bool {
	return strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "//")
}

// resolveArg resolves an embed URL directly, or a title ID through its catalog.
func resolveArg(ctx context.Context, arg string) (string, []media.StreamSource, error) {
	if isEmbedURL(arg) {
		if strings.HasPrefix(arg, "//") {
			arg = "https:" + arg
		}
		if _, ok := svc.registry.FindExtractor(arg); !ok {
			return "", nil, fmt.Errorf("no extractor supports %s", arg)
		}
		return arg, svc.registry.ExtractSources(ctx, arg), nil
	}

	c, err := svc.catalog(ctx, arg)
	if err != nil {
		return "", nil, fmt.Errorf("loading title: %w", err)
	}

	ep, err := findEpisode(c, flagHost, flagDubbing, flagEpisode)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s - Episode %s", c.Name, ep.Number), ep.Sources(ctx, svc.registry), nil
}

// findEpisode walks the catalog by label. An empty host or dubbing is
// accepted only when there is exactly one choice.
func findEpisode(c *catalog.Catalog, host, dubbing, number string) (*catalog.EpisodeNode, error) {
	host, err := onlyOr(host, c.PlayerLabels(), "--host")
	if err != nil {
		return nil, err
	}
	p, ok := c.Player(host).Get()
	if !ok {
		return nil, fmt.Errorf("no player %q (have: %s)", host, strings.Join(c.PlayerLabels(), ", "))
	}

	dubbing, err = onlyOr(dubbing, p.DubberLabels(), "--dubbing")
	if err != nil {
		return nil, err
	}
	d, ok := p.Dubber(dubbing).Get()
	if !ok {
		return nil, fmt.Errorf("no dubbing %q for %s (have: %s)", dubbing, host, strings.Join(p.DubberLabels(), ", "))
	}

	if number == "" {
		return nil, fmt.Errorf("--episode is required")
	}
	ep, ok := d.Episode(number).Get()
	if !ok {
		return nil, fmt.Errorf("no episode %s for %s / %s", number, host, dubbing)
	}
	return ep, nil
}

func onlyOr(value string, labels []string, flag string) (string, error) {
	if value != "" {
		if label, ok := lo.Find(labels, func(l string) bool { return strings.EqualFold(l, value) }); ok {
			return label, nil
		}
		return value, nil
	}
	switch len(labels) {
	case 0:
		return "", fmt.Errorf("title has no playable embeds")
	case 1:
		return labels[0], nil
	default:
		return "", fmt.Errorf("%s is required (have: %s)", flag, strings.Join(labels, ", "))
	}
}
