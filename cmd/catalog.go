package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"anicat/internal/catalog"
	"anicat/internal/ui"
)

var flagRefresh bool

var catalogCmd = &cobra.Command{
	Use:   "catalog <id>",
	Short: "Show a title's embeds grouped by player, dubbing and episode",
	Args:  cobra.ExactArgs(1),
	RunE:  catalogRun,
}

func init() {
	catalogCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Drop the cached title and fetch it again")
}

type catalogView struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Players []playerView `json:"players"`
}

type playerView struct {
	Label   string       `json:"label"`
	Dubbers []dubberView `json:"dubbers"`
}

type dubberView struct {
	Label    string        `json:"label"`
	Episodes []episodeView `json:"episodes"`
}

type episodeView struct {
	Number   string `json:"number"`
	EmbedURL string `json:"embed_url"`
}

func toCatalogView(c *catalog.Catalog) catalogView {
	return catalogView{
		ID:   c.TitleID,
		Name: c.Name,
		Players: lo.Map(c.Players, func(p *catalog.PlayerNode, _ int) playerView {
			return playerView{
				Label: p.Label,
				Dubbers: lo.Map(p.Dubbers, func(d *catalog.DubberNode, _ int) dubberView {
					return dubberView{
						Label: d.Label,
						Episodes: lo.Map(d.Episodes, func(e *catalog.EpisodeNode, _ int) episodeView {
							return episodeView{Number: e.Number, EmbedURL: e.EmbedURL}
						}),
					}
				}),
			}
		}),
	}
}

func catalogRun(cmd *cobra.Command, args []string) error {
	if flagRefresh {
		svc.titles.Invalidate(args[0])
	}

	c, err := svc.catalog(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading title: %w", err)
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), toCatalogView(c))
	}
	return ui.NewRenderer(cmd.OutOrStdout()).Catalog(c)
}
