package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"golang.org/x/term"

	"anicat/internal/catalog"
	"anicat/internal/media"
)

// Palette.
var (
	accent = lipgloss.Color("#cba6f7")
	subtle = lipgloss.Color("#6c7086")
	green  = lipgloss.Color("#a6e3a1")
	yellow = lipgloss.Color("#f9e2af")
)

var (
	rootStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	branchStyle = lipgloss.NewStyle().Foreground(subtle).MarginRight(1)
	playerStyle = lipgloss.NewStyle().Bold(true)
	dubberStyle = lipgloss.NewStyle().Foreground(yellow)
	tierStyle   = lipgloss.NewStyle().Foreground(green).Width(6)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Renderer writes catalogs and sources either as a styled tree or as
// tab-separated lines for scripts.
type Renderer struct {
	w      io.Writer
	styled bool
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer styles output only when w is a terminal.
func NewRenderer(w io.Writer) *Renderer {
	f, ok := w.(*os.File)
	return &Renderer{w: w, styled: ok && IsTerminal(f)}
}

// Plain returns a renderer that always writes tab-separated lines.
func Plain(w io.Writer) *Renderer { return &Renderer{w: w} }

// Styled returns a renderer that always draws trees.
func Styled(w io.Writer) *Renderer { return &Renderer{w: w, styled: true} }

// Catalog prints the Player → Dubber → Episode tree. Plain output has one
// line per episode: player, dubber, episode and embed URL.
func (r *Renderer) Catalog(c *catalog.Catalog) error {
	if !r.styled {
		for _, p := range c.Players {
			for _, d := range p.Dubbers {
				for _, e := range d.Episodes {
					if _, err := fmt.Fprintf(r.w, "%s\t%s\t%s\t%s\n", p.Label, d.Label, e.Number, e.EmbedURL); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	root := newTree(fmt.Sprintf("%s (%d embeds)", c.Name, c.EmbedCount()))
	if c.Empty() {
		root.Child(faintStyle.Render("no playable embeds"))
	}
	for _, p := range c.Players {
		pt := newTree(playerStyle.Render(p.Label))
		for _, d := range p.Dubbers {
			dt := newTree(dubberStyle.Render(d.Label))
			for _, e := range d.Episodes {
				dt.Child(episodeLabel(e))
			}
			pt.Child(dt)
		}
		root.Child(pt)
	}

	_, err := fmt.Fprintln(r.w, root)
	return err
}

// Sources prints resolved sources. Plain output has one line per source:
// quality, format and URL.
func (r *Renderer) Sources(label string, sources []media.StreamSource) error {
	if !r.styled {
		for _, s := range sources {
			if _, err := fmt.Fprintf(r.w, "%d\t%s\t%s\n", int(s.Quality), s.Format, s.URL); err != nil {
				return err
			}
		}
		return nil
	}

	root := newTree(label)
	if len(sources) == 0 {
		root.Child(faintStyle.Render("no playable sources"))
	}
	for _, s := range sources {
		root.Child(tierStyle.Render(s.Quality.String()) + " " + string(s.Format) + " " + faintStyle.Render(s.URL))
	}

	_, err := fmt.Fprintln(r.w, root)
	return err
}

func newTree(root string) *tree.Tree {
	return tree.Root(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(branchStyle).
		RootStyle(rootStyle)
}

func episodeLabel(e *catalog.EpisodeNode) string {
	label := "Episode " + e.Number
	if e.Number == "" {
		label = "Episode ?"
	}
	if st := e.State(); st != catalog.Unresolved {
		label += " " + faintStyle.Render("("+st.String()+")")
	}
	return label
}
