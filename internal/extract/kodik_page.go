package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/mo"
)

const (
	notFoundMarker    = `<div class="message">Видео не найдено</div>`
	serverErrorMarker = "An unhandled lowlevel error occurred"
)

var (
	reDomain    = regexp.MustCompile(`var\s*domain\s+=\s+['"](.*?)['"];`)
	reDSign     = regexp.MustCompile(`var\s*d_sign\s+=\s+['"](.*?)['"];`)
	rePD        = regexp.MustCompile(`var\s*pd\s+=\s+['"](.*?)['"];`)
	rePDSign    = regexp.MustCompile(`var\s*pd_sign\s+=\s+['"](.*?)['"];`)
	reRef       = regexp.MustCompile(`var\s*ref\s+=\s+['"](.*?)['"];`)
	reRefSign   = regexp.MustCompile(`var\s*ref_sign\s+=\s+['"](.*?)['"];`)
	reVideoType = regexp.MustCompile(`videoInfo\.type\s*=\s*['"](.*?)['"];`)
	reVideoHash = regexp.MustCompile(`videoInfo\.hash\s*=\s*['"](.*?)['"];`)
	reVideoID   = regexp.MustCompile(`videoInfo\.id\s*=\s*['"](.*?)['"];`)

	reAPIPath = regexp.MustCompile(`\$\.ajax\([^>]+,url:\s*atob\(["']([^"']+)["']\)`)
)

// kodikPayload holds the signed page values the API call needs.
type kodikPayload struct {
	Domain  string
	DSign   string
	PD      string
	PDSign  string
	Ref     string
	RefSign string
	Type    string
	Hash    string
	ID      string
}

// form renders the payload as the API request body.
func (p kodikPayload) form() url.Values {
	return url.Values{
		"d":              {p.Domain},
		"d_sign":         {p.DSign},
		"pd":             {p.PD},
		"pd_sign":        {p.PDSign},
		"ref":            {p.Ref},
		"ref_sign":       {p.RefSign},
		"type":           {p.Type},
		"hash":           {p.Hash},
		"id":             {p.ID},
		"bad_user":       {"false"},
		"info":           {"{}"},
		"cdn_is_working": {"true"},
	}
}

// firstGroup returns the first capture of re in s, if re matches.
func firstGroup(re *regexp.Regexp, s string) mo.Option[string] {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return mo.None[string]()
	}
	return mo.Some(m[1])
}

func findDomain(page string) mo.Option[string]    { return firstGroup(reDomain, page) }
func findDSign(page string) mo.Option[string]     { return firstGroup(reDSign, page) }
func findPD(page string) mo.Option[string]        { return firstGroup(rePD, page) }
func findPDSign(page string) mo.Option[string]    { return firstGroup(rePDSign, page) }
func findRef(page string) mo.Option[string]       { return firstGroup(reRef, page) }
func findRefSign(page string) mo.Option[string]   { return firstGroup(reRefSign, page) }
func findVideoType(page string) mo.Option[string] { return firstGroup(reVideoType, page) }
func findVideoHash(page string) mo.Option[string] { return firstGroup(reVideoHash, page) }
func findVideoID(page string) mo.Option[string]   { return firstGroup(reVideoID, page) }

// firstPresent returns the first present result, calling finders in order.
func firstPresent(finders ...func() mo.Option[string]) mo.Option[string] {
	for _, find := range finders {
		if o := find(); o.IsPresent() {
			return o
		}
	}
	return mo.None[string]()
}

// nonEmpty narrows o to values that are not blank.
func nonEmpty(o mo.Option[string]) mo.Option[string] {
	v, ok := o.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return mo.None[string]()
	}
	return o
}

// findPayload extracts every signed value from the page. It returns the
// name of the first missing value when the page does not carry them all.
func findPayload(page string) (kodikPayload, string, bool) {
	var p kodikPayload
	fields := []struct {
		name string
		opt  mo.Option[string]
		dst  *string
	}{
		{"domain", findDomain(page), &p.Domain},
		{"d_sign", findDSign(page), &p.DSign},
		{"pd", findPD(page), &p.PD},
		{"pd_sign", findPDSign(page), &p.PDSign},
		{"ref", findRef(page), &p.Ref},
		{"ref_sign", findRefSign(page), &p.RefSign},
		{"videoInfo.type", nonEmpty(findVideoType(page)), &p.Type},
		{"videoInfo.hash", nonEmpty(findVideoHash(page)), &p.Hash},
		{"videoInfo.id", nonEmpty(findVideoID(page)), &p.ID},
	}

	for _, f := range fields {
		v, ok := f.opt.Get()
		if !ok {
			return kodikPayload{}, f.name, false
		}
		*f.dst = v
	}
	return p, "", true
}

// findScriptPath locates the player bundle referenced by the page.
func findScriptPath(page string) mo.Option[string] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return mo.None[string]()
	}

	var found string
	doc.Find(`script[src]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.HasPrefix(src, "/assets/js/app.") {
			found = src
			return false
		}
		return true
	})
	if found == "" {
		return mo.None[string]()
	}
	return mo.Some(found)
}

// findAPIPath decodes the API path embedded in the player bundle.
func findAPIPath(script string) mo.Option[string] {
	encoded, ok := firstGroup(reAPIPath, script).Get()
	if !ok {
		return mo.None[string]()
	}
	decoded, err := decodeBase64(encoded)
	if err != nil || decoded == "" {
		return mo.None[string]()
	}
	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}
	return mo.Some(decoded)
}

// isNotFound reports whether the page is Kodik's "video not found" stub.
func isNotFound(page string) bool {
	return strings.Contains(page, notFoundMarker)
}

// isServerError reports Kodik's low-level error page.
func isServerError(status int, page string) bool {
	return status == 500 && strings.Contains(page, serverErrorMarker)
}
