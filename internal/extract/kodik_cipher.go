package extract

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"

	"anicat/internal/httputil"
	"anicat/internal/media"
)

// kodikShift is the letter rotation Kodik applies before base64 encoding links.
const kodikShift = 18

// manifestExts are link suffixes Kodik sends in clear text.
var manifestExts = []string{".m3u8", ".mpd"}

// rotateLetters shifts ASCII letters by n within their own case.
// Everything else passes through unchanged.
func rotateLetters(s string, n int) string {
	n = ((n % 26) + 26) % 26

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte('A' + (c-'A'+byte(n))%26)
		case c >= 'a' && c <= 'z':
			b.WriteByte('a' + (c-'a'+byte(n))%26)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeBase64 accepts both padded and unpadded standard base64.
func decodeBase64(s string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeLink turns one Kodik link reference into an absolute URL.
func decodeLink(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty link")
	}

	for _, ext := range manifestExts {
		if strings.HasSuffix(ref, ext) {
			return httputil.EnsureHTTPS(ref), nil
		}
	}

	decoded, err := decodeBase64(rotateLetters(ref, kodikShift))
	if err != nil {
		return "", fmt.Errorf("decoding link: %w", err)
	}

	link := httputil.EnsureHTTPS(decoded)
	if _, err := url.Parse(link); err != nil {
		return "", fmt.Errorf("decoded link is not a URL: %w", err)
	}
	return link, nil
}

// formatOf guesses the stream format from the URL path extension.
func formatOf(link string) media.Format {
	p := link
	if u, err := url.Parse(link); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mpd":
		return media.FormatDASH
	case ".mp4":
		return media.FormatMP4
	case ".webm":
		return media.FormatWebM
	default:
		return media.FormatHLS
	}
}
