// Package download saves streams to disk with ffmpeg.
// ffmpeg runs via exec.CommandContext with an explicit argument slice, and
// output paths are validated against directory traversal.
package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"anicat/internal/httputil"
	"anicat/internal/logging"
	"anicat/internal/media"
)

// Download copies src into outputDir as "<title>.<ext>" and returns the file path.
func Download(ctx context.Context, src media.StreamSource, title, outputDir string, log logrus.FieldLogger) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outputPath, err := httputil.SafeDownloadPath(absDir, title+extension(src.Format))
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(src, title, outputPath)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logging.OrStandard(log).WithFields(logrus.Fields{
		"quality": src.Quality.String(),
		"format":  src.Format,
		"path":    outputPath,
	}).Info("downloading")

	if err := cmd.Run(); err != nil {
		// Clean up partial download on failure
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}

	return outputPath, nil
}

// extension picks the container. Progressive MP4 keeps its container;
// segmented streams are remuxed into Matroska.
func extension(f media.Format) string {
	switch f {
	case media.FormatMP4:
		return ".mp4"
	case media.FormatWebM:
		return ".webm"
	default:
		return ".mkv"
	}
}

// ffmpegArgs copies the streams without re-encoding. Source headers go
// through -headers, which must precede the input.
func ffmpegArgs(src media.StreamSource, title, outputPath string) []string {
	args := []string{"-y", "-loglevel", "warning", "-stats"}

	if len(src.Headers) > 0 {
		keys := lo.Keys(src.Headers)
		slices.Sort(keys)

		var b strings.Builder
		for _, k := range keys {
			b.WriteString(k + ": " + src.Headers[k] + "\r\n")
		}
		args = append(args, "-headers", b.String())
	}

	return append(args,
		"-i", src.URL,
		"-c", "copy",
		"-metadata", "title="+title,
		outputPath,
	)
}
