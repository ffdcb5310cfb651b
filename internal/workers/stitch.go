package workers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/storymill/storymill/internal/models"
)

// StitchWorker concatenates a project's rendered clips into one video using
// ffmpeg's concat demuxer. Clips must already live in media storage; remote
// URLs are not fetched.
type StitchWorker struct {
	deps      Deps
	mediaRoot string
}

// NewStitchWorker creates the video-stitching processor. mediaRoot is the
// filesystem directory behind /media/ URLs.
func NewStitchWorker(deps Deps, mediaRoot string) *StitchWorker {
	return &StitchWorker{deps: deps, mediaRoot: mediaRoot}
}

func (w *StitchWorker) Kind() models.JobKind {
	return models.KindVideoStitching
}

func (w *StitchWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.StitchInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	paths := make([]string, 0, len(input.VideoURLs))
	for _, url := range input.VideoURLs {
		path, err := w.localPath(url)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("clip not found in media storage: %s", url)
		}
		paths = append(paths, path)
	}
	report(30)

	workDir, err := os.MkdirTemp("", "storymill-stitch-")
	if err != nil {
		return nil, fmt.Errorf("failed to create stitch workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	listPath := filepath.Join(workDir, "clips.txt")
	var list strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write concat list: %w", err)
	}

	outPath := filepath.Join(workDir, "stitched.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(string(output)))
	}
	report(80)

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stitched video: %w", err)
	}

	videoID := models.NewEntityID()
	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "stitched", videoID+".mp4", data)
	if err != nil {
		return nil, fmt.Errorf("failed to save stitched video: %w", err)
	}

	video := &models.Video{
		ID:        videoID,
		ProjectID: input.ProjectID,
		MediaURL:  mediaURL,
		Stitched:  true,
	}
	if err := w.deps.Entities.SaveVideo(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to save stitched video record: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"video_id":  video.ID,
		"video_url": mediaURL,
		"clips":     len(paths),
	}, nil
}

// localPath maps a /media/ URL back to its path under the media root.
func (w *StitchWorker) localPath(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, "/media/")
	if !ok {
		return "", fmt.Errorf("unsupported clip URL %q: only /media/ URLs can be stitched", url)
	}
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid clip URL: %q", url)
	}
	return filepath.Join(w.mediaRoot, filepath.FromSlash(rel)), nil
}
