package serverjar

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type pufferfishBuild struct {
	Number    uint32 `json:"number"`
	Artifacts []struct {
		DisplayPath  string `json:"displayPath"`
		FileName     string `json:"fileName"`
		RelativePath string `json:"relativePath"`
	} `json:"artifacts"`
}

func (d *Downloader) pufferfish(ctx context.Context, version string) ([]byte, error) {
	job := fmt.Sprintf("%s/job/Pufferfish-%s/lastSuccessfulBuild", d.pufferfishBaseURL, url.PathEscape(version))

	var b pufferfishBuild
	if err := d.getJSON(ctx, job+"/api/json", &b); err != nil {
		return nil, err
	}
	if len(b.Artifacts) == 0 || b.Artifacts[0].RelativePath == "" {
		return nil, fmt.Errorf("pufferfish %s: %w", version, ErrNoArtifacts)
	}

	rel := strings.TrimPrefix(b.Artifacts[0].RelativePath, "/")
	d.logger.Info("downloading server jar", zap.String("jar", Pufferfish.FileName()), zap.Uint32("build", b.Number), zap.String("version", version))
	return d.fetch(ctx, job+"/artifact/"+rel)
}
