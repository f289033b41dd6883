package serverjar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

type paperVersion struct {
	Version string   `json:"version"`
	Builds  []uint32 `json:"builds"`
}

type paperBuild struct {
	Build     uint32 `json:"build"`
	Downloads map[string]struct {
		Name   string `json:"name"`
		SHA256 string `json:"sha256"`
	} `json:"downloads"`
}

func (d *Downloader) paper(ctx context.Context, version string) ([]byte, error) {
	v := url.PathEscape(version)

	var pv paperVersion
	if err := d.getJSON(ctx, fmt.Sprintf("%s/versions/%s", d.paperBaseURL, v), &pv); err != nil {
		return nil, err
	}
	if len(pv.Builds) == 0 {
		return nil, fmt.Errorf("paper %s: %w", version, ErrNoArtifacts)
	}
	latest := pv.Builds[0]
	for _, b := range pv.Builds[1:] {
		if b > latest {
			latest = b
		}
	}

	var pb paperBuild
	if err := d.getJSON(ctx, fmt.Sprintf("%s/versions/%s/builds/%d", d.paperBaseURL, v, latest), &pb); err != nil {
		return nil, err
	}
	app, ok := pb.Downloads["application"]
	if !ok || app.Name == "" {
		return nil, fmt.Errorf("paper %s build %d: %w", version, latest, ErrNoArtifacts)
	}

	d.logger.Info("downloading server jar", zap.String("jar", Paper.FileName()), zap.Uint32("build", latest), zap.String("version", version))
	return d.fetch(ctx, fmt.Sprintf("%s/versions/%s/builds/%d/downloads/%s", d.paperBaseURL, v, latest, url.PathEscape(app.Name)))
}

func (d *Downloader) getJSON(ctx context.Context, u string, out any) error {
	resp, err := d.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", u, ErrUnsupportedVersion)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(u, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
