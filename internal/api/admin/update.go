package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
)

// UpdateInfo is the outcome of a version check. The check never fails hard:
// any error is carried in Err and HasUpdate stays false.
type UpdateInfo struct {
	HasUpdate     bool
	LatestVersion string
	DownloadURL   string
	Changelog     string
	Err           error
}

// CheckVersion asks the admin server for the latest released version and
// compares it against the currently running one.
func (c *Client) CheckVersion(ctx context.Context, currentVersion string) UpdateInfo {
	hc := api.NewClient(api.CheckTimeout)
	body, err := api.Do(ctx, hc, http.MethodGet,
		c.cfg.AdminURL("app/version"), api.JSONHeaders(""), nil)
	if err != nil {
		return UpdateInfo{LatestVersion: currentVersion, Err: err}
	}

	root := gjson.ParseBytes(body)
	latest := root.Get("version").String()
	if latest == "" {
		latest = currentVersion
	}

	return UpdateInfo{
		HasUpdate:     versionNewer(currentVersion, latest),
		LatestVersion: latest,
		DownloadURL:   root.Get("download_url").String(),
		Changelog:     root.Get("changelog").String(),
	}
}

// versionNewer reports whether latest is strictly newer than current,
// comparing dotted numeric parts (major, minor, patch). Unparseable
// versions never trigger an update.
func versionNewer(current, latest string) bool {
	cur, ok := versionParts(current)
	if !ok {
		return false
	}
	lat, ok := versionParts(latest)
	if !ok {
		return false
	}
	for i := 0; i < len(cur) || i < len(lat); i++ {
		c, l := 0, 0
		if i < len(cur) {
			c = cur[i]
		}
		if i < len(lat) {
			l = lat[i]
		}
		if l != c {
			return l > c
		}
	}
	return false
}

func versionParts(v string) ([]int, bool) {
	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, len(parts) > 0
}
