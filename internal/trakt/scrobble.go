// Reelsync - Media Library Sync and Scrobble Engine for trakt.tv
// Copyright 2026 James Fairbairn (jfairbairn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jfairbairn/reelsync

package trakt

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jfairbairn/reelsync/internal/models"
)

// StartScrobble reports that playback of the item has started.
func (c *Client) StartScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return c.scrobble(ctx, "/scrobble/start", item, progress)
}

// PauseScrobble reports that playback of the item has paused at the
// given progress.
func (c *Client) PauseScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return c.scrobble(ctx, "/scrobble/pause", item, progress)
}

// StopScrobble reports that playback of the item has finished. When the
// remote accepts the progress as a completed watch, the returned action
// is ActionScrobble and the item has been committed to watched history
// on the remote side.
func (c *Client) StopScrobble(ctx context.Context, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	return c.scrobble(ctx, "/scrobble/stop", item, progress)
}

// scrobble sends one scrobble signal. Signals are not retried; a stale
// replay after playback has moved on would report a wrong position.
func (c *Client) scrobble(ctx context.Context, endpoint string, item models.MediaIdentity, progress float64) (*ScrobbleResult, error) {
	payload := scrobbleRequest{
		Movie:      toWireMovie(item),
		Progress:   progress,
		AppVersion: c.appVersion,
		AppDate:    c.appDate,
	}

	var resp scrobbleResponse
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &resp); err != nil {
		return nil, fmt.Errorf("scrobble %s: %w", endpoint, err)
	}

	result := &ScrobbleResult{
		Action:   resp.Action,
		Progress: resp.Progress,
	}
	if resp.Movie != nil {
		id := toIdentity(*resp.Movie)
		result.Item = &id
	}
	return result, nil
}
