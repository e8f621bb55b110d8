package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-gallery/internal/blobcache"
	"github.com/fpang/photo-gallery/internal/config"
	"github.com/fpang/photo-gallery/internal/gallery"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

// InitSession creates an authenticated gallery session and loads the
// collection. The caller must Close the session.
func InitSession(ctx context.Context, cfg config.Config, opts ...blobcache.Option) (*gallery.Session, error) {
	if cfg.Token == "" {
		return nil, config.ErrNoToken
	}

	client := photoapi.NewClient(cfg.APIURL, cfg.Token)
	if cfg.HandleDir != "" {
		opts = append([]blobcache.Option{blobcache.WithDir(cfg.HandleDir)}, opts...)
	}
	sess := gallery.NewSession(client, opts...)

	if err := sess.Store.Refresh(ctx); err != nil {
		sess.Close()
		return nil, HandleAPIError(err, cfg.TokenSource)
	}

	snap := sess.Store.Snapshot()
	log.Info().
		Str("api", client.BaseURL()).
		Int("photos", len(snap.Photos)).
		Int("tags", len(snap.Tags)).
		Msg("connection successful - gallery loaded")
	return sess, nil
}

