package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-gallery/internal/config"
	"github.com/fpang/photo-gallery/internal/photoapi"
)

var (
	// ErrLoggedOut is returned after a rejected stored token has been discarded.
	ErrLoggedOut = errors.New("session expired; stored token discarded, run `gallery login`")

	// ErrTokenRejected is returned when a token given by flag or
	// environment is refused. Nothing on disk is touched.
	ErrTokenRejected = errors.New("API token rejected")
)

// HandleAPIError maps service errors to user-facing ones. On an
// unauthorized response the credential file is cleared only if src says
// the rejected token was read from it.
func HandleAPIError(err error, src config.TokenSource) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, photoapi.ErrUnauthorized):
		log.Warn().Err(err).Str("tokenSource", string(src)).Msg("Token rejected by photo service")
		if src != config.TokenFromFile {
			return fmt.Errorf("%w (from %s): %w", ErrTokenRejected, src, err)
		}
		if clearErr := config.ClearToken(); clearErr != nil {
			log.Error().Err(clearErr).Msg("Failed to clear stored token")
		}
		return fmt.Errorf("%w: %w", ErrLoggedOut, err)
	case errors.Is(err, photoapi.ErrNotFound):
		return fmt.Errorf("photo no longer exists, refresh and try again: %w", err)
	default:
		return err
	}
}
