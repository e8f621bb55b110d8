package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// Confirm asks a yes/no question and reports whether the answer was yes.
// Anything other than "y" or "yes" declines, including read errors.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/N): ", question)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn().Err(err).Msg("Failed to read input, declining")
		return false
	}

	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

// PromptForToken reads a token from in. Returns an empty string if the user
// enters nothing.
func PromptForToken(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "API token: ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn().Err(err).Msg("Failed to read token")
		return ""
	}
	return strings.TrimSpace(input)
}

// PickFiles opens the native file picker for images. A cancelled dialog
// returns no paths and no error.
func PickFiles() ([]string, error) {
	selected, err := zenity.SelectFileMultiple(
		zenity.Title("Select photos to upload"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"},
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			log.Info().Msg("File picker cancelled")
			return nil, nil
		}
		return nil, fmt.Errorf("file picker failed: %w", err)
	}
	log.Info().Int("count", len(selected)).Msg("Files picked via native dialog")
	return selected, nil
}
