package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fpang/photo-gallery/internal/photoapi"
)

// FormatSize formats a byte count as B, KB or MB.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// FormatPhoto renders one listing line: id, dimensions, upload date, tags.
func FormatPhoto(p photoapi.Photo, selected bool) string {
	mark := " "
	if selected {
		mark = "*"
	}
	tags := "(untagged)"
	if len(p.Tags) > 0 {
		tags = strings.Join(p.Tags, ", ")
	}
	uploaded := time.Unix(p.UploadedAt, 0).UTC().Format("2006-01-02")
	return fmt.Sprintf("%s %-12s %5dx%-5d %s  %s", mark, p.ID, p.Width, p.Height, uploaded, tags)
}
