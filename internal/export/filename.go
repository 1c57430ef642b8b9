package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Spok95/school-office/internal/models"
)

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// FileName: {Label}_{id}[_Bulk_{n}].{ext}. Для пачки id берётся у первого получателя.
func FileName(kind models.DocumentKind, primary string, count int, ext string) string {
	base := kind.Label() + "_" + cleanName(primary)
	if count > 1 {
		base += fmt.Sprintf("_Bulk_%d", count)
	}
	return sanitizeFileName(base) + "." + strings.TrimPrefix(ext, ".")
}

func sanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = invalidFileRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_.")
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	return s
}
