package subtitles

import (
	"fmt"

	"subburn/internal/fileutil"
)

// TranslatedSuffix is inserted before the extension of translated subtitle files.
const TranslatedSuffix = "_translated"

// WriteLines writes doc to path as UTF-8, replacing any existing file atomically.
func WriteLines(path string, doc Document) error {
	if err := fileutil.WriteAtomic(path, []byte(doc.Text()), 0o644); err != nil {
		return fmt.Errorf("write subtitle file %s: %w", path, err)
	}
	return nil
}

// TranslatedPath derives the default output path for a translated subtitle:
// "x.vtt" becomes "x_translated.vtt".
func TranslatedPath(inputPath string) string {
	return fileutil.InsertSuffix(inputPath, TranslatedSuffix)
}
