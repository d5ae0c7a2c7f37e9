package normalize

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
)

var inlineAttachmentRe = regexp.MustCompile(`<([-a-zA-Z0-9._ ]+\.([a-zA-Z0-9]+))>`)

// contentTypes maps the file extensions recognized in inline markers
var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"html": "text/html",
	"xml":  "application/xml",
	"json": "application/json",
}

// ContentTypeFor returns the MIME type for a known extension
func ContentTypeFor(ext string) (string, bool) {
	ct, ok := contentTypes[strings.ToLower(ext)]
	return ct, ok
}

// InlineAttachments finds <file.ext> markers left by clients that flatten attachments
func InlineAttachments(text string) []core.Attachment {
	var out []core.Attachment
	seen := make(map[string]bool)
	for _, m := range inlineAttachmentRe.FindAllStringSubmatch(text, -1) {
		filename := strings.TrimSpace(m[1])
		ct, ok := ContentTypeFor(m[2])
		if !ok || filename == "" || seen[filename] {
			continue
		}
		seen[filename] = true
		out = append(out, core.Attachment{Filename: filename, ContentType: ct, Size: 0})
	}
	return out
}
