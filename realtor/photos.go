package realtor

import (
	"path"
	"strings"
)

// cdnSizeSuffix selects the size/quality variant served by the listing CDN.
// The trailing .jpg keeps the derived filename inside the image extension set
// the asset store recognizes.
const cdnSizeSuffix = "-w480_h360_x2.webp?w=1080&q=75.jpg"

// rewritePhotoURL swaps the plain .jpg for the qualified CDN variant.
func rewritePhotoURL(href string) string {
	if href == "" {
		return ""
	}
	return strings.ReplaceAll(href, ".jpg", cdnSizeSuffix)
}

// photoFilename is the last path segment of the rewritten URL, query string
// included, matching how the remote store names uploaded assets.
func photoFilename(href string) string {
	if href == "" {
		return ""
	}
	return path.Base(href)
}
