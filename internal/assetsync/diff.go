package assetsync

import (
	"sort"
	"strings"

	"github.com/yourorg/listing-harvester/realtor"
)

// Diff is the work needed to make the remote store match the current photo
// set. Computed fresh each run, never persisted.
type Diff struct {
	ToUpload []realtor.PhotoAsset
	ToDelete []string
}

func (d Diff) Empty() bool { return len(d.ToUpload) == 0 && len(d.ToDelete) == 0 }

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

func isImage(name string) bool {
	lower := strings.ToLower(name)
	i := strings.LastIndex(lower, ".")
	if i < 0 {
		return false
	}
	_, ok := imageExtensions[lower[i:]]
	return ok
}

// Reconcile computes the upload/delete sets by filename. Matching is by
// basename, not full URL, so re-harvesting an unchanged listing is a no-op.
// Non-image files in the remote inventory are ignored entirely, never deleted.
func Reconcile(remote []string, current []realtor.PhotoAsset) Diff {
	remoteImages := make(map[string]struct{}, len(remote))
	for _, name := range remote {
		if isImage(name) {
			remoteImages[name] = struct{}{}
		}
	}

	currentNames := make(map[string]struct{}, len(current))
	var diff Diff
	for _, asset := range current {
		if asset.Filename == "" {
			continue
		}
		if _, seen := currentNames[asset.Filename]; seen {
			continue
		}
		currentNames[asset.Filename] = struct{}{}
		if _, ok := remoteImages[asset.Filename]; !ok {
			diff.ToUpload = append(diff.ToUpload, asset)
		}
	}

	for name := range remoteImages {
		if _, ok := currentNames[name]; !ok {
			diff.ToDelete = append(diff.ToDelete, name)
		}
	}

	sort.Slice(diff.ToUpload, func(i, j int) bool { return diff.ToUpload[i].Filename < diff.ToUpload[j].Filename })
	sort.Strings(diff.ToDelete)
	return diff
}
