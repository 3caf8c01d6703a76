package blob

import (
	"fmt"
	"path"
	"strings"

	"github.com/zeebo/errs"
)

// ErrForeignLocator is returned when a locator names another bucket. The
// delete path only removes objects from the store's own bucket; legacy
// objects are read-only through it.
var ErrForeignLocator = errs.Class("foreign locator")

// Locators follow the public URL pattern <base>/<bucket>/<object path>.

func publicURL(base, bucket, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(objectPath, "/")
}

// objectPath maps a locator back to the object path inside bucket. A
// locator without a URL scheme is taken as a bare path. A URL under any
// other base or bucket is rejected.
func objectPath(base, bucket, locator string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/" + bucket + "/"
	if strings.HasPrefix(locator, prefix) {
		return locator[len(prefix):], nil
	}
	if strings.Contains(locator, "://") {
		return "", ErrForeignLocator.Wrap(fmt.Errorf("%s is not in bucket %s", locator, bucket))
	}
	return strings.TrimLeft(locator, "/"), nil
}

// listPrefix normalizes a folder to "folder/" (or "" for the bucket root).
func listPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// rawName is the object path relative to the listed folder.
func rawName(prefix, key string) string {
	return strings.TrimPrefix(key, prefix)
}

// UploadPath joins a prefix and a file name into an object path.
func UploadPath(prefix, fileName string) string {
	return path.Join(strings.Trim(prefix, "/"), fileName)
}
