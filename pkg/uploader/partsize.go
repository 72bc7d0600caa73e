package uploader

import (
	"errors"
	"fmt"

	"github.com/castkit/uploadd/pkg/objstore"
)

// DefaultPartSize is the part size used when the caller does not choose
// one. 10 MiB keeps the part count low for typical media files while a
// lost part costs little to resend.
const DefaultPartSize = 10 * 1024 * 1024

var errInvalidPartSize = errors.New("uploader: part size must be positive")

// partRange describes the byte slice of the source that one part covers.
type partRange struct {
	number int32
	offset int64
	length int64
}

// planParts splits size bytes into sequential part ranges. Every part is
// exactly partSize long except the last, which takes the remainder. A
// zero-length source still yields one empty part, since a multipart
// upload cannot complete with no parts at all.
func planParts(size int64, partSize int64) ([]partRange, error) {
	if partSize <= 0 {
		return nil, errInvalidPartSize
	}

	count := size / partSize
	if size%partSize > 0 || count == 0 {
		count++
	}
	if count > objstore.MaxMultipartParts {
		return nil, fmt.Errorf("uploader: %d bytes at part size %d need %d parts, exceeding the limit of %d", size, partSize, count, objstore.MaxMultipartParts)
	}

	parts := make([]partRange, 0, count)
	for i := int64(0); i < count; i++ {
		offset := i * partSize
		length := partSize
		if offset+length > size {
			length = size - offset
		}
		parts = append(parts, partRange{
			number: int32(i + 1),
			offset: offset,
			length: length,
		})
	}
	return parts, nil
}
