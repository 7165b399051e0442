package storage

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type ArtifactKind string

const (
	ArtifactFull    ArtifactKind = "full"
	ArtifactPreview ArtifactKind = "preview"
)

// NewKey builds a storage key like full/<jobID>_<unixms>_<ulid>.mp3. The ULID
// suffix keeps keys collision-free and sortable within a job.
func NewKey(jobID string, kind ArtifactKind) string {
	return fmt.Sprintf("%s/%s_%d_%s.mp3", kind, jobID, time.Now().UnixMilli(), ulid.Make())
}
