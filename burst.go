package megapixels

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// BurstJob tracks one shutter press: Length frames written to a fresh
// directory as 1.dng, 2.dng and so on.
type BurstJob struct {
	ID        uuid.UUID
	Length    int
	Remaining int
	Dir       string
	Started   time.Time
	// Target is the base path handed to post-processing, set once the last
	// frame is written.
	Target string
}

func newBurst(length int, tempRoot string, now time.Time) (*BurstJob, error) {
	if length < 1 {
		return nil, fmt.Errorf("invalid burst length %d", length)
	}
	dir, err := os.MkdirTemp(tempRoot, "megapixels.*")
	if err != nil {
		return nil, fmt.Errorf("could not make capture directory: %w", err)
	}
	return &BurstJob{ID: uuid.New(), Length: length, Remaining: length, Dir: dir, Started: now}, nil
}

// next consumes one frame and returns its sequence number and file path.
func (b *BurstJob) next() (int, string) {
	b.Remaining--
	seq := b.Length - b.Remaining
	return seq, filepath.Join(b.Dir, strconv.Itoa(seq)+".dng")
}

func (b *BurstJob) Done() bool { return b.Remaining <= 0 }

// targetPath is the post-processing base path for a burst finished at t.
func targetPath(picturesDir string, t time.Time) string {
	return filepath.Join(picturesDir, "IMG"+t.Format("20060102150405"))
}
