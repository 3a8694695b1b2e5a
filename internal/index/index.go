package index

// Manifest records which document produced which post file.
// The orchestrator depends on this interface rather than on *DB.
type Manifest interface {
	UpsertPost(p PostRow) error
	DeletePost(path string) error
	GetChecksum(path string) (string, error)
	ListPosts() ([]PostRow, error)
	Close() error
}

var _ Manifest = (*DB)(nil)
