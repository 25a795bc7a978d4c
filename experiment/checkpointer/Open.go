package checkpointer

import "fmt"

// Backend describes the different Store backends that are available
type Backend string

// Available Store backends
const (
	File Backend = "file"
	Bolt Backend = "bolt"
)

// Open returns a Store of the given backend saving to path
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case File:
		return NewFileStore(path), nil
	case Bolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("open: unknown checkpoint backend %q", backend)
	}
}
