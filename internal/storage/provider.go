// Package storage defines the documents-directory file abstraction.
package storage

// Provider is the interface for file operations inside one flat documents
// directory. Names are plain file names; anything with a path separator or
// a traversal component is rejected.
type Provider interface {
	// Root returns the absolute directory the provider operates on.
	Root() string
	// List returns the names of regular files whose name ends with suffix.
	List(suffix string) ([]string, error)
	// Exists reports whether a regular file called name is present.
	Exists(name string) bool
	// Read returns the raw bytes of the file called name.
	Read(name string) ([]byte, error)
	// Write atomically replaces the file called name with content.
	Write(name string, content []byte) error
	// Remove deletes the file called name. A missing file is not an error.
	Remove(name string) error
}
