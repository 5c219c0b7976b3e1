package file

import "os"

// Exists returns a bool indicating if the specified file exists or not.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDirectory creates the specified directory, with any missing parents,
// if it does not already exist. Directories it creates are readable only by
// their owner.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0700)
}
