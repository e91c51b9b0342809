package metrics

import "errors"

// ErrWriteTextfile is returned when the textfile export cannot be written.
var ErrWriteTextfile = errors.New("metrics textfile write failed")
