package uploads

import "errors"

// Rejection reasons. The messages are shown to the user verbatim.
var (
	ErrNoFilePart      = errors.New("No file part in the request")
	ErrNoFileSelected  = errors.New("No file selected")
	ErrUnsupportedType = errors.New("Unsupported file type. Please upload an image (png, jpg, jpeg, bmp, gif).")
)
