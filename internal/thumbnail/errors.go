package thumbnail

import "fmt"

// Stage names the step of an extraction that failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageProbe  Stage = "probe"
	StageFrame  Stage = "frame"
	StageEncode Stage = "encode"
)

// DecodeError reports a video that could not be turned into a poster image.
type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("thumbnail %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
