package extract

import (
	"errors"
	"fmt"
)

// ErrWrongExtractor is returned when an extractor is handed a URL it does not accept.
// It signals a programming error in the caller, not an embed-host problem.
var ErrWrongExtractor = errors.New("url not handled by this extractor")

// ContractError carries the extractor and URL of an ErrWrongExtractor.
type ContractError struct {
	Extractor string
	URL       string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Extractor, e.URL, ErrWrongExtractor)
}

func (e *ContractError) Unwrap() error { return ErrWrongExtractor }

// Stage names the extraction step that gave up.
type Stage int

const (
	StageFetchPage Stage = iota
	StageCheckPage
	StageExtractPayload
	StageResolvePath
	StageCallAPI
	StageRetryPath
	StageDecodeLinks
)

func (s Stage) String() string {
	switch s {
	case StageFetchPage:
		return "fetching page"
	case StageCheckPage:
		return "checking page"
	case StageExtractPayload:
		return "extracting payload"
	case StageResolvePath:
		return "resolving api path"
	case StageCallAPI:
		return "calling api"
	case StageRetryPath:
		return "retrying api path"
	case StageDecodeLinks:
		return "decoding links"
	default:
		return "unknown stage"
	}
}

// SoftFailure is an expected extraction failure: markup drift, a missing
// video, an exhausted retry or an unreachable host. It always resolves to
// an empty source list at the registry.
type SoftFailure struct {
	Stage  Stage
	Reason string
	Err    error
}

func (f *SoftFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Stage, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Stage, f.Reason)
}

func (f *SoftFailure) Unwrap() error { return f.Err }

func soft(stage Stage, reason string, err error) *SoftFailure {
	return &SoftFailure{Stage: stage, Reason: reason, Err: err}
}

// IsSoft reports whether err is, or wraps, a SoftFailure.
func IsSoft(err error) bool {
	var sf *SoftFailure
	return errors.As(err, &sf)
}
