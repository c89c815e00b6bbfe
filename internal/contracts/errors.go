package contracts

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a pipeline run is requested while
// another run holds the run lock. At most one run executes at a time.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// PackageIncompleteError is the run-level failure raised when no
// indicator clears the viability floor: the run produces no StoryPackage
// and no downstream stage executes. Distinct from "low score": it means
// no sensible story exists this run.
type PackageIncompleteError struct {
	Floor     float64
	BestScore float64
	BestCode  string
}

func (e *PackageIncompleteError) Error() string {
	return fmt.Sprintf("no indicator clears viability floor %.1f (best: %s at %.1f)",
		e.Floor, e.BestCode, e.BestScore)
}

// IsPackageIncomplete reports whether err is a PackageIncompleteError.
func IsPackageIncomplete(err error) bool {
	var pie *PackageIncompleteError
	return errors.As(err, &pie)
}
