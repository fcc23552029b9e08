package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/roach88/vharness/internal/constraint"
	"github.com/roach88/vharness/internal/suite"
)

// loadSuite parses and compiles the suite at path. On failure it reports
// the error through f and returns an ExitError. The caller must Close the
// compiled suite.
func loadSuite(ctx context.Context, f *OutputFormatter, path string, eval constraint.Evaluator) (*suite.Compiled, error) {
	s, err := suite.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, f.fail(ErrCodeNotFound, "suite not found", err)
		}
		return nil, f.fail(ErrCodeInvalidSuite, "invalid suite", err)
	}
	f.VerboseLog("Loaded suite %q with %d fixture(s)", s.Name, len(s.Fixtures))

	compiled, err := suite.Compile(ctx, s, eval)
	if err != nil {
		return nil, f.fail(ErrCodeCompileFailed, "failed to compile suite", err)
	}
	return compiled, nil
}
