package pipeline

import "github.com/cockroachdb/errors"

// AssemblyFailed means the stems were produced but could not be laid
// out as the final output files.
var AssemblyFailed = errors.New("assembly_failed")
