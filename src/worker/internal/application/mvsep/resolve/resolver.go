// Package resolve identifies which output file of a finished
// separation job belongs to which stem role. The service does not
// guarantee stable labelling, so identification runs through a chain
// of matchers from most to least reliable and the first match wins.
package resolve

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
)

var MissingOutput = errors.New("missing_output")

type Role string

const (
	RoleVocals Role = "vocals"
	// RoleInstrumental is the complement output of a separation, the
	// mixture minus the extracted stem. The service labels it
	// "instrumental", "accompaniment" or "other" depending on model.
	RoleInstrumental Role = "instrumental"
	RoleDrums        Role = "drums"
	RoleBass         Role = "bass"
	RoleKick         Role = "kick"
	RoleSnare        Role = "snare"
	RoleToms         Role = "toms"
)

var roleKeywords = map[Role][]string{
	RoleVocals:       {"vocal", "voc"},
	RoleInstrumental: {"instrum", "accomp", "other"},
	RoleDrums:        {"drum"},
	RoleBass:         {"bass"},
	RoleKick:         {"kick"},
	RoleSnare:        {"snare"},
	RoleToms:         {"tom"},
}

// RoleSpec names one expected output of a job. Optional roles may be
// absent from the result without failing resolution.
type RoleSpec struct {
	Role     Role
	Optional bool
}

// Resolve maps each expected role to one of the job's output files.
// Every file is assigned to at most one role. An unassigned required
// role fails resolution with MissingOutput.
func Resolve(files []mvsep.OutputFile, specs []RoleSpec) (map[Role]mvsep.OutputFile, error) {
	state := newAssignment()

	for _, match := range matcherChain {
		match(files, specs, state)
	}

	resolved := map[Role]mvsep.OutputFile{}
	missing := []string{}

	for _, spec := range specs {
		index, ok := state.assigned[spec.Role]
		if !ok {
			if !spec.Optional {
				missing = append(missing, string(spec.Role))
			}
			continue
		}

		resolved[spec.Role] = files[index]
	}

	if len(missing) > 0 {
		return nil, cerr.Fields(cerr.F{
			"missing_roles": strings.Join(missing, ", "),
			"file_count":    len(files),
		}).Wrap(mark.Message(MissingOutput, "Expected output files were not found in the job result")).
			Error("Failed to resolve separation outputs")
	}

	return resolved, nil
}

type assignment struct {
	assigned map[Role]int
	used     map[int]bool
}

func newAssignment() *assignment {
	return &assignment{
		assigned: map[Role]int{},
		used:     map[int]bool{},
	}
}

func (a *assignment) assign(role Role, index int) {
	a.assigned[role] = index
	a.used[index] = true
}

func (a *assignment) roleAssigned(role Role) bool {
	_, ok := a.assigned[role]
	return ok
}

func (a *assignment) fileUsed(index int) bool {
	return a.used[index]
}
