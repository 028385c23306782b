package resolve

import (
	"strings"

	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
)

type matcher func(files []mvsep.OutputFile, specs []RoleSpec, state *assignment)

// Ordered from most to least reliable. Later matchers only see what
// the earlier ones left unassigned.
var matcherChain = []matcher{
	positionalShortcut,
	typeLabelMatch,
	filenameMatch,
	urlMatch,
	drumKitPositional,
	positionalFallback,
}

// positionalShortcut covers the common unlabelled response: when the
// file count matches the expected roles exactly and the service sent
// no filenames at all, the files arrive in role order.
func positionalShortcut(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	if len(files) != len(specs) {
		return
	}

	for _, file := range files {
		if file.Filename != "" {
			return
		}
		if file.URL == "" {
			return
		}
	}

	for i, spec := range specs {
		state.assign(spec.Role, i)
	}
}

func typeLabelMatch(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	matchRemaining(files, specs, state, func(file mvsep.OutputFile) string {
		return strings.ToLower(file.Type)
	})
}

func filenameMatch(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	matchRemaining(files, specs, state, func(file mvsep.OutputFile) string {
		if file.Filename != "" {
			return strings.ToLower(file.Filename)
		}

		// fall back to the last URL segment as a stand-in filename
		segments := strings.Split(file.URL, "/")
		return strings.ToLower(segments[len(segments)-1])
	})
}

func urlMatch(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	matchRemaining(files, specs, state, func(file mvsep.OutputFile) string {
		return strings.ToLower(file.URL)
	})
}

// drumKitIndex is the drum kit model's output order: kick, snare,
// toms, then cymbals and whatever else the model version appends.
var drumKitIndex = map[Role]int{
	RoleKick:  0,
	RoleSnare: 1,
	RoleToms:  2,
}

// drumKitPositional covers an unlabelled drum kit response. The role
// positions are fixed, so unlike positionalFallback it tolerates
// extra trailing files in the result set.
func drumKitPositional(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	for _, spec := range specs {
		if state.roleAssigned(spec.Role) {
			continue
		}

		index, ok := drumKitIndex[spec.Role]
		if !ok {
			continue
		}

		if index >= len(files) || state.fileUsed(index) || files[index].URL == "" {
			continue
		}

		state.assign(spec.Role, index)
	}
}

// positionalFallback hands the remaining unused files to the remaining
// unassigned roles in order. It is a guess of last resort and only
// fires when the leftover counts line up exactly: with more unused
// files than open roles there is no way to tell which files are the
// stems, and guessing would hand the wrong audio to a role.
func positionalFallback(files []mvsep.OutputFile, specs []RoleSpec, state *assignment) {
	openRoles := 0
	for _, spec := range specs {
		if !state.roleAssigned(spec.Role) {
			openRoles++
		}
	}

	unusedFiles := 0
	for i, file := range files {
		if !state.fileUsed(i) && file.URL != "" {
			unusedFiles++
		}
	}

	if openRoles == 0 || openRoles != unusedFiles {
		return
	}

	for _, spec := range specs {
		if state.roleAssigned(spec.Role) {
			continue
		}

		for i, file := range files {
			if state.fileUsed(i) || file.URL == "" {
				continue
			}

			state.assign(spec.Role, i)
			break
		}
	}
}

func matchRemaining(files []mvsep.OutputFile, specs []RoleSpec, state *assignment, label func(mvsep.OutputFile) string) {
	for _, spec := range specs {
		if state.roleAssigned(spec.Role) {
			continue
		}

		for i, file := range files {
			if state.fileUsed(i) || file.URL == "" {
				continue
			}

			if containsAny(label(file), roleKeywords[spec.Role]) {
				state.assign(spec.Role, i)
				break
			}
		}
	}
}

func containsAny(haystack string, keywords []string) bool {
	if haystack == "" {
		return false
	}

	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}

	return false
}
