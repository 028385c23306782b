package dummy

import (
	"context"
	"fmt"
	"sync"

	"github.com/tonefield/stem-splitter-be/src/shared/lib/errors/mark"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/mvsep"
)

var _ mvsep.Client = &MVSep{}

// NamedFile is one canned output for a dummy separation job.
type NamedFile struct {
	Name     string
	Contents []byte
}

func NewDummyMVSep() *MVSep {
	return &MVSep{
		Responses:       make(map[mvsep.Algorithm][]NamedFile),
		SubmittedInputs: make(map[mvsep.Algorithm][][]byte),
		jobs:            make(map[string]mvsep.Algorithm),
		files:           make(map[string][]byte),
	}
}

// MVSep plays the remote separation service: every submitted job
// completes immediately with the canned files configured per
// algorithm.
type MVSep struct {
	Unavailable bool
	// FailAlgorithm makes jobs of that algorithm report failure
	FailAlgorithm   mvsep.Algorithm
	Responses       map[mvsep.Algorithm][]NamedFile
	SubmittedInputs map[mvsep.Algorithm][][]byte

	jobs    map[string]mvsep.Algorithm
	files   map[string][]byte
	counter int
	mutex   sync.Mutex
}

func (m *MVSep) AddResponse(algorithm mvsep.Algorithm, files ...NamedFile) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Responses[algorithm] = files
}

func (m *MVSep) Submit(ctx context.Context, request mvsep.SeparationRequest, fileName string, fileContents []byte) (string, error) {
	if m.Unavailable {
		return "", NetworkFailure
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.counter++
	separationHash := fmt.Sprintf("dummy-hash-%d", m.counter)
	m.jobs[separationHash] = request.Algorithm
	m.SubmittedInputs[request.Algorithm] = append(m.SubmittedInputs[request.Algorithm], fileContents)

	return separationHash, nil
}

func (m *MVSep) AwaitCompletion(ctx context.Context, separationHash string) (mvsep.Result, error) {
	if m.Unavailable {
		return mvsep.Result{}, NetworkFailure
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	algorithm, ok := m.jobs[separationHash]
	if !ok {
		return mvsep.Result{}, NotFound
	}

	if m.FailAlgorithm == algorithm {
		return mvsep.Result{}, mark.Message(mvsep.JobFailed, "The separation job failed: simulated failure")
	}

	outputs := mvsep.Result{}
	for _, file := range m.Responses[algorithm] {
		fileURL := fmt.Sprintf("dummy://%s/%s", separationHash, file.Name)
		m.files[fileURL] = file.Contents

		outputs.Files = append(outputs.Files, mvsep.OutputFile{
			URL:      fileURL,
			Filename: file.Name,
		})
	}

	return outputs, nil
}

func (m *MVSep) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	if m.Unavailable {
		return nil, NetworkFailure
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	contents, ok := m.files[fileURL]
	if !ok {
		return nil, NotFound
	}

	return contents, nil
}
