package observability

// Recorder receives cart engine counters
type Recorder interface {
	RecordMutation(aggregate, operation string)
	RecordStorageFailure(operation string)
	RecordMirror(success bool)
	RecordDrain(outcome string, lines int)
}

// Fanout forwards every record to each recorder
type Fanout []Recorder

func (f Fanout) RecordMutation(aggregate, operation string) {
	for _, r := range f {
		r.RecordMutation(aggregate, operation)
	}
}

func (f Fanout) RecordStorageFailure(operation string) {
	for _, r := range f {
		r.RecordStorageFailure(operation)
	}
}

func (f Fanout) RecordMirror(success bool) {
	for _, r := range f {
		r.RecordMirror(success)
	}
}

func (f Fanout) RecordDrain(outcome string, lines int) {
	for _, r := range f {
		r.RecordDrain(outcome, lines)
	}
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordMutation(string, string) {}
func (NopRecorder) RecordStorageFailure(string)   {}
func (NopRecorder) RecordMirror(bool)             {}
func (NopRecorder) RecordDrain(string, int)       {}
