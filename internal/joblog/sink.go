package joblog

import "sync"

// Sink receives log records as a verification runs. Implementations
// decide where lines go: the worker persists them on the job, tests
// capture them, the stateless API discards them.
type Sink interface {
	Emit(code Code, params Params)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(code Code, params Params)

func (f SinkFunc) Emit(code Code, params Params) { f(code, params) }

// NopSink discards every record.
var NopSink Sink = SinkFunc(func(Code, Params) {})

// CaptureSink accumulates records in memory. Safe for concurrent use.
type CaptureSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *CaptureSink) Emit(code Code, params Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Code: code, Params: params})
}

// Records returns a copy of everything emitted so far.
func (s *CaptureSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Codes returns just the emitted codes, in order.
func (s *CaptureSink) Codes() []Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Code, len(s.records))
	for i, r := range s.records {
		out[i] = r.Code
	}
	return out
}

// Has reports whether any record with the given code was emitted.
func (s *CaptureSink) Has(code Code) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Code == code {
			return true
		}
	}
	return false
}

// First returns the first record with the given code.
func (s *CaptureSink) First(code Code) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Code == code {
			return r, true
		}
	}
	return Record{}, false
}
