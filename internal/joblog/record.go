package joblog

import (
	"bytes"
	"encoding/json"
)

// Params carries the structured values for one log line. Keys are the
// snake_case parameter names clients key their translations on.
type Params map[string]any

// Record is one emitted log line before persistence.
type Record struct {
	Code   Code
	Params Params
}

// Message renders the record as its canonical JSON form. Params are
// omitted entirely when empty and serialized with stable (sorted) keys
// so the same record always produces the same line.
func (r Record) Message() string {
	payload := struct {
		Code   Code   `json:"code"`
		Params Params `json:"params,omitempty"`
	}{Code: r.Code, Params: r.Params}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		// Params are plain scalars in practice; fall back to code only.
		return `{"code":"` + string(r.Code) + `"}`
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// ParseMessage decodes a persisted log line back into a record. Lines
// that are not JSON or lack a code return ok=false.
func ParseMessage(message string) (Record, bool) {
	var payload struct {
		Code   Code   `json:"code"`
		Params Params `json:"params"`
	}
	if err := json.Unmarshal([]byte(message), &payload); err != nil || payload.Code == "" {
		return Record{}, false
	}
	return Record{Code: payload.Code, Params: payload.Params}, true
}
