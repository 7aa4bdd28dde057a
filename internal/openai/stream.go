package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// doneSentinel terminates a stream; everything buffered after it is
// discarded.
const doneSentinel = "[DONE]"

var eventSeparator = []byte("\n\n")

// streamChunk is one JSON payload of a streaming response. Only the
// first choice's delta content matters.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeStream reads an OpenAI-style event stream and calls emit for
// every text delta, in arrival order. It returns the concatenation of
// all deltas, trimmed of surrounding whitespace.
//
// Events are blocks of lines separated by a blank line; only lines
// prefixed "data:" carry payloads. A payload is either the [DONE]
// sentinel or a JSON chunk. Malformed JSON payloads are skipped so one
// bad chunk cannot kill an otherwise healthy stream. Reads may split
// events at arbitrary byte boundaries, so the tail of the buffer that
// has no terminating blank line yet is carried over to the next read.
func DecodeStream(r io.Reader, emit func(delta string)) (string, error) {
	var text strings.Builder
	var buffer []byte
	chunk := make([]byte, 4096)

	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			buffer = append(buffer, chunk[:n]...)

			events := bytes.Split(buffer, eventSeparator)
			for _, event := range events[:len(events)-1] {
				if decodeEvent(event, emit, &text) {
					return strings.TrimSpace(text.String()), nil
				}
			}
			// The last element is either empty or a partial event;
			// keep it for the next read.
			buffer = append(buffer[:0], events[len(events)-1]...)
		}

		if readErr == io.EOF {
			// A final event may arrive without its trailing blank line.
			decodeEvent(buffer, emit, &text)
			return strings.TrimSpace(text.String()), nil
		}
		if readErr != nil {
			return strings.TrimSpace(text.String()), fmt.Errorf("error reading stream: %w", readErr)
		}
	}
}

// decodeEvent processes every data: line of one event and reports
// whether the [DONE] sentinel was seen.
func decodeEvent(event []byte, emit func(delta string), text *strings.Builder) bool {
	for _, line := range bytes.Split(event, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}

		payload := strings.TrimSpace(string(line[len("data:"):]))
		if payload == "" {
			continue
		}
		if payload == doneSentinel {
			return true
		}

		var parsed streamChunk
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			// Malformed chunks are dropped; the stream continues.
			continue
		}

		if len(parsed.Choices) > 0 {
			if delta := parsed.Choices[0].Delta.Content; delta != "" {
				text.WriteString(delta)
				emit(delta)
			}
		}
	}
	return false
}
