package openai

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

// chunkReader feeds data in fixed-size chunks to exercise event
// reassembly across read boundaries.
type chunkReader struct {
	data []byte
	pos  int
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func event(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

func TestDecodeStream(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		expected       string
		expectedDeltas []string
	}{
		{
			name:           "Simple two deltas",
			input:          event("He") + event("llo") + "data: [DONE]\n\n",
			expected:       "Hello",
			expectedDeltas: []string{"He", "llo"},
		},
		{
			name:           "Result is trimmed but deltas are raw",
			input:          event(" Hello") + event(" world ") + "data: [DONE]\n\n",
			expected:       "Hello world",
			expectedDeltas: []string{" Hello", " world "},
		},
		{
			name:           "Malformed JSON is skipped",
			input:          event("A") + "data: {not json}\n\n" + event("B") + "data: [DONE]\n\n",
			expected:       "AB",
			expectedDeltas: []string{"A", "B"},
		},
		{
			name:           "Done stops processing remaining events",
			input:          event("keep") + "data: [DONE]\n\n" + event("dropped"),
			expected:       "keep",
			expectedDeltas: []string{"keep"},
		},
		{
			name:           "Empty data line ignored",
			input:          "data:\n\n" + event("x") + "data: [DONE]\n\n",
			expected:       "x",
			expectedDeltas: []string{"x"},
		},
		{
			name:     "No data lines yields empty text",
			input:    ": comment\n\nevent: noise\n\n",
			expected: "",
		},
		{
			name:     "Only malformed payloads yields empty text",
			input:    "data: {]\n\ndata: also bad\n\n",
			expected: "",
		},
		{
			name:           "Missing delta content contributes nothing",
			input:          "data: {\"choices\":[{\"delta\":{}}]}\n\n" + event("ok") + "data: [DONE]\n\n",
			expected:       "ok",
			expectedDeltas: []string{"ok"},
		},
		{
			name:           "No prefix lines within event are skipped",
			input:          "id: 1\ndata: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\nretry: 100\n\ndata: [DONE]\n\n",
			expected:       "hi",
			expectedDeltas: []string{"hi"},
		},
		{
			name:           "CRLF line endings",
			input:          "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\r\n\ndata: [DONE]\r\n\n",
			expected:       "hi",
			expectedDeltas: []string{"hi"},
		},
		{
			name:           "Trailing event without blank line",
			input:          event("a") + "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}",
			expected:       "ab",
			expectedDeltas: []string{"a", "b"},
		},
		{
			name:           "Multibyte UTF-8 content",
			input:          event("héllo ") + event("wörld 🌍") + "data: [DONE]\n\n",
			expected:       "héllo wörld 🌍",
			expectedDeltas: []string{"héllo ", "wörld 🌍"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deltas []string
			result, err := DecodeStream(strings.NewReader(tt.input), func(delta string) {
				deltas = append(deltas, delta)
			})
			if err != nil {
				t.Fatalf("DecodeStream failed: %v", err)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
			if tt.expectedDeltas != nil {
				if len(deltas) != len(tt.expectedDeltas) {
					t.Fatalf("Expected deltas %v, got %v", tt.expectedDeltas, deltas)
				}
				for i := range deltas {
					if deltas[i] != tt.expectedDeltas[i] {
						t.Errorf("Delta %d: expected %q, got %q", i, tt.expectedDeltas[i], deltas[i])
					}
				}
			}
		})
	}
}

func TestDecodeStreamArbitraryChunking(t *testing.T) {
	// The reassembled text must not depend on where the network splits
	// the byte stream, including mid-UTF-8-sequence and mid-payload.
	input := event("Straße ") + event("日本語 ") + "data: {bad}\n\n" + event("done✓") + "data: [DONE]\n\n"
	expected := "Straße 日本語 done✓"

	for _, size := range []int{1, 2, 3, 5, 7, 11, 16, 64, 1024} {
		t.Run(fmt.Sprintf("ChunkSize%d", size), func(t *testing.T) {
			var concat strings.Builder
			result, err := DecodeStream(&chunkReader{data: []byte(input), size: size}, func(delta string) {
				concat.WriteString(delta)
			})
			if err != nil {
				t.Fatalf("DecodeStream failed: %v", err)
			}
			if result != expected {
				t.Errorf("Expected %q, got %q", expected, result)
			}
			if strings.TrimSpace(concat.String()) != expected {
				t.Errorf("Delta concatenation %q does not match final text", concat.String())
			}
		})
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeStreamReadError(t *testing.T) {
	partial, err := DecodeStream(&failingReader{data: event("partial")}, func(string) {})
	if err == nil {
		t.Fatal("Expected read error")
	}
	if partial != "partial" {
		t.Errorf("Expected partial text %q, got %q", "partial", partial)
	}
}
