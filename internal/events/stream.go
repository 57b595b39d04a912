package events

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StreamWriter serializes events in SSE framing onto an io.Writer,
// flushing after every event when the writer supports it.
type StreamWriter struct {
	w          io.Writer
	flusher    http.Flusher
	terminated bool
}

// NewStreamWriter wraps a writer. If it implements http.Flusher each
// event is flushed immediately so the client sees output in order.
func NewStreamWriter(w io.Writer) *StreamWriter {
	sw := &StreamWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// chunk mirrors a chat-completions streaming chunk, which is how the
// Copilot client expects assistant text to arrive.
type chunk struct {
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Delta        chunkDelta `json:"delta"`
}

type chunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

// Ack emits an empty assistant chunk acknowledging the request.
func (s *StreamWriter) Ack() error {
	empty := ""
	return s.writeData(chunk{Choices: []chunkChoice{{
		Delta: chunkDelta{Role: "assistant", Content: &empty},
	}}})
}

// Text emits a chunk of assistant text.
func (s *StreamWriter) Text(content string) error {
	return s.writeData(chunk{Choices: []chunkChoice{{
		Delta: chunkDelta{Role: "assistant", Content: &content},
	}}})
}

// Confirm emits a copilot_confirmation event.
func (s *StreamWriter) Confirm(c Confirmation) error {
	return s.writeEvent("copilot_confirmation", c)
}

// Errors emits a copilot_errors event and terminates the stream.
func (s *StreamWriter) Errors(errs ...Error) error {
	if err := s.writeEvent("copilot_errors", errs); err != nil {
		return err
	}
	s.terminated = true
	return nil
}

// Done emits the final stop chunk followed by the [DONE] sentinel and
// terminates the stream.
func (s *StreamWriter) Done() error {
	if err := s.writeData(chunk{Choices: []chunkChoice{{
		FinishReason: "stop",
		Delta:        chunkDelta{Content: nil},
	}}}); err != nil {
		return err
	}

	if err := s.writeRaw("data: [DONE]\n\n"); err != nil {
		return err
	}
	s.terminated = true
	return nil
}

func (s *StreamWriter) writeData(v any) error {
	if s.terminated {
		return ErrStreamTerminated
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.writeRaw("data: " + string(data) + "\n\n")
}

func (s *StreamWriter) writeEvent(name string, v any) error {
	if s.terminated {
		return ErrStreamTerminated
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	return s.writeRaw("event: " + name + "\ndata: " + string(data) + "\n\n")
}

func (s *StreamWriter) writeRaw(frame string) error {
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
