package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type streamEvent struct {
	Delta string `json:"delta"`
}

// streamSSE drains the chunk channel into the response as server-sent
// events, flushing after each event, and terminates the stream with a
// [DONE] sentinel.
func streamSSE(w http.ResponseWriter, chunks <-chan string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		payload, err := json.Marshal(streamEvent{Delta: chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
	}

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
