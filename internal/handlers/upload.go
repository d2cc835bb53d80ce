package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rumor-ml/expensetrack/internal/ids"
	"github.com/rumor-ml/expensetrack/internal/ingest"
	"github.com/rumor-ml/expensetrack/internal/streaming"
)

// maxUploadBytes bounds a whole multipart upload request.
const maxUploadBytes = 32 << 20

type uploadResponse struct {
	SessionID    string   `json:"sessionId"`
	Inserted     int      `json:"inserted"`
	Duplicates   int      `json:"duplicates"`
	SkippedFiles []string `json:"skippedFiles,omitempty"`
}

// Upload runs the ingestion pipeline over the request's multipart
// files. Progress is broadcast to the session's SSE stream; clients
// pass the returned session id to the stream endpoint. Ingestion runs
// to completion within the request, matching the single-writer model.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	var files []ingest.File
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("opening %s: %v", fh.Filename, err))
			return
		}
		defer f.Close()
		files = append(files, ingest.File{Name: fh.Filename, Content: f})
	}

	sessionID := ids.New("session")
	coordinator := h.coordinator.WithSink(ingest.SinkFunc(func(e streaming.SSEEvent) {
		h.hub.Broadcast(sessionID, e)
	}))

	result, err := coordinator.Ingest(r.Context(), userID(r), files)
	if err != nil {
		h.hub.Broadcast(sessionID, streaming.NewErrorEvent(streaming.ErrorEvent{Message: err.Error()}))
		writeStoreError(w, err)
		return
	}

	now := time.Now()
	h.hub.Broadcast(sessionID, streaming.NewCompleteEvent(streaming.SessionEvent{
		ID:          sessionID,
		Status:      "complete",
		Inserted:    result.Inserted,
		Skipped:     result.Duplicates,
		CompletedAt: &now,
	}))

	writeJSON(w, http.StatusOK, uploadResponse{
		SessionID:    sessionID,
		Inserted:     result.Inserted,
		Duplicates:   result.Duplicates,
		SkippedFiles: result.SkippedFiles,
	})
}

// Stream serves the SSE feed for one upload session.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := h.hub.Register(sessionID)
	defer h.hub.Unregister(sessionID, client)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := writeSSE(w, streaming.NewHeartbeatEvent()); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-client.Events:
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
			if event.Type == streaming.EventTypeComplete || event.Type == streaming.EventTypeError {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event streaming.SSEEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: encoding SSE event: %v", err)
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
