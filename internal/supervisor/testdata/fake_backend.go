package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Accepts the backend's command line: <script> --port N --models a b --device D --model-size S.
// FAKE_BACKEND_MODE selects behaviour: "" serves normally, "exit" exits at
// once with status 3, "stubborn" ignores SIGTERM.
// FAKE_BACKEND_READY_AFTER delays voice_cloner_loaded (time.Duration syntax).
// Generation tasks complete on the second status poll and return a tiny WAV.
func main() {
	port := "0"
	var models []string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--port":
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		case "--models":
			for i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
				models = append(models, args[i+1])
				i++
			}
		}
	}

	mode := os.Getenv("FAKE_BACKEND_MODE")
	if mode == "exit" {
		fmt.Fprintln(os.Stderr, "fatal: model weights not found")
		os.Exit(3)
	}
	readyAfter, _ := time.ParseDuration(os.Getenv("FAKE_BACKEND_READY_AFTER"))
	started := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		loaded := time.Since(started) >= readyAfter
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":              "healthy",
			"voice_cloner_loaded": loaded,
			"loaded_models":       models,
		})
	})

	var (
		mu     sync.Mutex
		nextID int
		polls  = map[string]int{}
		cancel = map[string]bool{}
	)
	submit := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		nextID++
		id := fmt.Sprintf("fake-%d", nextID)
		polls[id] = 0
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"task_id": id, "status": "processing", "message": "queued"})
	}
	for _, p := range []string{"/clone", "/clone-with-upload", "/clone-multi-speaker", "/voice-design", "/custom-voice"} {
		mux.HandleFunc("POST "+p, submit)
	}
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		mu.Lock()
		n, ok := polls[id]
		if ok {
			n++
			polls[id] = n
		}
		cancelled := cancel[id]
		mu.Unlock()
		if !ok {
			http.Error(w, `{"detail":"Task not found"}`, http.StatusNotFound)
			return
		}
		resp := map[string]any{"status": "processing", "progress": 50}
		switch {
		case cancelled:
			resp = map[string]any{"status": "cancelled", "progress": 50}
		case n >= 2:
			resp = map[string]any{"status": "completed", "progress": 100, "output_path": "/tmp/" + id + ".wav"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /tasks/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF\x24\x00\x00\x00WAVEfmt "))
	})
	mux.HandleFunc("POST /tasks/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cancel[r.PathValue("id")] = true
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "cancelled"})
	})

	srv := &http.Server{Addr: "127.0.0.1:" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	fmt.Println("fake backend listening on port", port)

	sigCh := make(chan os.Signal, 1)
	if mode == "stubborn" {
		signal.Ignore(syscall.SIGTERM)
		signal.Notify(sigCh, syscall.SIGINT)
	} else {
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh
	sctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	_ = srv.Shutdown(sctx)
}
