package detect

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

func TestDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/faces" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 1,
			"model":       "test-model",
			"faces": []map[string]any{
				{
					"face_index": 0,
					"bbox":       []float64{10, 20, 110, 140},
					"embedding":  []float32{0.6, 0.8},
					"pose":       []float64{5, -3, 0},
					"det_score":  0.97,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	faces, err := client.DetectFaces(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}
	face := faces[0]
	if face.Confidence != 0.97 {
		t.Errorf("Confidence = %f; want 0.97", face.Confidence)
	}
	if len(face.BBox) != 4 || face.BBox[2] != 110 {
		t.Errorf("BBox = %v", face.BBox)
	}
	if len(face.Embedding) != 2 || len(face.Pose) != 3 {
		t.Errorf("embedding/pose = %v / %v", face.Embedding, face.Pose)
	}
}

func TestHappinessScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emotion" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"happiness": 0.85, "model": "emotion-model"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	score, err := client.HappinessScore(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("HappinessScore failed: %v", err)
	}
	if score != 0.85 {
		t.Errorf("score = %f; want 0.85", score)
	}
}

func TestAPIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.DetectFaces(context.Background(), jpegHeader); err == nil {
		t.Error("expected an error for a 503 response")
	}
}

func TestPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	client := NewClient(healthy.URL, 5*time.Second)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping against healthy server failed: %v", err)
	}

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer unhealthy.Close()

	client = NewClient(unhealthy.URL, 5*time.Second)
	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping against unhealthy server should fail")
	}

	client = NewClient("http://127.0.0.1:1", time.Second)
	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping against unreachable server should fail")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x00, 0x00}, "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "application/octet-stream"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.expected {
				t.Errorf("detectMIMEType = %q; want %q", got, tc.expected)
			}
		})
	}
}
