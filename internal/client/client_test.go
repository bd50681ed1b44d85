package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/paddy-api/internal/model"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		fh, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer fh.Close()
		data, _ := io.ReadAll(fh)

		w.Header().Set("Content-Type", "application/json")
		if header.Filename != "leaf.jpg" || string(data) != "jpeg" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid file type. Please upload an image (PNG, JPG, JPEG)"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"disease": "blast", "severity": 12.5, "mode": "real"})
	}))
	defer srv.Close()

	c := New(srv.URL)

	res, err := c.Predict(context.Background(), "/tmp/photos/leaf.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.Equal(t, "blast", res.Disease)
	require.Equal(t, 12.5, res.Severity)
	require.Equal(t, model.ModeReal, res.Mode)

	_, err = c.Predict(context.Background(), "notes.txt", strings.NewReader("text"))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadRequest, se.Code)
	require.Contains(t, se.Message, "Invalid file type")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "mode": "test", "classes": []string{"blast"}})
	}))
	defer srv.Close()

	h, err := New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, &Health{Status: "healthy", Mode: "test", Classes: []string{"blast"}}, h)
}
