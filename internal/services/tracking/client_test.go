package tracking_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stencil/internal/services/tracking"
)

func TestCreateJobReturnsTrackingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload tracking.JobRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.JobCode != "STN-LASER1-BIRCH-0001" || payload.JobNumber != 1 {
			t.Errorf("unexpected payload: %#v", payload)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"jobId": "trk-99"}`))
	}))
	defer server.Close()

	client := tracking.NewClient(tracking.Config{BaseURL: server.URL, APIKey: "k"})
	jobID, err := client.CreateJob(context.Background(), tracking.JobRequest{
		JobCode:    "STN-LASER1-BIRCH-0001",
		StationID:  "laser-1",
		MaterialID: "birch-3mm",
		JobNumber:  1,
		SheetID:    "sheet-001",
		ItemIDs:    []string{"item-1"},
		OrderIDs:   []string{"order-1"},
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if jobID != "trk-99" {
		t.Fatalf("unexpected job id %q", jobID)
	}
}

func TestCreateJobReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := tracking.NewClient(tracking.Config{BaseURL: server.URL})
	if _, err := client.CreateJob(context.Background(), tracking.JobRequest{JobCode: "STN-X-0001"}); err == nil {
		t.Fatal("expected error for http 502")
	}
}
