package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dapperAuteur/my-health-blueprint/internal/database"
	"github.com/dapperAuteur/my-health-blueprint/internal/model"
	"github.com/dapperAuteur/my-health-blueprint/internal/store"
	"github.com/dapperAuteur/my-health-blueprint/internal/websocket"
)

func setupBlueprintTest(t *testing.T) (*store.UserStore, *BlueprintHandler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHub(slog.Default())
	bh := NewBlueprintHandler(store.NewBlueprintStore(db), hub, slog.Default())
	return store.NewUserStore(db), bh
}

func savePayload(userID string) string {
	in := model.BlueprintInput{
		UserID:            userID,
		Name:              "Alice",
		Email:             "alice@example.com",
		HealthGoals:       model.HealthGoals{Goal1: "Run a 5k"},
		KeyMetrics:        []model.KeyMetric{{Metric: "Steps", TargetGoal: "8000"}},
		ConnectionMethods: []string{},
		Obstacles:         []model.Obstacle{},
		EmergencyPlan:     []string{},
		Apps:              []model.App{},
		Equipment:         []string{},
		LearningResources: []string{},
		Commitments:       []string{"Show up daily"},
	}
	data, _ := json.Marshal(in)
	return string(data)
}

func TestBlueprintGetNotFound(t *testing.T) {
	_, bh := setupBlueprintTest(t)

	req := httptest.NewRequest("GET", "/health-blueprint/nobody", nil)
	req.SetPathValue("userId", "nobody")
	rec := httptest.NewRecorder()
	bh.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (never an empty default object)", rec.Code, http.StatusNotFound)
	}
}

func TestBlueprintSaveAndGet(t *testing.T) {
	users, bh := setupBlueprintTest(t)
	user, _ := users.Create("alice@example.com")

	rec := postJSON(t, bh.Save, savePayload(user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var saved model.Blueprint
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode saved blueprint: %v", err)
	}
	if saved.LastSavedAt.IsZero() {
		t.Error("expected lastSavedAt in save response")
	}

	req := httptest.NewRequest("GET", "/health-blueprint/"+user.ID, nil)
	req.SetPathValue("userId", user.ID)
	getRec := httptest.NewRecorder()
	bh.Get(getRec, req)

	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", getRec.Code, http.StatusOK)
	}

	var got model.Blueprint
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode fetched blueprint: %v", err)
	}
	if got.HealthGoals.Goal1 != "Run a 5k" {
		t.Errorf("goal1 = %q, want reshaped healthGoals group", got.HealthGoals.Goal1)
	}
	if len(got.KeyMetrics) != 1 || got.KeyMetrics[0].Metric != "Steps" {
		t.Errorf("keyMetrics = %+v, want the saved rows", got.KeyMetrics)
	}
}

func TestBlueprintSaveValidation(t *testing.T) {
	_, bh := setupBlueprintTest(t)

	rec := postJSON(t, bh.Save, `{"userId":"","name":"","email":"bad"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp struct {
		Error  string             `json:"error"`
		Fields []model.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error != "validation failed" {
		t.Errorf("error = %q, want validation failed", resp.Error)
	}
	if len(resp.Fields) == 0 {
		t.Error("expected structured field errors")
	}

	// Nothing was persisted
	req := httptest.NewRequest("GET", "/health-blueprint/x", nil)
	req.SetPathValue("userId", "x")
	getRec := httptest.NewRecorder()
	bh.Get(getRec, req)
	if getRec.Code != http.StatusNotFound {
		t.Errorf("get after failed save: status = %d, want %d", getRec.Code, http.StatusNotFound)
	}
}

func TestBlueprintFinalSubmission(t *testing.T) {
	users, bh := setupBlueprintTest(t)
	user, _ := users.Create("alice@example.com")

	postJSON(t, bh.Save, savePayload(user.ID))

	// Final submit: same payload plus completedAt
	body := strings.TrimSuffix(savePayload(user.ID), "}") + `,"completedAt":"2026-08-30T12:00:00Z"}`
	rec := postJSON(t, bh.Save, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("final save status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got model.Blueprint
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.CompletedAt == nil {
		t.Fatal("expected completedAt to be stored")
	}
	if got.CompletedAt.UTC().Format("2006-01-02") != "2026-08-30" {
		t.Errorf("completedAt = %v, want the submitted timestamp", got.CompletedAt)
	}
}
