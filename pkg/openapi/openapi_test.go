package openapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/warden/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "Warden API", Description: "audit"}, "0.1.0")
	spec.AddServer("/api", "local")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Warden API" || spec.Info.Version != "0.1.0" || spec.Info.Description != "audit" {
		t.Errorf("info: got %+v", spec.Info)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" || spec.Servers[0].Description != "local" {
		t.Errorf("servers: got %+v", spec.Servers)
	}
	if spec.Components == nil || spec.Paths == nil {
		t.Fatal("components and paths should be initialized")
	}
}

func TestHelpers(t *testing.T) {
	if ref := openapi.SchemaRef("Task"); ref.Ref != "#/components/schemas/Task" {
		t.Errorf("schema ref: got %s", ref.Ref)
	}
	if ref := openapi.ResponseRef("Conflict"); ref.Ref != "#/components/responses/Conflict" {
		t.Errorf("response ref: got %s", ref.Ref)
	}

	resp := openapi.ResponseJSON("Run accepted", "Run")
	if resp.Content["application/json"].Schema.Ref != "#/components/schemas/Run" {
		t.Errorf("response schema: got %+v", resp.Content)
	}

	arr := openapi.ResponseArray("Stored tasks", "Task")
	schema := arr.Content["application/json"].Schema
	if schema.Type != "array" || schema.Items.Ref != "#/components/schemas/Task" {
		t.Errorf("array schema: got %+v", schema)
	}

	p := openapi.PathParam("id", "integer", "int64", "Work item id")
	if p.In != "path" || !p.Required || p.Schema.Type != "integer" || p.Schema.Format != "int64" {
		t.Errorf("path param: got %+v", p)
	}

	e := openapi.EnumParam("compliance", "Verdict filter", "OK", "NOK")
	if e.In != "query" || e.Required || len(e.Schema.Enum) != 2 || e.Schema.Enum[1] != "NOK" {
		t.Errorf("enum param: got %+v", e)
	}

	stream := openapi.ResponseStream("Progress", "text/event-stream")
	if _, ok := stream.Content["text/event-stream"]; !ok {
		t.Errorf("stream response: got %+v", stream.Content)
	}

	q := openapi.QueryParam("state", "string", "State filter", false)
	if q.In != "query" || q.Required || q.Schema.Type != "string" {
		t.Errorf("query param: got %+v", q)
	}
}

func TestComponents(t *testing.T) {
	c := openapi.NewComponents()

	if _, ok := c.Schemas["Error"]; !ok {
		t.Error("missing Error schema")
	}
	for _, name := range []string{"BadRequest", "Unauthorized", "NotFound", "Conflict"} {
		if _, ok := c.Responses[name]; !ok {
			t.Errorf("missing default response: %s", name)
		}
	}

	c.AddSchemas(map[string]*openapi.Schema{"Task": {Type: "object"}})
	c.AddResponses(map[string]*openapi.Response{"Gone": {Description: "gone"}})

	if _, ok := c.Schemas["Task"]; !ok {
		t.Error("Task schema not added")
	}
	if _, ok := c.Schemas["Error"]; !ok {
		t.Error("default Error schema should still exist")
	}
	if _, ok := c.Responses["Gone"]; !ok {
		t.Error("Gone response not added")
	}
}

func TestServeSpec(t *testing.T) {
	data, err := openapi.NewSpec(&openapi.Config{Title: "Test"}, "1.0.0").JSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}

	body, _ := io.ReadAll(res.Body)
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("body unmarshal failed: %v", err)
	}
	if parsed["openapi"] != "3.1.0" {
		t.Errorf("openapi: got %v", parsed["openapi"])
	}

	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	req := httptest.NewRequest("GET", "/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, req)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Errorf("conditional get: status %d, body %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestConfig(t *testing.T) {
	cfg := openapi.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Title != "Warden API" || cfg.Path != "/openapi.json" {
		t.Errorf("defaults: got %+v", cfg)
	}

	bad := openapi.Config{Path: "openapi.json"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("relative path should fail validation")
	}

	t.Setenv("TEST_TITLE", "Custom API")
	env := &openapi.ConfigEnv{Title: "TEST_TITLE"}
	cfg = openapi.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Title != "Custom API" {
		t.Errorf("title: got %s, want Custom API", cfg.Title)
	}

	base := openapi.Config{Title: "Base", Description: "kept"}
	base.Merge(&openapi.Config{Title: "Overlay"})
	if base.Title != "Overlay" || base.Description != "kept" {
		t.Errorf("merge: got %+v", base)
	}
}
