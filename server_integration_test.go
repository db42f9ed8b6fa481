package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"karton/pkg/config"
)

func setupPostgresServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	var err error
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Database.Driver = "postgres"
	return newTestServer(t, fixedReads("55D23L"))
}

func TestFullFlow(t *testing.T) {
	r := setupPostgresServer(t)
	token, _ := login(t, r, "admin", "admin123")

	body, _ := json.Marshal(map[string]any{"preset": "JIS", "target": "55D23L"})
	resp := performRequest(r, http.MethodPut, "/settings", bytes.NewBuffer(body), token, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("settings status=%d body=%s", resp.Code, resp.Body.String())
	}

	resp = uploadImage(t, r, token, imaging.New(200, 80, color.White), "jis.png")
	var result map[string]any
	decode(t, resp, &result)
	if result["outcome"] != "verdict" || result["code"] != "55D23L" {
		t.Fatalf("unexpected scan %+v", result)
	}

	resp = performRequest(r, http.MethodGet, "/report?list=1", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/detections", nil, token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("detections status=%d", resp.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	var err error
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Database.Driver = "postgres"
	cfg.Storage.UploadBase = t.TempDir()
	initDB()
}
