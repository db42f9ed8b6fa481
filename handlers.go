package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"karton/models"
	"karton/pkg/bootstrap"
	"karton/pkg/label"
	"karton/pkg/scan"
	"karton/pkg/store"
	"karton/process/report"
)

const maxUploadSize = 10 << 20

func setupRoutes(r *gin.Engine) {
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/operators", requireRole(models.RoleAdministrator), createOperatorHandler)

	authGroup.GET("/settings", getSettingsHandler)
	authGroup.PUT("/settings", updateSettingsHandler)
	authGroup.GET("/catalog/:standard", catalogHandler)

	authGroup.POST("/live/start", liveStartHandler)
	authGroup.POST("/live/stop", liveStopHandler)
	authGroup.GET("/live/status", liveStatusHandler)
	authGroup.GET("/live/frame.jpg", liveFrameHandler)
	authGroup.GET("/events", eventsHandler)

	authGroup.POST("/scan", scanUploadHandler)
	authGroup.GET("/detections", listDetectionsHandler)
	authGroup.DELETE("/detections", deleteDetectionsHandler)
	authGroup.GET("/detections/:id/image", detectionImageHandler)
	authGroup.GET("/report", reportHandler)
	authGroup.GET("/count", countHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		c.Set("role", role)
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString("username"), "role": c.GetString("role")})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueAccessToken(op)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(op.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var op models.Operator
	if err := db.Preload("Role").First(&op, rt.OperatorID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "operator not found"})
		return
	}
	tokenString, err := issueAccessToken(op)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(op.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func createOperatorHandler(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := RegisterOperator(req.Username, req.Password, req.DisplayName, req.Role)
	switch {
	case errors.Is(err, bootstrap.ErrOperatorExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": op.ID, "username": op.Username, "role": op.Role.Name})
}

func settingsJSON(s scan.Settings) gin.H {
	return gin.H{
		"preset":      s.Preset.String(),
		"target":      s.Target,
		"interval":    s.Interval.String(),
		"binary_view": s.BinaryView,
		"split_view":  s.SplitView,
	}
}

func getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, settingsJSON(app.Session.Settings()))
}

// updateSettingsHandler applies the fields present in the body. Changing the
// preset without naming a target clears the target.
func updateSettingsHandler(c *gin.Context) {
	var req struct {
		Preset     *string `json:"preset"`
		Target     *string `json:"target"`
		Interval   *string `json:"interval"`
		BinaryView *bool   `json:"binary_view"`
		SplitView  *bool   `json:"split_view"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cur := app.Session.Settings()
	preset := cur.Preset
	if req.Preset != nil {
		std, err := label.ParseStandard(*req.Preset)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		preset = std
	}
	var interval time.Duration
	if req.Interval != nil {
		d, err := time.ParseDuration(*req.Interval)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval"})
			return
		}
		interval = d
	}
	var target string
	if req.Target != nil {
		target = strings.TrimSpace(*req.Target)
		if target != "" && target != label.Sentinel {
			resolved, err := app.Pipeline.Registry().Target(preset, target)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			target = resolved
		}
	}

	next, err := app.Session.Update(func(s *scan.Settings) {
		if preset != s.Preset {
			s.Preset = preset
			s.Target = ""
		}
		if req.Target != nil {
			s.Target = target
		}
		if req.Interval != nil {
			s.Interval = interval
		}
		if req.BinaryView != nil {
			s.BinaryView = *req.BinaryView
		}
		if req.SplitView != nil {
			s.SplitView = *req.SplitView
		}
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settingsJSON(next))
}

func catalogHandler(c *gin.Context) {
	std, err := label.ParseStandard(c.Param("standard"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"standard": std.String(), "labels": app.Pipeline.Registry().Rules(std).Catalog.Labels()})
}

func liveStartHandler(c *gin.Context) {
	if err := app.Scanner.Start(); err != nil {
		if errors.Is(err, scan.ErrLiveRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func liveStopHandler(c *gin.Context) {
	app.Scanner.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func liveStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":  app.Scanner.Running(),
		"settings": settingsJSON(app.Session.Settings()),
		"day":      app.Session.Day().Format("2006-01-02"),
		"records":  len(app.Session.Records()),
	})
}

func liveFrameHandler(c *gin.Context) {
	frame := hub.LatestFrame()
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": scan.CameraOffText})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", frame)
}

// eventsHandler streams scanner notifications as server-sent events.
func eventsHandler(c *gin.Context) {
	events, cancel := hub.Subscribe(64)
	defer cancel()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// scanUploadHandler runs a static scan of an uploaded image and waits for the
// outcome. The upload itself is not kept.
func scanUploadHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	dir := filepath.Join(cfg.Storage.UploadBase, "incoming")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	path := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	defer os.Remove(path)

	reports, err := app.Scanner.ScanFile(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	rep := <-reports
	status := http.StatusOK
	if f, ok := rep.Outcome.(scan.Failed); ok && errors.Is(f.Err, scan.ErrLoadImage) {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, reportJSON(rep))
}

func reportJSON(rep scan.Report) gin.H {
	res := rep.Result
	out := gin.H{
		"id":         res.ID,
		"outcome":    scan.Name(rep.Outcome),
		"signal":     scan.Signal(rep.Outcome, false),
		"preset":     res.Preset.String(),
		"trail":      res.Trail,
		"candidates": res.Pool.Unique(),
	}
	if res.Matched {
		out["code"] = res.Code
		out["matched_by"] = res.MatchedBy.String()
		out["raw"] = res.Candidate.Raw
		out["score"] = res.Candidate.Match.Score
	}
	switch o := rep.Outcome.(type) {
	case scan.Verdict:
		out["record"] = o.Record
	case scan.Rejected:
		out["message"] = o.Message
	case scan.Failed:
		out["error"] = o.Err.Error()
	}
	return out
}

// parseDay reads ?date=YYYY-MM-DD in local time; absent means today.
func parseDay(c *gin.Context) (time.Time, bool) {
	v := c.Query("date")
	if v == "" {
		return time.Now(), true
	}
	day, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

// listDetectionsHandler serves the session's records for its own day and the
// store for any other day.
func listDetectionsHandler(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	if sameDay(day, app.Session.Day()) {
		c.JSON(http.StatusOK, app.Session.Records())
		return
	}
	rows, err := app.Store.Load(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func deleteDetectionsHandler(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := app.Store.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	app.Session.Remove(req.IDs)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func detectionImageHandler(c *gin.Context) {
	var uri struct {
		ID uint `uri:"id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := app.Store.Get(c.Request.Context(), uri.ID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && d.ImagePath == "") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.File(d.ImagePath)
}

func reportHandler(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	r, err := report.Build(c.Request.Context(), app.Store, day, c.Query("list") == "1")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func countHandler(c *gin.Context) {
	n, err := app.Store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
