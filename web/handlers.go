package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maastricht-university/scribe/metrics"
	"github.com/maastricht-university/scribe/orchestrator"
)

type resultEvent struct {
	Text        string `json:"text"`
	DownloadURL string `json:"download_url,omitempty"`
	Diarized    bool   `json:"diarized"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"ModelSizes":   orchestrator.ModelSizes,
		"DefaultModel": s.cfg.Pipeline.ModelSize,
		"Threads":      s.cfg.Pipeline.Threads,
		"TokenLoaded":  s.cfg.HasToken(),
		"MaxUploadMB":  s.cfg.Server.MaxUploadMB,
	})
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "engine": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) submit(c *gin.Context) {
	if limit := s.cfg.Server.MaxUploadMB; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit<<20)
	}

	file, err := c.FormFile("audio")
	if err != nil {
		s.rejectUpload(c, err)
		return
	}

	req, err := s.parseForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dir, err := os.MkdirTemp("", "scribe-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	// keep the original name so the transcript file is named after it
	req.AudioPath = filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, req.AudioPath); err != nil {
		_ = os.RemoveAll(dir)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	j := newJob(uuid.NewString())
	s.jobs.add(j)
	log.WithFields(log.Fields{"job": j.id, "file": file.Filename, "model": req.ModelSize}).Info("job accepted")

	go s.execute(context.WithoutCancel(c.Request.Context()), j, req, dir)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     j.id,
		"events_url": fmt.Sprintf("/api/jobs/%s/events", j.id),
	})
}

func (s *Server) rejectUpload(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Audio file is too large: uploads are limited to %d MB.", s.cfg.Server.MaxUploadMB),
		})
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		c.JSON(http.StatusBadRequest, gin.H{"error": orchestrator.NoAudioMessage})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read upload: %v", err)})
	}
}

func (s *Server) execute(ctx context.Context, j *job, req orchestrator.Request, uploadDir string) {
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	defer func() {
		if err := os.RemoveAll(uploadDir); err != nil {
			log.WithError(err).WithField("job", j.id).Warn("could not remove upload")
		}
	}()

	res := s.runner.Run(ctx, req, j.progress)
	j.finish(res)
	s.jobs.expire(j.id)
}

// parseForm reads the optional form fields. Blank numeric fields mean
// "use the default"; non-positive speaker bounds mean auto-detect.
func (s *Server) parseForm(c *gin.Context) (orchestrator.Request, error) {
	req := orchestrator.Request{
		ModelSize: strings.TrimSpace(c.PostForm("model_size")),
		Token:     c.PostForm("hf_token"),
	}

	var err error
	if req.MinSpeakers, err = formInt(c, "min_speakers"); err != nil {
		return req, err
	}
	if req.MaxSpeakers, err = formInt(c, "max_speakers"); err != nil {
		return req, err
	}
	if req.Threads, err = formInt(c, "num_threads"); err != nil {
		return req, err
	}
	return req, nil
}

func formInt(c *gin.Context, field string) (int, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	return n, nil
}

func (s *Server) events(c *gin.Context) {
	j, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	next := 0
	for {
		evs, res, changed := j.since(next)
		for _, ev := range evs {
			c.SSEvent("progress", ev)
		}
		next += len(evs)

		if res != nil {
			c.SSEvent("result", s.resultEvent(j.id, *res))
			c.Writer.Flush()
			return
		}
		c.Writer.Flush()

		select {
		case <-changed:
		case <-ticker.C:
			_, _ = c.Writer.WriteString(": keepalive\n\n")
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (s *Server) resultEvent(id string, res orchestrator.Result) resultEvent {
	ev := resultEvent{Text: res.Text, Diarized: res.Diarized}
	if res.HasFile() {
		ev.DownloadURL = fmt.Sprintf("/api/jobs/%s/download", id)
	}
	return ev
}

func (s *Server) download(c *gin.Context) {
	j, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	res, done := j.done()
	if !done || !res.HasFile() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no transcript for this job"})
		return
	}
	c.FileAttachment(res.OutputPath, filepath.Base(res.OutputPath))
}
