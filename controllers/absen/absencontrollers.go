package absen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"FACEATTEND/controllers/httpx"
	"FACEATTEND/ledger"
	"FACEATTEND/logging"
	"FACEATTEND/models"
	"FACEATTEND/recognition"
)

type Recognizer interface {
	Recognize(ctx context.Context, img []byte, now time.Time) (recognition.Outcome, error)
}

type Ledger interface {
	Recent(ctx context.Context, limit int) ([]models.Attendance, error)
	Photo(ctx context.Context, id int64) ([]byte, error)
	Location() *time.Location
}

type Controller struct {
	Recognizer   Recognizer
	Ledger       Ledger
	ListLimit    int
	ListMaxLimit int
	Now          func() time.Time
}

var messages = map[recognition.Kind]string{
	recognition.Success:              "Attendance marked",
	recognition.Duplicate:            "Attendance already marked today",
	recognition.Unrecognized:         "Face not recognized",
	recognition.NoFaceDetected:       "No face detected",
	recognition.NoEncodingAvailable:  "No face encoding found",
	recognition.NoEnrolledIdentities: "No enrolled students in DB",
}

// RecognizeHandler menerima foto dari kamera dan mencatat kehadiran.
func (h *Controller) RecognizeHandler(c *gin.Context) {
	// 1. Ambil file foto
	img, _, err := httpx.ReadUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Input tidak valid: " + err.Error()})
		return
	}

	// 2. Cari wajah, cocokkan, catat absen
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	out, err := h.Recognizer.Recognize(c.Request.Context(), img, now)
	if err != nil {
		logging.Error(c.Request.Context(), "recognition failed", logging.Err(err))
		c.JSON(httpx.FaultStatus(err), gin.H{"error": "Gagal memproses foto: " + err.Error()})
		return
	}

	// 3. Semua hasil keputusan dikembalikan sebagai 200, termasuk duplikat.
	resp := gin.H{
		"status":  string(out.Kind),
		"message": messages[out.Kind],
	}
	if out.Event != nil {
		ts := out.Event.Timestamp.In(h.Ledger.Location())
		resp["student"] = out.Student
		resp["attendance_id"] = out.Event.Id
		resp["timestamp"] = ts.Format(time.RFC3339Nano)
		resp["day"] = ts.Weekday().String()
		resp["distance"] = out.Distance
	}
	c.JSON(http.StatusOK, resp)
}

type attendanceItem struct {
	Id          int64   `json:"id"`
	StudentName string  `json:"student_name"`
	Timestamp   string  `json:"timestamp"`
	Day         string  `json:"day"`
	PhotoURL    *string `json:"photo_url"`
}

// GetAllAbsen menampilkan absensi terbaru, paling baru di atas.
func (h *Controller) GetAllAbsen(c *gin.Context) {
	limit := h.ListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit harus berupa angka"})
			return
		}
		limit = n
	}
	limit = max(1, min(limit, h.ListMaxLimit))

	rows, err := h.Ledger.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(httpx.FaultStatus(err), gin.H{"error": err.Error()})
		return
	}

	loc := h.Ledger.Location()
	items := make([]attendanceItem, 0, len(rows))
	for _, r := range rows {
		ts := r.Timestamp.In(loc)
		item := attendanceItem{
			Id:          r.Id,
			StudentName: r.StudentName,
			Timestamp:   ts.Format(time.RFC3339Nano),
			Day:         ts.Weekday().String(),
		}
		if r.HasPhoto() {
			url := fmt.Sprintf("/attendance/%d/photo", r.Id)
			item.PhotoURL = &url
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// GetPhoto mengirim foto wajah yang tersimpan untuk satu absensi.
func (h *Controller) GetPhoto(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}

	photo, err := h.Ledger.Photo(c.Request.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}
	if err != nil {
		logging.Error(c.Request.Context(), "load photo failed", slog.Int64("id", id), logging.Err(err))
		c.JSON(httpx.FaultStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", photo)
}
