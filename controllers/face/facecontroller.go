package face

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"FACEATTEND/controllers/httpx"
	"FACEATTEND/enrollment"
	"FACEATTEND/logging"
	"FACEATTEND/models"
)

type Enroller interface {
	EnrollImage(ctx context.Context, name string, img []byte, filename string) (enrollment.Status, error)
	BulkEnroll(ctx context.Context, dir string, progress func(enrollment.FileResult)) ([]enrollment.FileResult, error)
}

type StudentLister interface {
	Names(ctx context.Context) ([]models.Student, error)
}

type Controller struct {
	Enroller    Enroller
	Students    StudentLister
	StudentsDir string
}

// RegisterFaceHandler mendaftarkan (atau mengganti) wajah seorang student dari satu foto.
func (h *Controller) RegisterFaceHandler(c *gin.Context) {
	// 1. Validasi input
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nama student wajib diisi"})
		return
	}
	img, filename, err := httpx.ReadUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Foto tidak valid: " + err.Error()})
		return
	}

	// 2. Simpan (UPSERT): nama yang sama menimpa encoding lama.
	status, err := h.Enroller.EnrollImage(c.Request.Context(), name, img, filename)
	switch {
	case errors.Is(err, enrollment.ErrNoFace), errors.Is(err, enrollment.ErrNoEncoding):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "error": err.Error()})
		return
	case errors.Is(err, enrollment.ErrInvalidName), errors.Is(err, enrollment.ErrWrongDimension):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	case err != nil:
		logging.Error(c.Request.Context(), "enrollment failed", slog.String("student", name), logging.Err(err))
		c.JSON(httpx.FaultStatus(err), gin.H{"status": "error", "error": "Gagal menyimpan data wajah"})
		return
	}

	code := http.StatusOK
	if status == enrollment.StatusCreated {
		code = http.StatusCreated
	}
	c.JSON(code, gin.H{"status": string(status), "student": name})
}

type studentItem struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

// ListStudents menampilkan student terdaftar urut abjad.
func (h *Controller) ListStudents(c *gin.Context) {
	students, err := h.Students.Names(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Gagal mengambil data student"})
		return
	}

	items := make([]studentItem, 0, len(students))
	for _, s := range students {
		items = append(items, studentItem{Id: s.Id, Name: s.Name})
	}
	c.JSON(http.StatusOK, items)
}

// BulkEnrollHandler mendaftarkan ulang semua foto di folder students.
func (h *Controller) BulkEnrollHandler(c *gin.Context) {
	results, err := h.Enroller.BulkEnroll(c.Request.Context(), h.StudentsDir, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	failed := 0
	for _, r := range results {
		if r.Status == enrollment.StatusFailed {
			failed++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(results), "failed": failed, "results": results})
}
