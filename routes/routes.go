package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FACEATTEND/controllers/absen"
	"FACEATTEND/controllers/face"
	"FACEATTEND/controllers/httpx"
	"FACEATTEND/logging"
)

type Deps struct {
	Absen       *absen.Controller
	Face        *face.Controller
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = httpx.MaxUploadBytes
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Face Recognition Attendance Backend Running"})
	})

	r.POST("/recognize", d.Absen.RecognizeHandler)
	attendance := r.Group("/attendance")
	{
		attendance.GET("/list", d.Absen.GetAllAbsen)
		attendance.GET("/:id/photo", d.Absen.GetPhoto)
	}

	students := r.Group("/students")
	{
		students.GET("", d.Face.ListStudents)
		students.POST("", d.Face.RegisterFaceHandler)
		students.POST("/bulk", d.Face.BulkEnrollHandler)
	}

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// requestLogger memberi id ke setiap request dan mencatatnya setelah selesai.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		ctx := logging.WithAttrs(c.Request.Context(), slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logging.Info(ctx, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}
