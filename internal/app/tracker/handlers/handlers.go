package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Hobrus/hobrushealth.git/internal/app/tracker"
)

// StatusProvider reports what the update loop is doing.
type StatusProvider interface {
	State() tracker.State
	LastCycle() (tracker.CycleReport, bool)
}

type Handler struct {
	metrics http.Handler
	status  StatusProvider
}

func NewHandler(gatherer prometheus.Gatherer, status StatusProvider, logger *logrus.Logger) *Handler {
	return &Handler{
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog:      logger,
			ErrorHandling: promhttp.ContinueOnError,
		}),
		status: status,
	}
}

func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(h.metrics))
	router.GET("/status", h.statusHandler)
}

type cycleJSON struct {
	Outcome    string    `json:"outcome"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

type statusJSON struct {
	State     string     `json:"state"`
	LastCycle *cycleJSON `json:"last_cycle,omitempty"`
}

func (h *Handler) statusHandler(c *gin.Context) {
	resp := statusJSON{State: h.status.State().String()}

	if report, ok := h.status.LastCycle(); ok {
		resp.LastCycle = &cycleJSON{
			Outcome:    report.Outcome.String(),
			FinishedAt: report.FinishedAt,
		}
		if report.Err != nil {
			resp.LastCycle.Error = report.Err.Error()
		}
	}

	c.JSON(http.StatusOK, resp)
}
