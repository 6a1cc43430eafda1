package ports

import (
	"time"

	"github.com/gin-gonic/gin"
)

type MetricsPort interface {
	RecordMetrics(c *gin.Context, start time.Time)
	// RecordRelation counts consistency engine operations by outcome.
	RecordRelation(operation string, err error)
}
