package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prayerflow/internal/prayer"
)

// PrayerTimesResponse is the body of GET /api/prayer-times.
type PrayerTimesResponse struct {
	Date     string        `json:"date"`
	Timezone string        `json:"timezone"`
	Times    []prayer.Time `json:"times"`
	Next     *prayer.Time  `json:"next"`
}

// PrayerTimes GET /api/prayer-times
func (h *Handler) PrayerTimes(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	day, err := h.Prayers.Day(ctx, now)
	if err != nil {
		respondError(c, "failed to load prayer times", err)
		return
	}
	next, err := h.Prayers.Next(ctx, now)
	if err != nil {
		respondError(c, "failed to load prayer times", err)
		return
	}

	c.JSON(http.StatusOK, PrayerTimesResponse{
		Date:     day.Date,
		Timezone: day.Timezone,
		Times:    day.Times,
		Next:     next,
	})
}
