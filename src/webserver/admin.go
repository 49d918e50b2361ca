package webserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/tally"
	"github.com/aprp/electionbot/src/types"
)

type Admin struct {
	clock   *cycle.Service
	tallies *tally.Engine
}

func NewAdmin(clock *cycle.Service, tallies *tally.Engine) Admin {
	return Admin{clock: clock, tallies: tallies}
}

func (a Admin) Tally(c *gin.Context) {
	summary, err := a.tallies.TallyWinners(c)
	if err != nil {
		log.Printf("Tally failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": summary.Winners, "skipped": summary.Skipped})
}

func (a Admin) Transfer(c *gin.Context) {
	state, err := a.clock.GetCurrentState(c)
	if err != nil {
		log.Printf("Failed to read game clock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	moved, err := a.tallies.TransferWinners(c, state.Year)
	if err != nil {
		log.Printf("Transfer failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": moved, "year": state.Year})
}

func (a Admin) Pause(c *gin.Context) {
	var req struct {
		Paused *bool `json:"paused" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if err := a.clock.SetPaused(c, *req.Paused); err != nil {
		log.Printf("Pause failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}

func (a Admin) Date(c *gin.Context) {
	var req struct {
		Year  *int `json:"year"`
		Cycle *int `json:"cycle"`
		Month *int `json:"month"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.Year == nil && req.Cycle == nil && req.Month == nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "nothing to change"})
		return
	}

	apply := func(set func() error) bool {
		err := set()
		if err == nil {
			return true
		}
		if types.IsUserError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		} else {
			log.Printf("Date change failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		}
		return false
	}

	if req.Year != nil && !apply(func() error { return a.clock.SetYear(c, *req.Year) }) {
		return
	}
	if req.Cycle != nil && !apply(func() error { return a.clock.SetCycle(c, *req.Cycle) }) {
		return
	}
	if req.Month != nil && !apply(func() error { return a.clock.SetMonth(c, *req.Month) }) {
		return
	}

	state, err := a.clock.GetCurrentState(c)
	if err != nil {
		log.Printf("Failed to read game clock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, state)
}
