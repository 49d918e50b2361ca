package webserver

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
)

type Election struct {
	clock       *cycle.Service
	candidacies *candidacy.Store
	polls       *poll.Engine
}

func NewElection(clock *cycle.Service, candidacies *candidacy.Store, polls *poll.Engine) Election {
	return Election{clock: clock, candidacies: candidacies, polls: polls}
}

func (e Election) Time(c *gin.Context) {
	state, err := e.clock.GetCurrentState(c)
	if err != nil {
		log.Printf("Failed to read game clock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (e Election) Signups(c *gin.Context) {
	state := c.Param("state")
	if !isValidState(state) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown state"})
		return
	}
	seat := c.Query("seat")

	records, err := e.candidacies.List(c, ledger.TableSignups)
	if err != nil {
		log.Printf("Failed to list signups: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}

	out := make([]types.Candidacy, 0)
	for _, record := range records {
		if record.UserID == "" || !strings.EqualFold(record.State, state) {
			continue
		}
		if seat != "" && !strings.EqualFold(record.SeatID, seat) {
			continue
		}
		out = append(out, record)
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "signups": out})
}

func (e Election) Standings(c *gin.Context) {
	office := c.Param("office")
	state := c.Param("state")
	if !isValidState(state) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown state"})
		return
	}

	table, err := e.activeTable(c)
	if err != nil {
		log.Printf("Failed to read game clock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}

	records, err := e.candidacies.List(c, table)
	if err != nil {
		log.Printf("Failed to list standings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}

	out := make([]types.Candidacy, 0)
	for _, record := range records {
		if record.UserID == "" || record.Status == types.StatusWithdrawn {
			continue
		}
		if !strings.EqualFold(record.Office, office) || !strings.EqualFold(record.State, state) {
			continue
		}
		out = append(out, record)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })

	c.JSON(http.StatusOK, gin.H{"office": office, "state": state, "standings": out})
}

func (e Election) RegionPoll(c *gin.Context) {
	office := c.Param("office")
	state := c.Param("state")
	if !isValidState(state) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown state"})
		return
	}
	party := c.Query("party")

	table, err := e.activeTable(c)
	if err != nil {
		log.Printf("Failed to read game clock: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}

	res, err := e.polls.SimulateRegion(c, table, office, state, party)
	if err != nil {
		if errors.Is(err, types.ErrEmptyPool) {
			c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
			return
		}
		log.Printf("Failed to simulate poll: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "record store unavailable"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// activeTable picks the table campaign reads target in the current
// phase: signups until the primaries are decided, then the generals.
func (e Election) activeTable(c *gin.Context) (string, error) {
	state, err := e.clock.GetCurrentState(c)
	if err != nil {
		return "", err
	}
	if state.Phase.IsGeneral() {
		return ledger.TableGeneral, nil
	}
	return ledger.TableSignups, nil
}

func isValidState(state string) bool {
	for _, s := range types.States {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}
