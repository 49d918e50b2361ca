// Package webserver exposes the election state over HTTP. It shares
// one set of engines with the Discord bot so both fronts see the same
// ledger.
package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/components/tally"
	"github.com/aprp/electionbot/src/config"
)

func New(cfg config.Config, clock *cycle.Service, candidacies *candidacy.Store, tallies *tally.Engine, polls *poll.Engine) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, clock, candidacies, tallies, polls)
	return g
}
