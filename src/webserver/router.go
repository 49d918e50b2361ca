package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/components/poll"
	"github.com/aprp/electionbot/src/components/tally"
	"github.com/aprp/electionbot/src/config"
)

func attachRoutes(r *gin.Engine, cfg config.Config, clock *cycle.Service, candidacies *candidacy.Store, tallies *tally.Engine, polls *poll.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(cfg.AdminAPIKey, []byte(cfg.JWTSecret))
	electionH := NewElection(clock, candidacies, polls)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/token", authH.Token)

		v1.GET("/time", electionH.Time)
		v1.GET("/signups/:state", electionH.Signups)
		v1.GET("/standings/:office/:state", electionH.Standings)
		v1.GET("/regionpoll/:office/:state", electionH.RegionPoll)
	}

	admin := v1.Group("/admin")
	admin.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
	{
		adminH := NewAdmin(clock, tallies)
		admin.POST("/tally", adminH.Tally)
		admin.POST("/transfer", adminH.Transfer)
		admin.POST("/pause", adminH.Pause)
		admin.POST("/date", adminH.Date)
	}
}
