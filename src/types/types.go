package types

// Phase is one of the five stages of the election cycle. It is always
// derived from the in-world month/year and never stored on its own.
type Phase string

const (
	PhaseSignups         Phase = "Signups"
	PhasePrimaryCampaign Phase = "Primary Campaign"
	PhasePrimaryElection Phase = "Primary Election"
	PhaseGeneralCampaign Phase = "General Campaign"
	PhaseGeneralElection Phase = "General Election"
)

// IsGeneral reports whether campaign actions should target the general
// table rather than the signups table.
func (p Phase) IsGeneral() bool {
	return p == PhaseGeneralCampaign || p == PhaseGeneralElection
}

// Parties a candidate may register under.
const (
	PartyDemocrats   = "Democrats"
	PartyRepublicans = "Republicans"
	PartyIndependent = "Independent"
)

var Parties = []string{PartyDemocrats, PartyRepublicans, PartyIndependent}

// States of the game world.
var States = []string{
	"Columbia", "Cambridge", "Austin", "Superior",
	"Heartland", "Yellowstone", "Phoenix",
}

// Candidacy winner statuses. An empty status means the race is still
// undecided.
const (
	StatusWinner    = "Winner"
	StatusLoser     = "Loser"
	StatusWithdrawn = "Withdrawn"
)

// IsTerminal reports whether a winner status ends the candidacy.
func IsTerminal(status string) bool {
	return status == StatusWinner || status == StatusLoser || status == StatusWithdrawn
}

// CycleState is the shared game clock. Phase is recomputed from
// Month/Year on every read.
type CycleState struct {
	Cycle  int   `json:"cycle"`
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	Paused bool  `json:"paused"`
	Phase  Phase `json:"phase"`
}

// Candidacy is one registered run for a seat, backed by a single ledger
// row. Row is the 1-based ledger row the record was read from.
type Candidacy struct {
	Table      string  `json:"-"`
	Row        int     `json:"-"`
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	SeatID     string  `json:"seatId"`
	Party      string  `json:"party"`
	Phase      string  `json:"phase"`
	State      string  `json:"state"`
	Office     string  `json:"office"`
	Corruption int     `json:"corruption"`
	Stamina    int     `json:"stamina"`
	Points     float64 `json:"points"`
	Status     string  `json:"winnerStatus"`
}

// Seat is a reference definition of an electable office.
type Seat struct {
	SeatID     string `json:"seatId"`
	Office     string `json:"office"`
	State      string `json:"state"`
	OriginYear int    `json:"originYear"`
	TermLength int    `json:"termLength"`
}

// EligibleIn reports whether the seat is up for election in the given
// year. Past years relative to the seat's origin are never eligible.
func (s Seat) EligibleIn(year int) bool {
	if year < s.OriginYear {
		return false
	}
	if year == s.OriginYear || s.TermLength <= 0 {
		return true
	}
	return (year-s.OriginYear)%s.TermLength == 0
}
