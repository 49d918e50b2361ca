// Package campaign validates and applies the effect of campaign
// actions against a candidacy record.
package campaign

import (
	"context"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/microcosm-cc/bluemonday"
)

// Action identifies one campaign action type.
type Action string

const (
	ActionSpeech     Action = "speech"
	ActionCanvassing Action = "canvassing"
	ActionDonor      Action = "donor"
	ActionSpecial    Action = "special"
	ActionAd         Action = "ad"
	ActionPoster     Action = "poster"
)

const (
	speechStaminaCost = 10
	speechPointCap    = 3000

	specialMaxParagraphs    = 5
	specialMinParagraphLen  = 10
	specialCorruptionPerPar = 3

	donorCorruptionGain = 5
)

var (
	videoExts = []string{".mp4", ".mov", ".webm"}
	imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

	paragraphSep = regexp.MustCompile(`\n\s*\n`)
)

// Request is one campaign action invocation. Name is optional; an empty
// name targets the caller's sole candidacy. Text carries speech bodies,
// Attachment the filename of an uploaded ad or poster.
type Request struct {
	Action     Action
	OwnerID    string
	Name       string
	Text       string
	Attachment string
}

// Result is what the front end renders after an action lands.
type Result struct {
	Candidacy  types.Candidacy
	Yield      float64
	Paragraphs int
}

// Engine applies campaign actions. All randomized draws come from its
// own source so tests can reason about ranges deterministically; the
// source is shared across concurrent commands, so draws take rngMu.
type Engine struct {
	candidacies *candidacy.Store
	clock       *cycle.Service
	sanitizer   *bluemonday.Policy

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(candidacies *candidacy.Store, clock *cycle.Service) *Engine {
	return &Engine{
		candidacies: candidacies,
		clock:       clock,
		sanitizer:   bluemonday.StrictPolicy(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Perform validates the request and applies its effect. The target
// table follows the current phase: general races run on the general
// table, everything else on the signups table.
func (e *Engine) Perform(ctx context.Context, req Request) (Result, error) {
	state, err := e.clock.GetCurrentState(ctx)
	if err != nil {
		return Result{}, err
	}
	table := ledger.TableSignups
	if state.Phase.IsGeneral() {
		table = ledger.TableGeneral
	}

	var (
		cost       int
		paragraphs int
		effect     func() (float64, int)
	)

	switch req.Action {
	case ActionSpeech:
		text := strings.TrimSpace(e.sanitizer.Sanitize(req.Text))
		if len(text) == 0 {
			return Result{}, types.Validation("speech", "speech text is empty")
		}
		// One point per character, not per byte.
		yield := utf8.RuneCountInString(text)
		if yield > speechPointCap {
			yield = speechPointCap
		}
		cost = speechStaminaCost
		effect = func() (float64, int) { return float64(yield), 0 }

	case ActionCanvassing:
		effect = func() (float64, int) { return e.uniform(0.5, 1), 0 }

	case ActionDonor:
		effect = func() (float64, int) { return float64(e.intUniform(3, 6)), donorCorruptionGain }

	case ActionSpecial:
		paragraphs = qualifyingParagraphs(e.sanitizer.Sanitize(req.Text))
		if paragraphs == 0 {
			return Result{}, types.Validation("speech", "needs at least one paragraph of 10+ characters")
		}
		n := paragraphs
		effect = func() (float64, int) {
			total := 0.0
			for i := 0; i < n; i++ {
				total += float64(e.intUniform(2, 4))
			}
			return total, n * specialCorruptionPerPar
		}

	case ActionAd:
		if !hasExt(req.Attachment, videoExts) {
			return Result{}, types.Validation("attachment", "ad requires a .mp4, .mov or .webm video")
		}
		effect = func() (float64, int) { return float64(e.intUniform(1, 3)), 0 }

	case ActionPoster:
		if !hasExt(req.Attachment, imageExts) {
			return Result{}, types.Validation("attachment", "poster requires a .png, .jpg, .jpeg or .gif image")
		}
		effect = func() (float64, int) { return e.uniform(0.5, 1), 0 }

	default:
		return Result{}, types.Validation("action", "unknown campaign action")
	}

	c, yield, err := e.candidacies.ApplyAction(ctx, table, req.OwnerID, req.Name, cost, effect)
	if err != nil {
		return Result{}, err
	}
	return Result{Candidacy: c, Yield: yield, Paragraphs: paragraphs}, nil
}

func (e *Engine) uniform(lo, hi float64) float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return lo + e.rng.Float64()*(hi-lo)
}

func (e *Engine) intUniform(lo, hi int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return lo + e.rng.Intn(hi-lo+1)
}

// qualifyingParagraphs splits on blank-line separators and counts the
// paragraphs of at least 10 characters after trimming, capped at 5.
func qualifyingParagraphs(text string) int {
	count := 0
	for _, p := range paragraphSep.Split(text, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(p)) >= specialMinParagraphLen {
			count++
			if count == specialMaxParagraphs {
				break
			}
		}
	}
	return count
}

func hasExt(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
