package campaign

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aprp/electionbot/src/components/candidacy"
	"github.com/aprp/electionbot/src/components/cycle"
	"github.com/aprp/electionbot/src/ledger"
	"github.com/aprp/electionbot/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *candidacy.Store, *ledger.Memory) {
	t.Helper()
	m := ledger.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.EnsureTable(ctx, ledger.TableSignups))
	require.NoError(t, m.EnsureTable(ctx, ledger.TableGeneral))

	store := candidacy.NewStore(m)
	clock := cycle.NewService(m)
	_, err := store.Signup(ctx, "u1", "Alice", types.PartyDemocrats, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	return NewEngine(store, clock), store, m
}

func TestSpeechYieldsOnePointPerCharacter(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)

	text := strings.Repeat("a", 50)
	res, err := e.Perform(context.Background(), Request{Action: ActionSpeech, OwnerID: "u1", Text: text})
	require.NoError(t, err)
	assert.Equal(50.0, res.Yield)
	assert.Equal(90, res.Candidacy.Stamina)
	assert.Equal(50.0, res.Candidacy.Points)
	assert.Equal(0, res.Candidacy.Corruption)
}

func TestSpeechCountsRunesNotBytes(t *testing.T) {
	e, _, _ := newEngine(t)

	// Each é is two bytes; the yield still counts characters.
	text := strings.Repeat("é", 50)
	res, err := e.Perform(context.Background(), Request{Action: ActionSpeech, OwnerID: "u1", Text: text})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Yield)
}

func TestSpeechPointCap(t *testing.T) {
	e, _, _ := newEngine(t)

	text := strings.Repeat("a", 5000)
	res, err := e.Perform(context.Background(), Request{Action: ActionSpeech, OwnerID: "u1", Text: text})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, res.Yield)
}

func TestSpeechRejectsEmptyAfterSanitizing(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.Perform(context.Background(), Request{Action: ActionSpeech, OwnerID: "u1", Text: "<script>alert(1)</script>"})
	require.Error(t, err)
	assert.True(t, types.IsUserError(err))

	// The rejection happens before any stamina is spent.
	res, err := e.Perform(context.Background(), Request{Action: ActionSpeech, OwnerID: "u1", Text: "a real speech"})
	require.NoError(t, err)
	assert.Equal(t, 90, res.Candidacy.Stamina)
}

func TestSpeechStaminaGate(t *testing.T) {
	e, _, m := newEngine(t)
	ctx := context.Background()
	require.NoError(t, m.UpdateCell(ctx, ledger.TableSignups, 2, ledger.ColStamina, "9"))

	_, err := e.Perform(ctx, Request{Action: ActionSpeech, OwnerID: "u1", Text: "hello there"})
	assert.ErrorIs(t, err, types.ErrInsufficientStamina)
}

func TestCanvassingYieldRange(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)

	for i := 0; i < 20; i++ {
		res, err := e.Perform(context.Background(), Request{Action: ActionCanvassing, OwnerID: "u1"})
		require.NoError(t, err)
		assert.GreaterOrEqual(res.Yield, 0.5)
		assert.LessOrEqual(res.Yield, 1.0)
		assert.Equal(100, res.Candidacy.Stamina, "canvassing costs no stamina")
	}
}

func TestDonorYieldAndCorruption(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)

	res, err := e.Perform(context.Background(), Request{Action: ActionDonor, OwnerID: "u1"})
	require.NoError(t, err)
	assert.GreaterOrEqual(res.Yield, 3.0)
	assert.LessOrEqual(res.Yield, 6.0)
	assert.Equal(5, res.Candidacy.Corruption)
}

func TestSpecialCountsQualifyingParagraphs(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)

	text := "a paragraph long enough\n\nshort\n\nanother qualifying paragraph\n \nthird qualifying paragraph"
	res, err := e.Perform(context.Background(), Request{Action: ActionSpecial, OwnerID: "u1", Text: text})
	require.NoError(t, err)
	assert.Equal(3, res.Paragraphs)
	assert.Equal(9, res.Candidacy.Corruption)
	assert.GreaterOrEqual(res.Yield, 6.0)
	assert.LessOrEqual(res.Yield, 12.0)
}

func TestSpecialParagraphCap(t *testing.T) {
	e, _, _ := newEngine(t)

	parts := make([]string, 8)
	for i := range parts {
		parts[i] = "a qualifying paragraph body"
	}
	res, err := e.Perform(context.Background(), Request{Action: ActionSpecial, OwnerID: "u1", Text: strings.Join(parts, "\n\n")})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Paragraphs)
}

func TestSpecialRejectsNoQualifyingParagraphs(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.Perform(context.Background(), Request{Action: ActionSpecial, OwnerID: "u1", Text: "short\n\ntiny"})
	require.Error(t, err)
	assert.True(t, types.IsUserError(err))
}

func TestSpecialParagraphLengthCountsRunes(t *testing.T) {
	e, _, _ := newEngine(t)

	// Five runes, ten bytes: under the ten-character minimum.
	_, err := e.Perform(context.Background(), Request{Action: ActionSpecial, OwnerID: "u1", Text: strings.Repeat("é", 5)})
	require.Error(t, err)
	assert.True(t, types.IsUserError(err))

	res, err := e.Perform(context.Background(), Request{Action: ActionSpecial, OwnerID: "u1", Text: strings.Repeat("é", 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Paragraphs)
}

func TestConcurrentActions(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	// Randomized draws share one source across commands; parallel
	// actions must still land within their ranges.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				res, err := e.Perform(ctx, Request{Action: ActionCanvassing, OwnerID: "u1"})
				if err != nil {
					errs <- err
					return
				}
				if res.Yield < 0.5 || res.Yield > 1.0 {
					errs <- fmt.Errorf("canvassing yield %f out of range", res.Yield)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestAdRequiresVideoAttachment(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Perform(ctx, Request{Action: ActionAd, OwnerID: "u1", Attachment: "flyer.pdf"})
	require.Error(t, err)
	assert.True(types.IsUserError(err))

	res, err := e.Perform(ctx, Request{Action: ActionAd, OwnerID: "u1", Attachment: "spot.MP4"})
	require.NoError(t, err)
	assert.GreaterOrEqual(res.Yield, 1.0)
	assert.LessOrEqual(res.Yield, 3.0)
}

func TestPosterRequiresImageAttachment(t *testing.T) {
	assert := assert.New(t)
	e, _, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Perform(ctx, Request{Action: ActionPoster, OwnerID: "u1", Attachment: "clip.mp4"})
	require.Error(t, err)
	assert.True(types.IsUserError(err))

	res, err := e.Perform(ctx, Request{Action: ActionPoster, OwnerID: "u1", Attachment: "poster.png"})
	require.NoError(t, err)
	assert.GreaterOrEqual(res.Yield, 0.5)
	assert.LessOrEqual(res.Yield, 1.0)
}

func TestUnknownActionRejected(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.Perform(context.Background(), Request{Action: "bribe", OwnerID: "u1"})
	require.Error(t, err)
	assert.True(t, types.IsUserError(err))
}

func TestActionTargetsNamedCandidacy(t *testing.T) {
	e, store, _ := newEngine(t)
	ctx := context.Background()

	_, err := store.Signup(ctx, "u2", "Bob", types.PartyRepublicans, "COL-GOV", "Columbia", "Governor", types.PhaseSignups)
	require.NoError(t, err)

	res, err := e.Perform(ctx, Request{Action: ActionSpeech, OwnerID: "u2", Name: "bob", Text: "vote for me"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.Candidacy.Name)
}
