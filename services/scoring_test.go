package services

import (
	"math"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"property_recommend/config"
	"property_recommend/models"
)

func newTestEngines() *Engines {
	return NewEngines(config.Default())
}

func villa(id string, price float64) models.PropertyRecord {
	return models.PropertyRecord{
		ID: id, Price: price, PropertyType: "villa",
		Location:  models.Location{Region: "Bali", SubRegion: "Badung", District: "Canggu"},
		LandArea:  250, BuildingArea: 160, Bedrooms: 3, Bathrooms: 2,
		ImageURLs: []string{"https://img/" + id + ".jpg"},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func randomProperties(n int, seed int64) []models.PropertyRecord {
	r := rand.New(rand.NewSource(seed))
	types := []string{"villa", "house", "land", "apartment", "boarding", ""}
	districts := []string{"Canggu", "Ubud", "Sanur", "Seminyak", ""}
	props := make([]models.PropertyRecord, n)
	for i := range props {
		p := models.PropertyRecord{
			ID:           "p" + strconv.Itoa(i),
			PropertyType: types[r.Intn(len(types))],
			Location:     models.Location{Region: "Bali", SubRegion: "Badung", District: districts[r.Intn(len(districts))]},
			LandArea:     r.Float64() * 600,
			BuildingArea: r.Float64() * 300,
			Bedrooms:     r.Intn(6),
			Bathrooms:    r.Intn(4),
			IsPremium:    r.Intn(4) == 0,
			IsHot:        r.Intn(5) == 0,
			IsFeatured:   r.Intn(6) == 0,
			CreatedAt:    time.Date(2025, 1, 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
		}
		switch r.Intn(10) {
		case 0:
			// 缺少价格
		case 1:
			p.Price = math.NaN()
		case 2:
			p.Price = -1
		default:
			p.Price = 5e8 + r.Float64()*5e9
		}
		if r.Intn(2) == 0 {
			p.ImageURLs = []string{"https://img/" + p.ID + ".jpg"}
		}
		props[i] = p
	}
	return props
}

func TestScoreAllBoundsAndOrder(t *testing.T) {
	e := newTestEngines()
	props := randomProperties(300, 42)
	prefs := models.UserPreferences{
		Budget:        models.NewBudget(1e9, 3e9),
		PropertyTypes: []string{"villa", "house"},
		Locations:     []string{"canggu"},
		Features:      []string{TagManyBedrooms, "private villa"},
	}

	scores := e.Scoring.ScoreAll(props, prefs)
	if len(scores) != len(props) {
		t.Fatalf("len = %d, want %d", len(scores), len(props))
	}
	for i, s := range scores {
		if s.TotalScore < 0 || s.TotalScore > 100 {
			t.Errorf("%s total = %v out of range", s.PropertyID, s.TotalScore)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Errorf("%s confidence = %v out of range", s.PropertyID, s.Confidence)
		}
		if len(s.Reasons) == 0 {
			t.Errorf("%s has no reasons", s.PropertyID)
		}
		if i > 0 && scores[i-1].TotalScore < s.TotalScore {
			t.Fatalf("not sorted at %d: %v < %v", i, scores[i-1].TotalScore, s.TotalScore)
		}
	}
}

func TestScoreAllEmptyPreferences(t *testing.T) {
	e := newTestEngines()
	scores := e.Scoring.ScoreAll(randomProperties(50, 7), models.UserPreferences{})
	for _, s := range scores {
		if s.TotalScore < 0 || s.TotalScore > 100 || math.IsNaN(s.TotalScore) {
			t.Fatalf("%s total = %v", s.PropertyID, s.TotalScore)
		}
	}
}

func TestScoreAllTieBreakByID(t *testing.T) {
	e := newTestEngines()
	scores := e.Scoring.ScoreAll([]models.PropertyRecord{villa("b", 2e9), villa("c", 2e9), villa("a", 2e9)}, models.EmptyPreferences())
	got := []string{scores[0].PropertyID, scores[1].PropertyID, scores[2].PropertyID}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("order = %v, want [a b c]", got)
	}
}

func TestScorePriceAtBudgetMax(t *testing.T) {
	e := newTestEngines()
	prefs := models.UserPreferences{Budget: models.NewBudget(1e9, 3e9)}

	s := e.Scoring.Score(villa("a", 3e9), prefs)
	if s.Breakdown.PriceMatch != 100 {
		t.Errorf("price at max = %v, want 100", s.Breakdown.PriceMatch)
	}
}

func TestScorePriceDoubleBudget(t *testing.T) {
	e := newTestEngines()
	prefs := models.UserPreferences{Budget: models.NewBudget(1e9, 3e9)}

	s := e.Scoring.Score(villa("a", 6e9), prefs)
	if s.Breakdown.PriceMatch > 50 {
		t.Errorf("price at 2x max = %v, want <= 50", s.Breakdown.PriceMatch)
	}
	under := e.Scoring.Score(villa("b", 5e8), prefs)
	if under.Breakdown.PriceMatch >= 100 || under.Breakdown.PriceMatch < 0 {
		t.Errorf("price under min = %v", under.Breakdown.PriceMatch)
	}
}

func TestScoreTypeMatch(t *testing.T) {
	e := newTestEngines()
	prefs := models.UserPreferences{PropertyTypes: []string{"villa"}}

	v := e.Scoring.Score(villa("v", 2e9), prefs)
	if v.Breakdown.TypeMatch != 100 {
		t.Errorf("villa typeMatch = %v, want 100", v.Breakdown.TypeMatch)
	}
	h := villa("h", 2e9)
	h.PropertyType = "house"
	if got := e.Scoring.Score(h, prefs).Breakdown.TypeMatch; got != 20 {
		t.Errorf("house typeMatch = %v, want 20", got)
	}
}

func TestScoreMissingData(t *testing.T) {
	e := newTestEngines()
	bare := models.PropertyRecord{ID: "bare"}

	s := e.Scoring.Score(bare, models.EmptyPreferences())
	if s.Breakdown.PriceMatch != 50 {
		t.Errorf("missing price score = %v, want 50", s.Breakdown.PriceMatch)
	}
	if s.Confidence != 0.5 {
		t.Errorf("bare confidence = %v, want 0.5", s.Confidence)
	}
	if len(s.Reasons) != 1 || s.Reasons[0] != reasonFallback {
		t.Errorf("reasons = %v, want fallback only", s.Reasons)
	}

	full := villa("full", 2e9)
	prefs := models.UserPreferences{PropertyTypes: []string{"villa"}, Locations: []string{"Canggu"}}
	if c := e.Scoring.Score(full, prefs).Confidence; c != 1 {
		t.Errorf("full confidence = %v, want 1", c)
	}
	if c := e.Scoring.Score(full, models.EmptyPreferences()).Confidence; c <= s.Confidence {
		t.Errorf("complete listing confidence %v should exceed bare %v", c, s.Confidence)
	}
}

func TestScoreReasons(t *testing.T) {
	e := newTestEngines()
	prefs := models.UserPreferences{
		Budget:        models.NewBudget(1e9, 3e9),
		PropertyTypes: []string{"villa"},
		Locations:     []string{"canggu"},
		Features:      []string{"private villa"},
	}
	s := e.Scoring.Score(villa("v", 2e9), prefs)

	want := map[string]bool{
		reasonPrice:                            true,
		reasonLocation:                         true,
		reasonType:                             true,
		"Has features you like: private villa": true,
	}
	for _, r := range s.Reasons {
		delete(want, r)
	}
	if len(want) != 0 {
		t.Errorf("missing reasons %v in %v", want, s.Reasons)
	}
	if s.Breakdown.FeatureMatch != 100 {
		t.Errorf("featureMatch = %v, want 100", s.Breakdown.FeatureMatch)
	}
}

func TestScoreLocationMatchesAnyLevel(t *testing.T) {
	e := newTestEngines()
	p := villa("v", 2e9)
	for _, loc := range []string{"Bali", "badung", "Canggu, Badung, Bali", "CANGGU"} {
		s := e.Scoring.Score(p, models.UserPreferences{Locations: []string{loc}})
		if s.Breakdown.LocationMatch != 100 {
			t.Errorf("location %q = %v, want 100", loc, s.Breakdown.LocationMatch)
		}
	}
	if s := e.Scoring.Score(p, models.UserPreferences{Locations: []string{"Ubud"}}); s.Breakdown.LocationMatch != 30 {
		t.Errorf("unmatched location = %v, want 30", s.Breakdown.LocationMatch)
	}
}

func TestScoreAllThousandCandidates(t *testing.T) {
	e := newTestEngines()
	props := randomProperties(1000, 99)
	prefs := models.UserPreferences{
		Budget:        models.NewBudget(1e9, 3e9),
		PropertyTypes: []string{"villa"},
		Locations:     []string{"Ubud"},
		Features:      []string{TagLargeLand},
	}

	start := time.Now()
	scores := e.Scoring.ScoreAll(props, prefs)
	elapsed := time.Since(start)

	if len(scores) != 1000 {
		t.Fatalf("len = %d, want 1000", len(scores))
	}
	if elapsed > 2*time.Second {
		t.Errorf("scoring 1000 candidates took %v", elapsed)
	}
}
