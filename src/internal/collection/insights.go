package collection

import (
	"fmt"
	"sort"
	"strings"
)

// InsightsFileName is the optional root-level file SaveCollectionInsights
// writes
const InsightsFileName = ".collection_insight.json"

// maturity levels of a collection
const (
	MaturityBeginner     = "Beginner"
	MaturityIntermediate = "Intermediate"
	MaturityAdvanced     = "Advanced"
	MaturityExpert       = "Expert"
	MaturityMaster       = "Master"
)

// health score buckets
const (
	HealthCritical  = "Critical"
	HealthPoor      = "Poor"
	HealthFair      = "Fair"
	HealthGood      = "Good"
	HealthExcellent = "Excellent"
)

// TypeRecommendation suggests acquiring a missing album type for a band
type TypeRecommendation struct {
	Band     string    `json:"band_name"`
	Type     AlbumType `json:"album_type"`
	Priority string    `json:"priority"` // High, Medium, Low
	Reason   string    `json:"reason"`
}

// EditionUpgrade suggests looking for a deluxe or remastered edition of a
// highly rated standard album
type EditionUpgrade struct {
	Band       string `json:"band_name"`
	Album      string `json:"album_name"`
	Rating     int    `json:"rating"`
	Suggestion string `json:"suggestion"`
}

// CollectionInsights is the derived analytical view over the collection
// state. It is a deterministic function of the band files and the index;
// only GeneratedAt varies between runs on equal input.
type CollectionInsights struct {
	MaturityLevel string `json:"maturity_level"`
	HealthScore   int    `json:"health_score"`
	HealthBucket  string `json:"health_bucket"`

	Completion             float64 `json:"completion"`
	MetadataCoverage       float64 `json:"metadata_coverage"`
	AnalysisCoverage       float64 `json:"analysis_coverage"`
	OrganizationCompliance float64 `json:"organization_compliance"`

	TypeDistribution   map[string]int     `json:"type_distribution"`
	TypePercentages    map[string]float64 `json:"type_percentages"`
	TypeGaps           []string           `json:"type_gaps"`
	TypeDiversityScore int                `json:"type_diversity_score"`

	EditionDistribution   map[string]int `json:"edition_distribution"`
	DeluxePercentage      float64        `json:"deluxe_percentage"`
	RemasterPercentage    float64        `json:"remaster_percentage"`
	AnniversaryPercentage float64        `json:"anniversary_percentage"`
	StandardPercentage    float64        `json:"standard_percentage"`

	TypeRecommendations []TypeRecommendation `json:"type_recommendations"`
	EditionUpgrades     []EditionUpgrade     `json:"edition_upgrades"`

	DecadeDistribution  map[string]int      `json:"decade_distribution"`
	BandCompletionRates map[string]float64  `json:"band_completion_rates"`
	GenreTrends         map[string][]string `json:"genre_trends"`

	ValueScore         int `json:"value_score"`
	DiscoveryPotential int `json:"discovery_potential"`

	GeneratedAt string `json:"generated_at"`
}

// ComputeInsights derives the analytical view from the full band records
func ComputeInsights(bands []*Band) *CollectionInsights {
	ins := &CollectionInsights{
		TypeDistribution:    make(map[string]int),
		TypePercentages:     make(map[string]float64),
		EditionDistribution: make(map[string]int),
		DecadeDistribution:  make(map[string]int),
		BandCompletionRates: make(map[string]float64),
		GenreTrends:         make(map[string][]string),
		GeneratedAt:         timestamp(),
	}

	var (
		totalAlbums, localAlbums      int
		withMetadata, withAnalysis    int
		organizedBands                int
		complianceSum                 float64
		deluxe, remaster, anniversary int
		standard, unanalyzedAlbums    int
	)

	for _, b := range bands {
		ins.BandCompletionRates[b.Name] = round1(b.Completion())
		if len(b.Genres) > 0 {
			ins.GenreTrends[b.Name] = b.Genres
		}
		if b.HasMetadata() {
			withMetadata++
		}
		if b.HasAnalysis() {
			withAnalysis++
		} else {
			unanalyzedAlbums += b.TotalAlbums()
		}

		if len(b.Albums) > 0 {
			_, compliance := structureOf(b.Albums)
			complianceSum += compliance
			organizedBands++
		}

		localAlbums += len(b.Albums)
		for _, list := range [][]Album{b.Albums, b.AlbumsMissing} {
			for i := range list {
				a := &list[i]
				totalAlbums++
				ins.TypeDistribution[string(a.Type)]++

				if d := a.Decade(); d != "" {
					ins.DecadeDistribution[d]++
				}

				edition := a.Edition
				if edition == "" {
					edition = "Standard"
					standard++
				}
				ins.EditionDistribution[edition]++
				low := strings.ToLower(a.Edition)
				switch {
				case strings.Contains(low, "deluxe"):
					deluxe++
				case strings.Contains(low, "remaster"):
					remaster++
				case strings.Contains(low, "anniversary"):
					anniversary++
				}
			}
		}
	}

	total := len(bands)
	if totalAlbums > 0 {
		ins.Completion = round1(100.0 * float64(localAlbums) / float64(totalAlbums))
		for t, c := range ins.TypeDistribution {
			ins.TypePercentages[t] = round1(100.0 * float64(c) / float64(totalAlbums))
		}
		ins.DeluxePercentage = round1(100.0 * float64(deluxe) / float64(totalAlbums))
		ins.RemasterPercentage = round1(100.0 * float64(remaster) / float64(totalAlbums))
		ins.AnniversaryPercentage = round1(100.0 * float64(anniversary) / float64(totalAlbums))
		ins.StandardPercentage = round1(100.0 * float64(standard) / float64(totalAlbums))
	} else {
		ins.Completion = 100.0
	}
	if total > 0 {
		ins.MetadataCoverage = round1(100.0 * float64(withMetadata) / float64(total))
		ins.AnalysisCoverage = round1(100.0 * float64(withAnalysis) / float64(total))
	}
	if organizedBands > 0 {
		ins.OrganizationCompliance = round1(complianceSum / float64(organizedBands))
	} else {
		ins.OrganizationCompliance = 100.0
	}

	for _, t := range albumTypes {
		if ins.TypeDistribution[string(t)] == 0 {
			ins.TypeGaps = append(ins.TypeGaps, string(t))
		}
	}
	distinct := len(albumTypes) - len(ins.TypeGaps)
	ins.TypeDiversityScore = 100 * distinct / len(albumTypes)

	ins.MaturityLevel = maturityLevel(total, ins.MetadataCoverage, ins.AnalysisCoverage)
	ins.HealthScore = healthScore(ins.Completion, ins.MetadataCoverage, ins.OrganizationCompliance, ins.AnalysisCoverage)
	ins.HealthBucket = healthBucket(ins.HealthScore)

	ins.TypeRecommendations = typeRecommendations(bands)
	ins.EditionUpgrades = editionUpgrades(bands)

	// more rare editions raise the value; more unanalyzed bands with many
	// albums raise the discovery potential
	rare := totalAlbums - standard
	if totalAlbums > 0 {
		ins.ValueScore = clampScore(60*rare/totalAlbums + int(0.4*ins.AnalysisCoverage))
		ins.DiscoveryPotential = clampScore(100 * unanalyzedAlbums / totalAlbums)
	}

	return ins
}

// maturityLevel is the 5-step ladder over the band count, bumped one step
// when metadata coverage reaches 90% and analysis coverage 50%
func maturityLevel(bands int, metadataCov, analysisCov float64) string {
	levels := []string{MaturityBeginner, MaturityIntermediate, MaturityAdvanced, MaturityExpert, MaturityMaster}

	var step int
	switch {
	case bands < 10:
		step = 0
	case bands < 50:
		step = 1
	case bands < 200:
		step = 2
	case bands < 500:
		step = 3
	default:
		step = 4
	}
	if metadataCov >= 90.0 && analysisCov >= 50.0 && step < len(levels)-1 {
		step++
	}
	return levels[step]
}

// healthScore is the weighted mean of the four coverage factors
func healthScore(completion, metadataCov, organization, analysisCov float64) int {
	score := 0.40*completion + 0.30*metadataCov + 0.20*organization + 0.10*analysisCov
	return clampScore(int(score + 0.5))
}

func healthBucket(score int) string {
	switch {
	case score < 30:
		return HealthCritical
	case score < 50:
		return HealthPoor
	case score < 65:
		return HealthFair
	case score < 85:
		return HealthGood
	default:
		return HealthExcellent
	}
}

// typeRecommendations emits one recommendation per analyzed band and album
// type the band does not have yet. The priority reflects how core the type
// is for the band's genres.
func typeRecommendations(bands []*Band) []TypeRecommendation {
	var recs []TypeRecommendation

	for _, b := range bands {
		if !b.HasAnalysis() {
			continue
		}

		present := make(map[AlbumType]struct{})
		for _, list := range [][]Album{b.Albums, b.AlbumsMissing} {
			for i := range list {
				present[list[i].Type] = struct{}{}
			}
		}

		for _, t := range albumTypes {
			if _, exists := present[t]; exists {
				continue
			}
			recs = append(recs, TypeRecommendation{
				Band:     b.Name,
				Type:     t,
				Priority: typePriority(t, b.Genres),
				Reason:   fmt.Sprintf("%s has no %s release in the collection", b.Name, t),
			})
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Band != recs[j].Band {
			return recs[i].Band < recs[j].Band
		}
		return recs[i].Type < recs[j].Type
	})
	return recs
}

// typePriority rates how core an album type is for a band with the given
// genres. Compilations are universally medium, live albums are high for rock
// and metal bands, demos are low.
func typePriority(t AlbumType, genres []string) string {
	switch t {
	case TypeCompilation:
		return "Medium"
	case TypeDemo:
		return "Low"
	case TypeLive:
		for _, g := range genres {
			low := strings.ToLower(g)
			if strings.Contains(low, "rock") || strings.Contains(low, "metal") {
				return "High"
			}
		}
		return "Medium"
	default:
		return "Medium"
	}
}

// editionUpgrades suggests deluxe or remastered editions for local standard
// albums rated 8 or higher
func editionUpgrades(bands []*Band) []EditionUpgrade {
	var ups []EditionUpgrade

	for _, b := range bands {
		for i := range b.Albums {
			a := &b.Albums[i]
			if a.Edition != "" {
				continue
			}
			rating := b.Analysis.AlbumRate(a.Name)
			if rating < 8 {
				continue
			}
			ups = append(ups, EditionUpgrade{
				Band:       b.Name,
				Album:      a.Name,
				Rating:     rating,
				Suggestion: "consider a deluxe or remastered edition",
			})
		}
	}

	sort.Slice(ups, func(i, j int) bool {
		if ups[i].Band != ups[j].Band {
			return ups[i].Band < ups[j].Band
		}
		return ups[i].Album < ups[j].Album
	})
	return ups
}

// clampScore bounds a score to [0, 100]
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
