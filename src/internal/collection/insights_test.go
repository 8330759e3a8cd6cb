package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insightsFixture() []*Band {
	return []*Band{
		{
			Name:   "Kyuss",
			Genres: []string{"Stoner Rock"},
			Albums: []Album{
				{Name: "Blues for the Red Sun", Year: "1992", Type: TypeAlbum, TrackCount: 13, FolderPath: "1992 - Blues for the Red Sun"},
				{Name: "Sky Valley", Year: "1994", Type: TypeAlbum, TrackCount: 10, FolderPath: "1994 - Sky Valley"},
			},
			AlbumsMissing: []Album{
				{Name: "Wretch", Year: "1991", Type: TypeAlbum},
			},
			Analysis: &BandAnalysis{
				Rate: 9,
				Albums: []AlbumAnalysis{
					{Name: "Sky Valley", Rate: 10},
					{Name: "Blues for the Red Sun", Rate: 8},
				},
			},
		},
		{
			Name:   "Pink Floyd",
			Formed: "1965",
			Genres: []string{"Progressive Rock"},
			Albums: []Album{
				{Name: "The Dark Side of the Moon", Year: "1973", Type: TypeAlbum, TrackCount: 10, FolderPath: "1973 - The Dark Side of the Moon"},
				{Name: "Pulse", Year: "1995", Type: TypeLive, Edition: "Limited Edition", TrackCount: 23, FolderPath: "1995 - Pulse (Limited Edition)"},
			},
		},
	}
}

func TestComputeInsights(t *testing.T) {
	ins := ComputeInsights(insightsFixture())

	// 4 of 5 albums are local
	assert.Equal(t, 80.0, ins.Completion)
	// both bands carry enrichment, one has an analysis
	assert.Equal(t, 100.0, ins.MetadataCoverage)
	assert.Equal(t, 50.0, ins.AnalysisCoverage)
	// all local albums sit directly under their band folder
	assert.Equal(t, 100.0, ins.OrganizationCompliance)

	assert.Equal(t, 4, ins.TypeDistribution["Album"])
	assert.Equal(t, 1, ins.TypeDistribution["Live"])
	assert.Equal(t, 80.0, ins.TypePercentages["Album"])

	// 6 of 8 known types are absent
	assert.Len(t, ins.TypeGaps, 6)
	assert.Contains(t, ins.TypeGaps, "EP")
	assert.Equal(t, 25, ins.TypeDiversityScore)

	assert.Equal(t, map[string]int{"1970s": 1, "1990s": 4}, ins.DecadeDistribution)

	assert.Equal(t, 4, ins.EditionDistribution["Standard"])
	assert.Equal(t, 1, ins.EditionDistribution["Limited Edition"])
	assert.Equal(t, 80.0, ins.StandardPercentage)

	assert.Equal(t, 66.7, ins.BandCompletionRates["Kyuss"])
	assert.Equal(t, 100.0, ins.BandCompletionRates["Pink Floyd"])
	assert.Equal(t, []string{"Stoner Rock"}, ins.GenreTrends["Kyuss"])

	assert.NotEmpty(t, ins.GeneratedAt)
}

func TestComputeInsightsEmpty(t *testing.T) {
	ins := ComputeInsights(nil)

	assert.Equal(t, 100.0, ins.Completion)
	assert.Equal(t, 100.0, ins.OrganizationCompliance)
	assert.Equal(t, 0.0, ins.MetadataCoverage)
	assert.Equal(t, MaturityBeginner, ins.MaturityLevel)
	assert.Len(t, ins.TypeGaps, len(albumTypes))
	assert.Equal(t, 0, ins.TypeDiversityScore)
}

func TestMaturityLevel(t *testing.T) {
	assert.Equal(t, MaturityBeginner, maturityLevel(5, 0, 0))
	assert.Equal(t, MaturityIntermediate, maturityLevel(25, 0, 0))
	assert.Equal(t, MaturityAdvanced, maturityLevel(100, 0, 0))
	assert.Equal(t, MaturityExpert, maturityLevel(300, 0, 0))
	assert.Equal(t, MaturityMaster, maturityLevel(800, 0, 0))

	// strong curation bumps one step
	assert.Equal(t, MaturityIntermediate, maturityLevel(5, 95.0, 60.0))
	// but never past the top
	assert.Equal(t, MaturityMaster, maturityLevel(800, 95.0, 60.0))
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100, healthScore(100, 100, 100, 100))
	assert.Equal(t, 0, healthScore(0, 0, 0, 0))
	// 0.40*80 + 0.30*100 + 0.20*100 + 0.10*50 = 87
	assert.Equal(t, 87, healthScore(80, 100, 100, 50))
}

func TestHealthBucket(t *testing.T) {
	assert.Equal(t, HealthCritical, healthBucket(10))
	assert.Equal(t, HealthPoor, healthBucket(40))
	assert.Equal(t, HealthFair, healthBucket(60))
	assert.Equal(t, HealthGood, healthBucket(70))
	assert.Equal(t, HealthExcellent, healthBucket(90))
}

func TestTypeRecommendations(t *testing.T) {
	recs := typeRecommendations(insightsFixture())

	// only the analyzed band gets recommendations
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.Equal(t, "Kyuss", r.Band)
	}

	// Kyuss has only Album releases, so every other type is recommended
	assert.Len(t, recs, len(albumTypes)-1)

	byType := make(map[AlbumType]TypeRecommendation)
	for _, r := range recs {
		byType[r.Type] = r
	}
	// live albums rank high for a rock band
	assert.Equal(t, "High", byType[TypeLive].Priority)
	assert.Equal(t, "Low", byType[TypeDemo].Priority)
	assert.Equal(t, "Medium", byType[TypeCompilation].Priority)
}

func TestEditionUpgrades(t *testing.T) {
	ups := editionUpgrades(insightsFixture())

	// only local standard albums rated >= 8 qualify
	require.Len(t, ups, 2)
	assert.Equal(t, "Blues for the Red Sun", ups[0].Album)
	assert.Equal(t, 8, ups[0].Rating)
	assert.Equal(t, "Sky Valley", ups[1].Album)
	assert.Equal(t, 10, ups[1].Rating)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 100, clampScore(140))
	assert.Equal(t, 55, clampScore(55))
}
